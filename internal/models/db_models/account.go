package db_models

import "github.com/google/uuid"

// Profile is the persisted Account: identity, token balance and admin flag.
type Profile struct {
	BaseModel
	Name             string
	Email            string `gorm:"uniqueIndex"`
	PasswordHash     string `json:"-"`
	EmailConfirmedAt *int64

	Tokens  int64 `gorm:"not null;default:0"`
	IsAdmin bool  `gorm:"not null;default:false"`

	SubscriptionStatus   SubscriptionStatus `gorm:"size:32"`
	StripeCustomerID     string             `gorm:"index"`
	StripeSubscriptionID string             `gorm:"index"`
	// SubscriptionEventAt is the provider timestamp of the last applied
	// subscription event; older events are ignored.
	SubscriptionEventAt int64
}

func (p *Profile) HasConfirmedEmail() bool {
	return p.EmailConfirmedAt != nil
}

// ProfileRef builds a model usable with gorm's Model(...) for updates by id.
func ProfileRef(id uuid.UUID) *Profile {
	return &Profile{BaseModel: BaseModel{ID: id}}
}
