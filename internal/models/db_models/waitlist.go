package db_models

type WaitlistStatus string

const (
	WaitlistPending  WaitlistStatus = "pending"
	WaitlistApproved WaitlistStatus = "approved"
)

type WaitlistEntry struct {
	BaseModel
	Email      string `gorm:"uniqueIndex"`
	Name       string
	Status     WaitlistStatus `gorm:"size:16;index;default:pending"`
	ApprovedAt *int64
}

func (WaitlistEntry) TableName() string {
	return "waitlist"
}
