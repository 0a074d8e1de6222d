package db_models

// CreditPack maps a payment-provider price to the tokens it buys.
type CreditPack struct {
	BaseModel
	StripePriceID string `gorm:"uniqueIndex"`
	Name          string
	Description   *string
	Tokens        int64  `gorm:"not null"`
	PriceMinor    int64  // 999 = $9.99
	Currency      string `gorm:"size:3"`
	IsActive      bool   `gorm:"default:true"`
}
