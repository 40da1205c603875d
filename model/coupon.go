package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon types
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

// Coupon is a discount rule applied at checkout. Codes are normalized
// upper-case before storage and lookup.
type Coupon struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Code   string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Type   string `gorm:"type:varchar(20);not null" json:"type"` // percentage, fixed
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`

	// MaxUses is the global cap; nil means unlimited. UsedCount only moves
	// on completed payments, never on validation-only calls.
	MaxUses        *int `json:"max_uses"`
	UsedCount      int  `gorm:"default:0" json:"used_count"`
	MaxUsesPerUser int  `gorm:"default:1" json:"max_uses_per_user"`

	StartDate time.Time  `gorm:"not null" json:"start_date"`
	EndDate   *time.Time `json:"end_date"` // nil = no expiry
	IsActive  bool       `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Coupon
func (Coupon) TableName() string {
	return "coupons"
}
