package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cashback policy types
const (
	CashbackTypeNone       = "none"
	CashbackTypePercentage = "percentage"
	CashbackTypeFixed      = "fixed"
)

// Course is the catalog entry checkout sells access to. Content, lessons
// and authoring are owned by the catalog service; the fields here are the
// ones the payment flow reads: price and the cashback policy.
type Course struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"not null" json:"title"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency    string          `gorm:"type:varchar(10);default:'EGP'" json:"currency"`
	IsPublished bool            `gorm:"default:false;index" json:"is_published"`

	// CashbackType/CashbackValue define the wallet credit awarded when a
	// payment for this course completes. The credit is computed on the
	// post-discount amount actually paid.
	CashbackType  string          `gorm:"type:varchar(20);default:'none'" json:"cashback_type"`
	CashbackValue decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"cashback_value"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}
