package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment statuses. A payment leaves "pending" exactly once, via the
// webhook reconciler; "completed" and "failed" are terminal.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment is the financial ledger entry for a single checkout attempt.
type Payment struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	// CourseID is nullable: some purchases are non-course services.
	CourseID *uint `gorm:"index" json:"course_id"`

	// MerchantOrderID is our reference, sent to the gateway at order
	// registration and echoed back on the return redirect.
	MerchantOrderID string `gorm:"type:varchar(64);uniqueIndex;not null" json:"merchant_order_id"`

	// GatewayOrderID is assigned by the gateway; webhooks are matched on
	// it. Empty for purchases that never reach the gateway, so it cannot
	// carry a unique index.
	GatewayOrderID string `gorm:"type:varchar(100);index" json:"gateway_order_id"`

	// GatewayTransactionID is set on completion. The gateway issues large
	// numeric ids, so this must never pass through a float.
	GatewayTransactionID *int64 `gorm:"index" json:"gateway_transaction_id"`

	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(10);default:'EGP'" json:"currency"`
	Status        string          `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	WalletApplied decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"wallet_applied"`

	// PaymentToken is the client-facing key the gateway's hosted page is
	// opened with. Extracted from the order-creation response.
	PaymentToken string `gorm:"type:text" json:"-"`

	// GatewayResponse keeps the raw order-creation/webhook payloads for
	// audit. Code never reads fields out of it; use the typed gateway
	// response structs instead.
	GatewayResponse datatypes.JSON `json:"-"`

	CouponID    *uint      `gorm:"index" json:"coupon_id"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User   User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Coupon *Coupon `gorm:"foreignKey:CouponID" json:"-"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// IsTerminal reports whether the payment has reached a final status and
// must not be transitioned again (the webhook idempotency gate).
func (p *Payment) IsTerminal() bool {
	return p.Status != PaymentStatusPending
}
