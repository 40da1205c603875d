package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet transaction types
const (
	WalletTxnTypeCashback   = "cashback"
	WalletTxnTypePurchase   = "purchase"
	WalletTxnTypeRefund     = "refund"
	WalletTxnTypeAdjustment = "adjustment"
)

// WalletTransaction is an immutable ledger entry. Amount is signed:
// positive credits the wallet, negative debits it. The balance is always
// the sum of a user's entries; it is never stored on its own, so it can
// always be re-derived and audited. Rows are never updated or deleted.
type WalletTransaction struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Type   string          `gorm:"type:varchar(20);not null" json:"type"`

	RelatedPaymentID *uint  `gorm:"index" json:"related_payment_id"`
	Description      string `gorm:"type:varchar(255)" json:"description"`

	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for WalletTransaction
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
