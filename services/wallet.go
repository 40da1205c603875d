package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/edusouq/payments-api/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientBalance is returned when a debit would drive the derived
// wallet balance negative. The ledger is left untouched.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// WalletService manages the append-only wallet ledger. The balance is
// always SUM(amount) over a user's transactions; it is never stored as
// its own column, which keeps it re-derivable and audit-proof.
type WalletService struct {
	db *gorm.DB
}

// NewWalletService creates a new wallet service
func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

// Balance derives the user's current balance from the ledger.
func (s *WalletService) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	return s.balanceIn(s.db.WithContext(ctx), userID)
}

func (s *WalletService) balanceIn(tx *gorm.DB, userID uint) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.Model(&model.WalletTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&balance).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("derive wallet balance: %w", err)
	}
	return balance, nil
}

// Credit appends a positive ledger entry inside the caller's transaction.
// amount must be positive.
func (s *WalletService) Credit(tx *gorm.DB, userID uint, amount decimal.Decimal, txnType string, relatedPaymentID *uint, description string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	entry := model.WalletTransaction{
		UserID:           userID,
		Amount:           amount,
		Type:             txnType,
		RelatedPaymentID: relatedPaymentID,
		Description:      description,
	}
	return tx.Create(&entry).Error
}

// Debit appends a negative ledger entry inside the caller's transaction.
// The balance is re-derived inside that same transaction before the entry
// is written, so two concurrent checkouts cannot both spend a stale
// balance. Returns ErrInsufficientBalance when funds do not cover amount.
func (s *WalletService) Debit(tx *gorm.DB, userID uint, amount decimal.Decimal, txnType string, relatedPaymentID *uint, description string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("debit amount must be positive, got %s", amount)
	}

	balance, err := s.balanceIn(tx, userID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	entry := model.WalletTransaction{
		UserID:           userID,
		Amount:           amount.Neg(),
		Type:             txnType,
		RelatedPaymentID: relatedPaymentID,
		Description:      description,
	}
	return tx.Create(&entry).Error
}

// History returns the user's ledger entries, newest first.
func (s *WalletService) History(ctx context.Context, userID uint, limit, offset int) ([]model.WalletTransaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.WalletTransaction{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.WalletTransaction
	if err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
