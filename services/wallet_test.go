package services

import (
	"context"
	"errors"
	"testing"

	"github.com/edusouq/payments-api/model"
	"github.com/shopspring/decimal"
)

func TestWalletBalanceStartsAtZero(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	wallet := NewWalletService(db)

	balance, err := wallet.Balance(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("balance = %s, want 0", balance)
	}
}

func TestWalletCreditThenDebit(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	wallet := NewWalletService(db)
	ctx := context.Background()

	if err := wallet.Credit(db, user.ID, decimal.NewFromInt(100),
		model.WalletTxnTypeCashback, nil, "Cashback reward"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := wallet.Debit(db, user.ID, decimal.NewFromInt(30),
		model.WalletTxnTypePurchase, nil, "Course purchase"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	balance, err := wallet.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("balance = %s, want 70", balance)
	}
}

func TestWalletDebitInsufficientLeavesLedgerUntouched(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	wallet := NewWalletService(db)
	ctx := context.Background()

	if err := wallet.Credit(db, user.ID, decimal.NewFromInt(50),
		model.WalletTxnTypeCashback, nil, "Cashback reward"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err := wallet.Debit(db, user.ID, decimal.NewFromInt(51),
		model.WalletTxnTypePurchase, nil, "Course purchase")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("debit err = %v, want ErrInsufficientBalance", err)
	}

	balance, err := wallet.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balance = %s, want 50 after rejected debit", balance)
	}

	var count int64
	if err := db.Model(&model.WalletTransaction{}).
		Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if count != 1 {
		t.Errorf("ledger entries = %d, want 1", count)
	}
}

func TestWalletRejectsNonPositiveAmounts(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	wallet := NewWalletService(db)

	if err := wallet.Credit(db, user.ID, decimal.Zero,
		model.WalletTxnTypeCashback, nil, ""); err == nil {
		t.Error("credit of zero should fail")
	}
	if err := wallet.Debit(db, user.ID, decimal.NewFromInt(-5),
		model.WalletTxnTypePurchase, nil, ""); err == nil {
		t.Error("debit of a negative amount should fail")
	}
}

func TestWalletHistoryNewestFirst(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	wallet := NewWalletService(db)
	ctx := context.Background()

	for _, amount := range []int64{10, 20, 30} {
		if err := wallet.Credit(db, user.ID, decimal.NewFromInt(amount),
			model.WalletTxnTypeCashback, nil, "Cashback reward"); err != nil {
			t.Fatalf("credit %d: %v", amount, err)
		}
	}

	entries, total, err := wallet.History(ctx, user.ID, 2, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(entries) != 2 {
		t.Fatalf("page size = %d, want 2", len(entries))
	}
}
