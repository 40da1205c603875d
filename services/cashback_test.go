package services

import (
	"testing"

	"github.com/edusouq/payments-api/model"
	"github.com/shopspring/decimal"
)

func TestCalculateCashbackPercentageOfPricePaid(t *testing.T) {
	// 10% cashback on a discounted price of 800 earns 80, not 100.
	got := CalculateCashback(model.CashbackTypePercentage,
		decimal.NewFromInt(10), decimal.NewFromInt(800))
	if !got.Equal(decimal.NewFromInt(80)) {
		t.Errorf("cashback = %s, want 80", got)
	}
}

func TestCalculateCashbackFixed(t *testing.T) {
	got := CalculateCashback(model.CashbackTypeFixed,
		decimal.NewFromInt(50), decimal.NewFromInt(800))
	if !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("cashback = %s, want 50", got)
	}
}

func TestCalculateCashbackNone(t *testing.T) {
	got := CalculateCashback(model.CashbackTypeNone,
		decimal.NewFromInt(10), decimal.NewFromInt(800))
	if !got.IsZero() {
		t.Errorf("cashback = %s, want 0", got)
	}

	got = CalculateCashback("", decimal.NewFromInt(10), decimal.NewFromInt(800))
	if !got.IsZero() {
		t.Errorf("cashback for unknown type = %s, want 0", got)
	}
}

func TestCalculateCashbackNeverNegative(t *testing.T) {
	got := CalculateCashback(model.CashbackTypeFixed,
		decimal.NewFromInt(-25), decimal.NewFromInt(800))
	if !got.IsZero() {
		t.Errorf("cashback = %s, want 0 for negative configuration", got)
	}
}
