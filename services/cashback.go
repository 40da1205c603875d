package services

import (
	"github.com/edusouq/payments-api/model"
	"github.com/shopspring/decimal"
)

// CalculateCashback computes the wallet credit earned on a completed
// payment. finalPricePaid is the post-discount amount actually charged,
// not the list price, so coupon stacking cannot inflate the reward.
// The result is never negative.
func CalculateCashback(cashbackType string, cashbackValue, finalPricePaid decimal.Decimal) decimal.Decimal {
	var credit decimal.Decimal

	switch cashbackType {
	case model.CashbackTypePercentage:
		credit = finalPricePaid.Mul(cashbackValue).Div(oneHundred)
	case model.CashbackTypeFixed:
		// Flat credit, independent of the price paid.
		credit = cashbackValue
	default:
		return decimal.Zero
	}

	if credit.IsNegative() {
		return decimal.Zero
	}
	return credit
}
