package services

import (
	"context"
	"strings"
	"time"

	"github.com/edusouq/payments-api/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon rejection messages. These are returned as data, not errors:
// an unusable coupon is an expected outcome of validation, and callers
// surface the message directly.
const (
	CouponErrInvalidCode   = "Invalid coupon code"
	CouponErrExpired       = "Coupon has expired"
	CouponErrNotYetValid   = "Coupon is not yet valid"
	CouponErrLimitExceeded = "Coupon usage limit exceeded"
	CouponErrAlreadyUsed   = "You have already used this coupon"
)

// CouponEvaluation is the outcome of evaluating a coupon against a price.
type CouponEvaluation struct {
	IsValid     bool
	Discount    decimal.Decimal
	FinalAmount decimal.Decimal
	Error       string
}

var oneHundred = decimal.NewFromInt(100)

// EvaluateCoupon checks usability rules in order, short-circuiting on the
// first failure, then computes the discount. priorCompletedUses is the
// applying user's count of completed payments carrying this coupon.
// Evaluation never mutates anything; consuming a use happens only when a
// payment completes (CouponService.Apply).
func EvaluateCoupon(coupon *model.Coupon, coursePrice decimal.Decimal, priorCompletedUses int) CouponEvaluation {
	invalid := func(msg string) CouponEvaluation {
		return CouponEvaluation{
			IsValid:     false,
			FinalAmount: coursePrice,
			Error:       msg,
		}
	}

	if coupon == nil || !coupon.IsActive {
		return invalid(CouponErrInvalidCode)
	}

	now := time.Now()
	if coupon.EndDate != nil && now.After(*coupon.EndDate) {
		return invalid(CouponErrExpired)
	}
	if now.Before(coupon.StartDate) {
		return invalid(CouponErrNotYetValid)
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return invalid(CouponErrLimitExceeded)
	}
	if coupon.MaxUsesPerUser > 0 && priorCompletedUses >= coupon.MaxUsesPerUser {
		return invalid(CouponErrAlreadyUsed)
	}

	var discount decimal.Decimal
	switch coupon.Type {
	case model.CouponTypePercentage:
		// Round to cents: the final amount is stored in a 2-decimal column
		// and charged as integer minor units, and the two must agree.
		discount = coursePrice.Mul(coupon.Amount).Div(oneHundred).Round(2)
	case model.CouponTypeFixed:
		// A fixed discount never pushes the price below zero.
		discount = decimal.Min(coupon.Amount, coursePrice)
	default:
		return invalid(CouponErrInvalidCode)
	}

	finalAmount := coursePrice.Sub(discount)
	if finalAmount.IsNegative() {
		finalAmount = decimal.Zero
	}

	return CouponEvaluation{
		IsValid:     true,
		Discount:    discount,
		FinalAmount: finalAmount,
	}
}

// CouponService handles coupon lookup, per-user usage counting and the
// consume-on-completion side effect.
type CouponService struct {
	db *gorm.DB
}

// NewCouponService creates a new coupon service
func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{db: db}
}

// NormalizeCode upper-cases and trims a coupon code; codes are stored and
// matched case-insensitively.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FindByCode looks up a coupon by normalized code. Returns
// gorm.ErrRecordNotFound if no such coupon exists.
func (s *CouponService) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := s.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// CompletedUses counts the user's completed payments carrying this
// coupon. Pending and failed checkouts do not count against the per-user
// cap.
func (s *CouponService) CompletedUses(ctx context.Context, couponID, userID uint) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("coupon_id = ? AND user_id = ? AND status = ?",
			couponID, userID, model.PaymentStatusCompleted).
		Count(&count).Error
	return int(count), err
}

// Apply consumes one use of a coupon. Called only from the payment
// completion transaction; tx must be that transaction so the increment
// commits (or rolls back) with the status change.
func (s *CouponService) Apply(tx *gorm.DB, couponID uint) error {
	return tx.Model(&model.Coupon{}).
		Where("id = ?", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
}
