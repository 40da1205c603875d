package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/edusouq/payments-api/database"
	"github.com/edusouq/payments-api/gateway"
	"github.com/edusouq/payments-api/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrAlreadyEnrolled rejects checkout for a course the user already owns.
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")

	// ErrCourseNotAvailable rejects checkout for unknown or unpublished courses.
	ErrCourseNotAvailable = errors.New("course is not available for purchase")
)

// CouponRejectedError carries the user-facing rejection message from
// coupon evaluation when a checkout names an unusable coupon.
type CouponRejectedError struct {
	Message string
}

func (e *CouponRejectedError) Error() string {
	return e.Message
}

// GatewayClient is the outbound surface of the payment gateway the
// checkout flow depends on. Implemented by gateway.Client; faked in tests.
type GatewayClient interface {
	CreateOrder(ctx context.Context, merchantOrderID string, amountCents int64, currency string, billing gateway.BillingData) (*gateway.OrderSession, error)
	IframeURL(paymentKey string) string
}

// EnrollmentChecker reports whether a user already owns a course.
// Satisfied by Reconciler, so checkout and the webhook read path share
// one memoized check.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error)
}

// PaymentService owns payment-row creation and lookups. Status
// transitions are the reconciler's job; nothing here moves a payment out
// of pending except the fully-wallet-funded branch, which never involves
// the gateway and therefore has no webhook to wait for.
type PaymentService struct {
	db          *gorm.DB
	gateway     GatewayClient
	coupons     *CouponService
	wallet      *WalletService
	enrollments EnrollmentChecker
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB, gw GatewayClient, coupons *CouponService, wallet *WalletService, enrollments EnrollmentChecker) *PaymentService {
	return &PaymentService{
		db:          db,
		gateway:     gw,
		coupons:     coupons,
		wallet:      wallet,
		enrollments: enrollments,
	}
}

// CheckoutResult is what the checkout endpoint returns to the client.
type CheckoutResult struct {
	Payment    *model.Payment
	IframeURL  string
	WalletOnly bool
}

// Checkout prices the purchase (coupon, then wallet), registers the order
// with the gateway and persists the pending payment. The wallet debit and
// the payment row commit in one transaction, re-checking the derived
// balance inside it, so concurrent checkouts cannot double-spend credit.
func (s *PaymentService) Checkout(ctx context.Context, user *model.User, courseID uint, couponCode string, useWallet bool) (*CheckoutResult, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotAvailable
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	if !course.IsPublished {
		return nil, ErrCourseNotAvailable
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, user.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	amountDue := course.Price
	var couponID *uint
	if couponCode != "" {
		coupon, err := s.coupons.FindByCode(ctx, couponCode)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load coupon: %w", err)
		}

		priorUses := 0
		if coupon != nil {
			priorUses, err = s.coupons.CompletedUses(ctx, coupon.ID, user.ID)
			if err != nil {
				return nil, fmt.Errorf("count coupon uses: %w", err)
			}
		}

		eval := EvaluateCoupon(coupon, course.Price, priorUses)
		if !eval.IsValid {
			return nil, &CouponRejectedError{Message: eval.Error}
		}
		amountDue = eval.FinalAmount
		couponID = &coupon.ID
	}

	walletApplied := decimal.Zero
	if useWallet && amountDue.IsPositive() {
		balance, err := s.wallet.Balance(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		walletApplied = decimal.Min(balance, amountDue)
		amountDue = amountDue.Sub(walletApplied)
	}

	payment := model.Payment{
		UserID:          user.ID,
		CourseID:        &courseID,
		MerchantOrderID: uuid.New().String(),
		Amount:          amountDue,
		Currency:        course.Currency,
		Status:          model.PaymentStatusPending,
		WalletApplied:   walletApplied,
		CouponID:        couponID,
	}

	// Fully wallet-funded purchase: nothing to collect, so there is no
	// gateway order and no webhook coming. Complete it on the spot,
	// inside the same transaction that spends the credit.
	if amountDue.IsZero() {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			if walletApplied.IsPositive() {
				if err := s.wallet.Debit(tx, user.ID, walletApplied,
					model.WalletTxnTypePurchase, &payment.ID, "Course purchase"); err != nil {
					return err
				}
			}
			return completePayment(tx, &payment, &course, s.wallet, s.coupons, nil)
		})
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Payment: &payment, WalletOnly: true}, nil
	}

	// The gateway order is registered before the payment row exists; an
	// orphaned gateway order from a failed commit is harmless, the
	// reverse (a pending row pointing nowhere) is not.
	amountCents := amountDue.Mul(oneHundred).IntPart()
	session, err := s.gateway.CreateOrder(ctx, payment.MerchantOrderID, amountCents, payment.Currency, gateway.BillingData{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
	})
	if err != nil {
		return nil, err
	}

	payment.GatewayOrderID = session.GatewayOrderID
	payment.PaymentToken = session.PaymentKey
	payment.GatewayResponse = datatypes.JSON(session.Raw)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if walletApplied.IsPositive() {
			return s.wallet.Debit(tx, user.ID, walletApplied,
				model.WalletTxnTypePurchase, &payment.ID, "Course purchase")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		Payment:   &payment,
		IframeURL: s.gateway.IframeURL(session.PaymentKey),
	}, nil
}

// FindByMerchantOrderID loads a payment by our order reference.
func (s *PaymentService) FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*model.Payment, error) {
	var payment model.Payment
	if err := s.db.WithContext(ctx).
		Where("merchant_order_id = ?", merchantOrderID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// List returns payments for the admin ledger view, filtered and paginated.
func (s *PaymentService) List(ctx context.Context, status string, userID uint, limit, offset int) ([]model.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Payment{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []model.Payment
	if err := query.Preload("Course").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

// lockPayment loads a payment row under FOR UPDATE (on postgres) inside tx.
func lockPayment(tx *gorm.DB, gatewayOrderID string) (*model.Payment, error) {
	var payment model.Payment
	err := database.LockForUpdate(tx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
