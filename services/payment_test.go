package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/edusouq/payments-api/gateway"
	"github.com/edusouq/payments-api/model"
	"github.com/shopspring/decimal"
)

// fakeGateway records order registrations without talking to anything.
type fakeGateway struct {
	orders      int
	lastCents   int64
	failWith    error
	nextOrderID int64
}

func (f *fakeGateway) CreateOrder(ctx context.Context, merchantOrderID string, amountCents int64, currency string, billing gateway.BillingData) (*gateway.OrderSession, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.orders++
	f.lastCents = amountCents
	f.nextOrderID++
	return &gateway.OrderSession{
		GatewayOrderID: fmt.Sprintf("9%04d", f.nextOrderID),
		PaymentKey:     "pk-test",
		Raw:            json.RawMessage(`{"token":"pk-test"}`),
	}, nil
}

func (f *fakeGateway) IframeURL(paymentKey string) string {
	return "https://gateway.test/iframes/1?payment_token=" + paymentKey
}

func TestCheckoutWithCouponAndWallet(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1000, model.CashbackTypePercentage, 10)
	coupon := model.Coupon{
		Code:           "SAVE20",
		Type:           model.CouponTypePercentage,
		Amount:         decimal.NewFromInt(20),
		MaxUsesPerUser: 1,
		StartDate:      time.Now().Add(-time.Hour),
		IsActive:       true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	wallet := NewWalletService(db)
	if err := wallet.Credit(db, user.ID, decimal.NewFromInt(300),
		model.WalletTxnTypeCashback, nil, "Cashback reward"); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}

	gw := &fakeGateway{}
	svc := NewPaymentService(db, gw, NewCouponService(db), wallet, newReconciler(db))

	result, err := svc.Checkout(context.Background(), user, course.ID, "save20", true)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.WalletOnly {
		t.Fatal("expected gateway-backed checkout, got wallet-only")
	}
	if result.IframeURL == "" {
		t.Error("expected an iframe URL")
	}

	// 1000 - 20% coupon = 800, minus 300 wallet credit = 500 due.
	payment := result.Payment
	if !payment.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("amount due = %s, want 500", payment.Amount)
	}
	if !payment.WalletApplied.Equal(decimal.NewFromInt(300)) {
		t.Errorf("wallet applied = %s, want 300", payment.WalletApplied)
	}
	if payment.Status != model.PaymentStatusPending {
		t.Errorf("status = %q, want pending", payment.Status)
	}
	if payment.CouponID == nil || *payment.CouponID != coupon.ID {
		t.Errorf("coupon id = %v, want %d", payment.CouponID, coupon.ID)
	}
	if payment.MerchantOrderID == "" || payment.GatewayOrderID == "" {
		t.Error("order identifiers not set")
	}
	if gw.lastCents != 50000 {
		t.Errorf("gateway charged %d cents, want 50000", gw.lastCents)
	}

	// The wallet credit was spent when the pending row committed.
	balance, err := wallet.Balance(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("balance = %s, want 0 after applying wallet", balance)
	}
}

func TestCheckoutFractionalPriceChargesStoredAmount(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 999.99, model.CashbackTypeNone, 0)
	coupon := model.Coupon{
		Code:           "SAVE20",
		Type:           model.CouponTypePercentage,
		Amount:         decimal.NewFromInt(20),
		MaxUsesPerUser: 1,
		StartDate:      time.Now().Add(-time.Hour),
		IsActive:       true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	gw := &fakeGateway{}
	svc := NewPaymentService(db, gw, NewCouponService(db), NewWalletService(db), newReconciler(db))

	result, err := svc.Checkout(context.Background(), user, course.ID, "SAVE20", false)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// 999.99 less the cent-rounded 20% discount is 799.99; the stored
	// amount and the minor-unit gateway charge must describe the same sum.
	if !result.Payment.Amount.Equal(decimal.NewFromFloat(799.99)) {
		t.Errorf("stored amount = %s, want 799.99", result.Payment.Amount)
	}
	if gw.lastCents != 79999 {
		t.Errorf("gateway charged %d cents, want 79999", gw.lastCents)
	}
}

func TestCheckoutWalletOnlyCompletesImmediately(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 200, model.CashbackTypePercentage, 10)

	wallet := NewWalletService(db)
	if err := wallet.Credit(db, user.ID, decimal.NewFromInt(500),
		model.WalletTxnTypeCashback, nil, "Cashback reward"); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}

	gw := &fakeGateway{}
	svc := NewPaymentService(db, gw, NewCouponService(db), wallet, newReconciler(db))

	result, err := svc.Checkout(context.Background(), user, course.ID, "", true)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !result.WalletOnly {
		t.Fatal("expected wallet-only checkout")
	}
	if gw.orders != 0 {
		t.Errorf("gateway orders = %d, want 0 for a fully wallet-funded purchase", gw.orders)
	}
	if result.Payment.Status != model.PaymentStatusCompleted {
		t.Errorf("status = %q, want completed", result.Payment.Status)
	}

	var enrollments int64
	if err := db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&enrollments).Error; err != nil {
		t.Fatalf("count enrollments: %v", err)
	}
	if enrollments != 1 {
		t.Errorf("enrollments = %d, want 1", enrollments)
	}

	// 500 - 200 purchase + 20 cashback (10% of the 200 paid).
	balance, err := wallet.Balance(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(320)) {
		t.Errorf("balance = %s, want 320", balance)
	}
}

func TestCheckoutRejectsUnusableCoupon(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1000, model.CashbackTypeNone, 0)

	svc := NewPaymentService(db, &fakeGateway{}, NewCouponService(db), NewWalletService(db), newReconciler(db))

	_, err := svc.Checkout(context.Background(), user, course.ID, "NOPE", false)
	var rejected *CouponRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want CouponRejectedError", err)
	}
	if rejected.Message != CouponErrInvalidCode {
		t.Errorf("message = %q, want %q", rejected.Message, CouponErrInvalidCode)
	}

	// A rejected coupon leaves no payment behind.
	var payments int64
	if err := db.Model(&model.Payment{}).Count(&payments).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if payments != 0 {
		t.Errorf("payments = %d, want 0", payments)
	}
}

func TestCheckoutRejectsExistingEnrollment(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1000, model.CashbackTypeNone, 0)
	if err := db.Create(&model.Enrollment{
		UserID:   user.ID,
		CourseID: course.ID,
		Status:   model.EnrollmentStatusActive,
	}).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	svc := NewPaymentService(db, &fakeGateway{}, NewCouponService(db), NewWalletService(db), newReconciler(db))
	_, err := svc.Checkout(context.Background(), user, course.ID, "", false)
	if !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestCheckoutRejectsUnavailableCourse(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	unpublished := model.Course{
		Title:    "Draft Course",
		Price:    decimal.NewFromInt(100),
		Currency: "EGP",
	}
	if err := db.Create(&unpublished).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}

	svc := NewPaymentService(db, &fakeGateway{}, NewCouponService(db), NewWalletService(db), newReconciler(db))
	ctx := context.Background()

	if _, err := svc.Checkout(ctx, user, unpublished.ID, "", false); !errors.Is(err, ErrCourseNotAvailable) {
		t.Errorf("unpublished course: err = %v, want ErrCourseNotAvailable", err)
	}
	if _, err := svc.Checkout(ctx, user, 424242, "", false); !errors.Is(err, ErrCourseNotAvailable) {
		t.Errorf("missing course: err = %v, want ErrCourseNotAvailable", err)
	}
}

func TestCheckoutGatewayFailureLeavesNothingBehind(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1000, model.CashbackTypeNone, 0)

	gwErr := &gateway.Error{Kind: gateway.KindNetwork, Op: "register order", Err: errors.New("connection refused")}
	svc := NewPaymentService(db, &fakeGateway{failWith: gwErr}, NewCouponService(db), NewWalletService(db), newReconciler(db))

	_, err := svc.Checkout(context.Background(), user, course.ID, "", false)
	var ge *gateway.Error
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want gateway.Error", err)
	}

	var payments int64
	if err := db.Model(&model.Payment{}).Count(&payments).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if payments != 0 {
		t.Errorf("payments = %d, want 0 after gateway failure", payments)
	}
}
