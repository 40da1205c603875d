package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/edusouq/payments-api/model"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// uniqueViolation is the Postgres error code raised by the enrollments
// composite unique index when two completions race past the existence
// check.
const uniqueViolation = "23505"

// completePayment applies every side effect of a successful payment as
// one unit of work: status transition, enrollment grant, cashback credit
// and coupon consumption. tx must be a single database transaction; the
// effects commit together or not at all. A completed payment without its
// enrollment (or vice versa) is a correctness violation, never a state
// this function may leave behind.
func completePayment(tx *gorm.DB, payment *model.Payment, course *model.Course, wallet *WalletService, coupons *CouponService, transactionID *int64) error {
	now := time.Now()

	updates := map[string]interface{}{
		"status":       model.PaymentStatusCompleted,
		"completed_at": now,
	}
	if transactionID != nil {
		updates["gateway_transaction_id"] = *transactionID
	}
	if err := tx.Model(payment).Updates(updates).Error; err != nil {
		return fmt.Errorf("transition payment %d: %w", payment.ID, err)
	}
	payment.Status = model.PaymentStatusCompleted
	payment.CompletedAt = &now
	payment.GatewayTransactionID = transactionID

	if payment.CourseID != nil {
		if err := ensureEnrollment(tx, payment); err != nil {
			return err
		}
	}

	if course != nil {
		// Cashback is earned on what was actually paid after discounts:
		// the gateway-collected amount plus any wallet credit applied.
		paid := payment.Amount.Add(payment.WalletApplied)
		credit := CalculateCashback(course.CashbackType, course.CashbackValue, paid)
		if credit.IsPositive() {
			if err := wallet.Credit(tx, payment.UserID, credit,
				model.WalletTxnTypeCashback, &payment.ID, "Cashback on course purchase"); err != nil {
				return fmt.Errorf("credit cashback for payment %d: %w", payment.ID, err)
			}
		}
	}

	if payment.CouponID != nil {
		if err := coupons.Apply(tx, *payment.CouponID); err != nil {
			return fmt.Errorf("consume coupon %d: %w", *payment.CouponID, err)
		}
	}

	return nil
}

// ensureEnrollment creates the enrollment for (user, course) if it does
// not exist yet. The existence check makes webhook replays a no-op; the
// unique-violation tolerance closes the window where two deliveries race
// past the check before either commits.
func ensureEnrollment(tx *gorm.DB, payment *model.Payment) error {
	var count int64
	if err := tx.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", payment.UserID, *payment.CourseID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if count > 0 {
		return nil
	}

	enrollment := model.Enrollment{
		UserID:          payment.UserID,
		CourseID:        *payment.CourseID,
		Status:          model.EnrollmentStatusActive,
		SourcePaymentID: &payment.ID,
	}
	if err := tx.Create(&enrollment).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
