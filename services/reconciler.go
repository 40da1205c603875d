package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/edusouq/payments-api/gateway"
	"github.com/edusouq/payments-api/model"
	"github.com/edusouq/payments-api/utils/cache"
	"gorm.io/gorm"
)

// ErrUnknownOrder is returned when a webhook references a gateway order
// this system never created. It signals a data-integrity problem worth
// alerting on, but the webhook is answered with 404 rather than an
// unhandled failure so the gateway's retries stop.
var ErrUnknownOrder = errors.New("unknown gateway order")

// Reconcile outcomes
const (
	OutcomeIgnored          = "ignored"           // non-transaction event
	OutcomeCompleted        = "completed"         // pending -> completed
	OutcomeFailed           = "failed"            // pending -> failed
	OutcomeAlreadyProcessed = "already_processed" // idempotency gate hit
)

const enrollmentCacheTTL = 5 * time.Minute

// Reconciler is the webhook state machine. It owns the only code path
// allowed to transition a gateway-backed payment out of pending.
type Reconciler struct {
	db      *gorm.DB
	cache   cache.Cache // optional; memoizes enrollment existence
	wallet  *WalletService
	coupons *CouponService
}

// NewReconciler creates a new webhook reconciler
func NewReconciler(db *gorm.DB, c cache.Cache, wallet *WalletService, coupons *CouponService) *Reconciler {
	return &Reconciler{
		db:      db,
		cache:   c,
		wallet:  wallet,
		coupons: coupons,
	}
}

// HandleEvent consumes a verified webhook event and returns what it did.
// Callers must verify the HMAC before calling; this function assumes the
// payload is authentic.
//
// The payment row is locked for the whole transaction, so two concurrent
// deliveries of the same notification serialize: the first one applies
// the completion effects, the second hits the idempotency gate and
// acknowledges without touching anything.
func (r *Reconciler) HandleEvent(ctx context.Context, event *gateway.WebhookEvent) (string, error) {
	if event.Type != gateway.EventTypeTransaction {
		return OutcomeIgnored, nil
	}

	obj := &event.Obj

	// Pending intermediates precede the final notification; only the
	// terminal report is reconciliation-relevant.
	if obj.Pending {
		return OutcomeIgnored, nil
	}

	transactionID, err := obj.TransactionID()
	if err != nil {
		return "", fmt.Errorf("parse transaction id %q: %w", obj.ID.String(), err)
	}

	outcome := ""
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := lockPayment(tx, obj.GatewayOrderID())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownOrder
			}
			return fmt.Errorf("load payment for order %s: %w", obj.GatewayOrderID(), err)
		}

		// Idempotency gate: replayed webhooks for a terminal payment
		// acknowledge without mutation.
		if payment.IsTerminal() {
			outcome = OutcomeAlreadyProcessed
			return nil
		}

		if !obj.Success {
			if err := tx.Model(payment).
				Update("status", model.PaymentStatusFailed).Error; err != nil {
				return fmt.Errorf("mark payment %d failed: %w", payment.ID, err)
			}
			// Wallet credit spent at checkout bought nothing; return it in
			// the same transaction. Replays hit the terminal gate above, so
			// the refund is appended exactly once.
			if payment.WalletApplied.IsPositive() {
				if err := r.wallet.Credit(tx, payment.UserID, payment.WalletApplied,
					model.WalletTxnTypeRefund, &payment.ID, "Wallet refund for failed payment"); err != nil {
					return fmt.Errorf("refund wallet for payment %d: %w", payment.ID, err)
				}
			}
			log.Printf("[RECONCILER] payment %d failed (order %s, advisory: %s)",
				payment.ID, obj.GatewayOrderID(), gateway.ClassifyDecline(obj.Data))
			outcome = OutcomeFailed
			return nil
		}

		var course *model.Course
		if payment.CourseID != nil {
			var loaded model.Course
			if err := tx.First(&loaded, *payment.CourseID).Error; err != nil {
				return fmt.Errorf("load course %d: %w", *payment.CourseID, err)
			}
			course = &loaded
		}

		if err := completePayment(tx, payment, course, r.wallet, r.coupons, &transactionID); err != nil {
			return err
		}

		outcome = OutcomeCompleted
		return nil
	})
	if err != nil {
		return "", err
	}

	if outcome == OutcomeCompleted && event.Obj.Order.MerchantOrderID != "" {
		r.primeEnrollmentCache(ctx, event)
	}

	return outcome, nil
}

// IsEnrolled reports whether the user holds an enrollment for the course,
// memoized through the injected cache.
func (r *Reconciler) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	key := enrollmentCacheKey(userID, courseID)
	if r.cache != nil {
		if val, err := r.cache.Get(ctx, key); err == nil {
			return val == "1", nil
		}
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}

	if r.cache != nil {
		enrolled := "0"
		if count > 0 {
			enrolled = "1"
		}
		if err := r.cache.Set(ctx, key, enrolled, enrollmentCacheTTL); err != nil {
			log.Printf("[RECONCILER] cache set failed for %s: %v", key, err)
		}
	}

	return count > 0, nil
}

func (r *Reconciler) primeEnrollmentCache(ctx context.Context, event *gateway.WebhookEvent) {
	if r.cache == nil {
		return
	}

	var payment model.Payment
	if err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", event.Obj.GatewayOrderID()).
		First(&payment).Error; err != nil || payment.CourseID == nil {
		return
	}

	key := enrollmentCacheKey(payment.UserID, *payment.CourseID)
	if err := r.cache.Set(ctx, key, "1", enrollmentCacheTTL); err != nil {
		log.Printf("[RECONCILER] cache prime failed for %s: %v", key, err)
	}
}

func enrollmentCacheKey(userID, courseID uint) string {
	return fmt.Sprintf("enrollment:%d:%d", userID, courseID)
}
