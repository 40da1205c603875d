package services

import (
	"context"
	"errors"
	"time"

	"github.com/edusouq/payments-api/model"
	"gorm.io/gorm"
)

const (
	// RecentPendingWindow is how long after creation a pending payment is
	// treated as "webhook probably still in flight" rather than stuck.
	RecentPendingWindow = 60 * time.Second

	// PollInterval is the retry hint handed to clients inside the window.
	PollInterval = 3 * time.Second
)

var (
	// ErrPaymentNotFound means no payment matched the query.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrNotOwner means the payment exists but belongs to another user.
	// Handlers map it to 403 without leaking the payment's data.
	ErrNotOwner = errors.New("payment belongs to another user")
)

// StatusQuery identifies a payment for the return-flow status check. At
// least one field must be set.
type StatusQuery struct {
	CourseID        uint
	MerchantOrderID string
	TransactionID   int64
}

// IsEmpty reports whether no identifying parameter was provided.
func (q StatusQuery) IsEmpty() bool {
	return q.CourseID == 0 && q.MerchantOrderID == "" && q.TransactionID == 0
}

// StatusMetadata is the polling hint attached to a status response. A
// recent pending payment is not a failure: the webhook may simply not
// have arrived yet, and deliveries are unordered relative to the user's
// return redirect.
type StatusMetadata struct {
	TimeSinceCreationMs int64 `json:"timeSinceCreation"`
	IsRecentPending     bool  `json:"isRecentPending"`
	ShouldPoll          bool  `json:"shouldPoll"`
	PollIntervalMs      int64 `json:"pollIntervalMs"`
}

// PaymentStatus is a read-only view of a payment plus polling metadata.
type PaymentStatus struct {
	Payment  *model.Payment
	Metadata StatusMetadata
}

// StatusService resolves final payment status for returning clients. It
// is strictly read-only: a payment stays pending until the webhook (or an
// operator) resolves it, never this path.
type StatusService struct {
	db *gorm.DB
}

// NewStatusService creates a new status service
func NewStatusService(db *gorm.DB) *StatusService {
	return &StatusService{db: db}
}

// Resolve finds the most recent payment matching the query and checks it
// belongs to userID. Gateway-issued identifiers are looked up globally
// and then ownership-checked, so a cross-user probe gets ErrNotOwner, not
// another user's data.
func (s *StatusService) Resolve(ctx context.Context, userID uint, q StatusQuery) (*PaymentStatus, error) {
	query := s.db.WithContext(ctx).Model(&model.Payment{})

	switch {
	case q.MerchantOrderID != "":
		query = query.Where("merchant_order_id = ?", q.MerchantOrderID)
	case q.TransactionID != 0:
		query = query.Where("gateway_transaction_id = ?", q.TransactionID)
	case q.CourseID != 0:
		// Course id identifies nothing on its own; scope it to the caller.
		query = query.Where("user_id = ? AND course_id = ?", userID, q.CourseID)
	default:
		return nil, ErrPaymentNotFound
	}

	var payment model.Payment
	if err := query.Order("created_at DESC").First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if payment.UserID != userID {
		return nil, ErrNotOwner
	}

	return &PaymentStatus{
		Payment:  &payment,
		Metadata: buildMetadata(&payment, time.Now()),
	}, nil
}

func buildMetadata(payment *model.Payment, now time.Time) StatusMetadata {
	age := now.Sub(payment.CreatedAt)
	recentPending := payment.Status == model.PaymentStatusPending && age < RecentPendingWindow

	meta := StatusMetadata{
		TimeSinceCreationMs: age.Milliseconds(),
		IsRecentPending:     recentPending,
		ShouldPoll:          recentPending,
	}
	if recentPending {
		meta.PollIntervalMs = PollInterval.Milliseconds()
	}
	return meta
}
