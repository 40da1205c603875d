package cron

import (
	"fmt"
	"log"
	"time"

	"github.com/edusouq/payments-api/model"
)

// stalePendingAge is how old a pending payment must be before the report
// job flags it. Well beyond any plausible webhook delay.
const stalePendingAge = 24 * time.Hour

// ReportStalePendingPayments flags payments stuck in pending long after
// checkout, which usually means an abandoned checkout or a lost webhook.
// It only reports: status transitions belong to the reconciler or to an
// operator, never to a scheduled job.
func (m *CronManager) ReportStalePendingPayments() {
	jobName := "report_stale_pending_payments"
	cutoff := time.Now().Add(-stalePendingAge)

	var stale []model.Payment
	err := m.db.
		Where("status = ? AND created_at < ?", model.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Limit(500).
		Find(&stale).Error
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to query stale payments: %w", err))
		return
	}

	if len(stale) == 0 {
		m.logJobComplete(jobName, "no stale pending payments")
		return
	}

	for _, p := range stale {
		log.Printf("[CRON] stale pending payment id=%d user=%d order=%s created=%s",
			p.ID, p.UserID, p.MerchantOrderID, p.CreatedAt.Format(time.RFC3339))
	}
	m.logJobComplete(jobName, fmt.Sprintf("%d stale pending payments flagged", len(stale)))
}

// DeactivateExpiredCoupons flips IsActive off for coupons past their end
// date. Expired coupons already fail evaluation; this keeps admin
// listings and the active index honest.
func (m *CronManager) DeactivateExpiredCoupons() {
	jobName := "deactivate_expired_coupons"

	result := m.db.Model(&model.Coupon{}).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date < ?", true, time.Now()).
		Update("is_active", false)
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to deactivate coupons: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("%d coupons deactivated", result.RowsAffected))
}
