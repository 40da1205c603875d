package cron

import (
	"log"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron *cron.Cron
	db   *gorm.DB
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron: c,
		db:   db,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Every hour: report stale pending payments (webhook never arrived)
	_, err := m.cron.AddFunc("0 0 * * * *", func() {
		m.logJobStart("report_stale_pending_payments")
		m.ReportStalePendingPayments()
	})
	if err != nil {
		return err
	}

	// Daily at 3 AM: deactivate coupons past their end date
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.logJobStart("deactivate_expired_coupons")
		m.DeactivateExpiredCoupons()
	})
	if err != nil {
		return err
	}

	return nil
}

func (m *CronManager) logJobStart(name string) {
	log.Printf("[CRON] Starting job: %s", name)
}

func (m *CronManager) logJobComplete(name, detail string) {
	log.Printf("[CRON] Completed job: %s (%s)", name, detail)
}

func (m *CronManager) logJobError(name string, err error) {
	log.Printf("[CRON] Job %s failed: %v", name, err)
}
