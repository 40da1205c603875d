package services

import (
	"testing"

	"github.com/edusouq/payments-api/model"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the production
// schema. A single connection is enforced so the :memory: database is
// shared across the pool.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Payment{},
		&model.Coupon{},
		&model.Enrollment{},
		&model.WalletTransaction{},
	)
	if err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}

	return db
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := model.User{
		Email:     "student@example.com",
		FirstName: "Test",
		LastName:  "Student",
		Role:      model.RoleStudent,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func seedCourse(t *testing.T, db *gorm.DB, price float64, cashbackType string, cashbackValue float64) *model.Course {
	t.Helper()
	course := model.Course{
		Title:         "Advanced Algorithms",
		Price:         decimal.NewFromFloat(price),
		Currency:      "EGP",
		IsPublished:   true,
		CashbackType:  cashbackType,
		CashbackValue: decimal.NewFromFloat(cashbackValue),
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return &course
}

func seedPendingPayment(t *testing.T, db *gorm.DB, user *model.User, course *model.Course, amount float64, gatewayOrderID string) *model.Payment {
	t.Helper()
	payment := model.Payment{
		UserID:          user.ID,
		CourseID:        &course.ID,
		MerchantOrderID: "mo-" + gatewayOrderID,
		GatewayOrderID:  gatewayOrderID,
		Amount:          decimal.NewFromFloat(amount),
		Currency:        "EGP",
		Status:          model.PaymentStatusPending,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return &payment
}
