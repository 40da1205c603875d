package payment

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/edusouq/payments-api/gateway"
	"github.com/edusouq/payments-api/model"
	"github.com/edusouq/payments-api/services"
	"github.com/edusouq/payments-api/utils/cache"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// newStatusApp mounts the status route behind a stub that injects the
// authenticated user id the way the auth middleware does.
func newStatusApp(t *testing.T, db *gorm.DB, userID uint) *fiber.App {
	t.Helper()

	wallet := services.NewWalletService(db)
	coupons := services.NewCouponService(db)
	reconciler := services.NewReconciler(db, cache.NewMemoryCache(), wallet, coupons)
	status := services.NewStatusService(db)
	handler := NewPaymentHandler(db, nil, reconciler, status, gateway.NewVerifier(testHMACSecret), nil, nil)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/api/v1/payments/status", handler.Status)
	return app
}

func getStatus(t *testing.T, app *fiber.App, query string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/payments/status?"+query, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("perform request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("parse response %q: %v", raw, err)
	}
	return resp.StatusCode, parsed
}

func TestStatusReturnsPaymentWithPollingMetadata(t *testing.T) {
	db := newHandlerTestDB(t)
	_, _, payment := seedWebhookPayment(t, db, "92001")
	app := newStatusApp(t, db, payment.UserID)

	code, body := getStatus(t, app, "merchantOrderId="+payment.MerchantOrderID)
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing data envelope in %v", body)
	}
	if data["status"] != model.PaymentStatusPending {
		t.Errorf("payment status = %v, want pending", data["status"])
	}

	meta, ok := data["_metadata"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing _metadata in %v", data)
	}
	if meta["shouldPoll"] != true {
		t.Errorf("shouldPoll = %v, want true for a fresh pending payment", meta["shouldPoll"])
	}
	if meta["pollIntervalMs"] != float64(3000) {
		t.Errorf("pollIntervalMs = %v, want 3000", meta["pollIntervalMs"])
	}
}

func TestStatusOwnershipForbidden(t *testing.T) {
	db := newHandlerTestDB(t)
	_, _, payment := seedWebhookPayment(t, db, "92002")

	other := model.User{Email: "other@example.com", Role: model.RoleStudent}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed second user: %v", err)
	}

	app := newStatusApp(t, db, other.ID)
	code, body := getStatus(t, app, "merchantOrderId="+payment.MerchantOrderID)
	if code != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", code)
	}
	// The other user's payment data must not leak on the denial.
	if _, leaked := body["data"]; leaked {
		t.Errorf("forbidden response leaked data: %v", body)
	}
}

func TestStatusRequiresAQueryParameter(t *testing.T) {
	db := newHandlerTestDB(t)
	_, _, payment := seedWebhookPayment(t, db, "92003")
	app := newStatusApp(t, db, payment.UserID)

	code, _ := getStatus(t, app, "")
	if code != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestStatusUnknownPaymentNotFound(t *testing.T) {
	db := newHandlerTestDB(t)
	user := model.User{Email: "student@example.com", Role: model.RoleStudent}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	app := newStatusApp(t, db, user.ID)

	code, _ := getStatus(t, app, "merchantOrderId=mo-missing")
	if code != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}
