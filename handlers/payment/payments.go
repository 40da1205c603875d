package payment

import (
	"errors"

	"github.com/edusouq/payments-api/audit"
	"github.com/edusouq/payments-api/gateway"
	"github.com/edusouq/payments-api/model"
	"github.com/edusouq/payments-api/services"
	"github.com/edusouq/payments-api/utils/middleware"
	"github.com/edusouq/payments-api/utils/response"
	"github.com/edusouq/payments-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PaymentHandler handles checkout, webhook, status and iframe requests
type PaymentHandler struct {
	db         *gorm.DB
	validator  *validation.Validator
	payments   *services.PaymentService
	reconciler *services.Reconciler
	status     *services.StatusService
	verifier   *gateway.Verifier
	gateway    services.GatewayClient
	archiver   audit.Archiver
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	db *gorm.DB,
	payments *services.PaymentService,
	reconciler *services.Reconciler,
	status *services.StatusService,
	verifier *gateway.Verifier,
	gw services.GatewayClient,
	archiver audit.Archiver,
) *PaymentHandler {
	if archiver == nil {
		archiver = audit.NopArchiver{}
	}
	return &PaymentHandler{
		db:         db,
		validator:  validation.NewValidator(),
		payments:   payments,
		reconciler: reconciler,
		status:     status,
		verifier:   verifier,
		gateway:    gw,
		archiver:   archiver,
	}
}

// CheckoutRequest represents the request body for initiating checkout
type CheckoutRequest struct {
	CourseID   uint   `json:"course_id" validate:"required,min=1"`
	CouponCode string `json:"coupon_code" validate:"omitempty,min=2,max=50"`
	UseWallet  bool   `json:"use_wallet"`
}

// Checkout handles POST /api/v1/payments/checkout
func (h *PaymentHandler) Checkout(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return response.Unauthorized(c, "User not found")
	}

	result, err := h.payments.Checkout(c.Context(), &user, req.CourseID, req.CouponCode, req.UseWallet)
	if err != nil {
		var couponErr *services.CouponRejectedError
		var gatewayErr *gateway.Error
		switch {
		case errors.As(err, &couponErr):
			return response.BadRequest(c, couponErr.Message)
		case errors.Is(err, services.ErrCourseNotAvailable):
			return response.NotFound(c, "Course not available for purchase")
		case errors.Is(err, services.ErrAlreadyEnrolled):
			return response.BadRequest(c, "You are already enrolled in this course")
		case errors.Is(err, services.ErrInsufficientBalance):
			return response.BadRequest(c, "Insufficient wallet balance")
		case errors.As(err, &gatewayErr):
			return response.Error(c, fiber.StatusBadGateway,
				"Payment gateway is unavailable, please try again", gateway.ErrorCode)
		default:
			return response.InternalServerError(c, "Failed to initiate checkout")
		}
	}

	data := fiber.Map{
		"payment":     paymentDTO(result.Payment),
		"wallet_only": result.WalletOnly,
	}
	if !result.WalletOnly {
		data["iframe_url"] = result.IframeURL
	}

	return response.Created(c, data)
}

// paymentDTO shapes a payment for API responses. Amount goes out as a
// plain number, and the payment token and raw gateway blob stay private.
func paymentDTO(p *model.Payment) fiber.Map {
	dto := fiber.Map{
		"id":                p.ID,
		"user_id":           p.UserID,
		"course_id":         p.CourseID,
		"merchant_order_id": p.MerchantOrderID,
		"amount":            p.Amount.InexactFloat64(),
		"wallet_applied":    p.WalletApplied.InexactFloat64(),
		"currency":          p.Currency,
		"status":            p.Status,
		"created_at":        p.CreatedAt,
		"completed_at":      p.CompletedAt,
	}
	if p.GatewayTransactionID != nil {
		dto["gateway_transaction_id"] = *p.GatewayTransactionID
	}
	return dto
}
