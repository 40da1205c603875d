package payment

import (
	"errors"
	"strconv"

	"github.com/edusouq/payments-api/services"
	"github.com/edusouq/payments-api/utils/middleware"
	"github.com/edusouq/payments-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// Status handles GET /api/v1/payments/status. Strictly a read: a pending
// payment stays pending here no matter how stale it looks; only the
// webhook or an operator resolves it.
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		return response.Unauthorized(c, "User not authenticated")
	}

	query := services.StatusQuery{
		MerchantOrderID: c.Query("merchantOrderId"),
	}
	if courseID, err := strconv.ParseUint(c.Query("courseId"), 10, 32); err == nil {
		query.CourseID = uint(courseID)
	}
	if txnID, err := strconv.ParseInt(c.Query("transactionId"), 10, 64); err == nil {
		query.TransactionID = txnID
	}

	if query.IsEmpty() {
		return response.BadRequest(c,
			"At least one of courseId, merchantOrderId or transactionId is required")
	}

	result, err := h.status.Resolve(c.Context(), userID, query)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			return response.NotFound(c, "Payment not found")
		case errors.Is(err, services.ErrNotOwner):
			return response.Forbidden(c, "You do not have access to this payment")
		default:
			return response.InternalServerError(c, "Failed to resolve payment status")
		}
	}

	data := paymentDTO(result.Payment)
	data["_metadata"] = result.Metadata

	return response.Success(c, data)
}
