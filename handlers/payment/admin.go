package payment

import (
	"strconv"

	"github.com/edusouq/payments-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// ListPayments handles GET /api/v1/admin/payments, the operator's ledger
// view with status/user filters.
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	status := c.Query("status", "")

	var userID uint
	if parsed, err := strconv.ParseUint(c.Query("user_id"), 10, 32); err == nil {
		userID = uint(parsed)
	}

	pagination := response.CalculatePagination(page, limit, 0)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	payments, total, err := h.payments.List(c.Context(), status, userID, pagination.PerPage, offset)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch payments")
	}

	dtos := make([]fiber.Map, 0, len(payments))
	for i := range payments {
		dto := paymentDTO(&payments[i])
		if payments[i].Course != nil {
			dto["course_title"] = payments[i].Course.Title
		}
		dtos = append(dtos, dto)
	}

	return response.Paginated(c, dtos, response.CalculatePagination(page, limit, total))
}
