package wallet

import (
	"strconv"

	"github.com/edusouq/payments-api/model"
	"github.com/edusouq/payments-api/services"
	"github.com/edusouq/payments-api/utils/middleware"
	"github.com/edusouq/payments-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// WalletHandler handles wallet balance and history requests
type WalletHandler struct {
	db     *gorm.DB
	wallet *services.WalletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(db *gorm.DB, wallet *services.WalletService) *WalletHandler {
	return &WalletHandler{
		db:     db,
		wallet: wallet,
	}
}

// GetWallet handles GET /api/v1/wallet: the derived balance plus the
// ledger entries it derives from, newest first.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	pagination := response.CalculatePagination(page, limit, 0)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	balance, err := h.wallet.Balance(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to derive wallet balance")
	}

	entries, total, err := h.wallet.History(c.Context(), userID, pagination.PerPage, offset)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch wallet history")
	}

	transactions := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		transactions = append(transactions, walletTxnDTO(&e))
	}

	return response.Success(c, fiber.Map{
		"balance":      balance.InexactFloat64(),
		"transactions": transactions,
		"pagination":   response.CalculatePagination(page, limit, total),
	})
}

func walletTxnDTO(t *model.WalletTransaction) fiber.Map {
	return fiber.Map{
		"id":                 t.ID,
		"amount":             t.Amount.InexactFloat64(),
		"type":               t.Type,
		"related_payment_id": t.RelatedPaymentID,
		"description":        t.Description,
		"created_at":         t.CreatedAt,
	}
}
