package payment

import (
	"errors"
	"strings"

	"github.com/edusouq/payments-api/model"
	"github.com/edusouq/payments-api/utils/middleware"
	"github.com/edusouq/payments-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// iframeShell embeds the gateway's hosted payment page and relays its
// postMessage success/error events to the parent frame, so the checkout
// page can react without polling the iframe. The {{IFRAME_URL}}
// placeholder is substituted before serving.
const iframeShell = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Complete your payment</title>
  <style>
    html, body { margin: 0; height: 100%; }
    iframe { width: 100%; height: 100%; border: 0; }
  </style>
</head>
<body>
  <iframe id="gateway" src="{{IFRAME_URL}}" allow="payment"></iframe>
  <script>
    window.addEventListener("message", function (event) {
      if (!event.data || typeof event.data !== "object") {
        return;
      }
      if (event.data.type === "success" || event.data.type === "error") {
        window.parent.postMessage(event.data, "*");
      }
    });
  </script>
</body>
</html>`

// Iframe handles GET /api/v1/payments/iframe/:merchantOrderId. It
// resolves the stored payment token to the gateway's hosted page and
// serves the relay shell. Ownership is enforced before the token is used.
func (h *PaymentHandler) Iframe(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		return response.Unauthorized(c, "User not authenticated")
	}

	merchantOrderID := c.Params("merchantOrderId")
	if merchantOrderID == "" {
		return response.BadRequest(c, "Missing merchant order id")
	}

	payment, err := h.payments.FindByMerchantOrderID(c.Context(), merchantOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Payment not found")
		}
		return response.InternalServerError(c, "Failed to load payment")
	}

	if payment.UserID != userID {
		return response.Forbidden(c, "You do not have access to this payment")
	}

	if payment.Status != model.PaymentStatusPending {
		return response.BadRequest(c, "Payment is no longer payable")
	}

	if payment.PaymentToken == "" {
		return response.NotFound(c, "No payment session for this order")
	}

	page := strings.ReplaceAll(iframeShell, "{{IFRAME_URL}}", h.gateway.IframeURL(payment.PaymentToken))

	c.Type("html", "utf-8")
	return c.SendString(page)
}
