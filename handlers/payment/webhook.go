package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/edusouq/payments-api/gateway"
	"github.com/edusouq/payments-api/services"
	"github.com/edusouq/payments-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

const archiveTimeout = 10 * time.Second

// Webhook handles POST /api/v1/payments/webhook, the gateway's
// server-to-server transaction callback. The response code is the
// contract: 200 stops retries, 401/404 mark deliveries that retrying
// cannot fix, 500 asks the gateway to retry (safe, the reconciler's
// idempotency gate absorbs replays).
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	var event gateway.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return response.BadRequest(c, "Malformed webhook payload")
	}

	// Non-transaction events are not reconciliation-relevant; acknowledge
	// so the gateway does not retry them.
	if event.Type != gateway.EventTypeTransaction {
		return c.JSON(fiber.Map{"received": true})
	}

	signature := c.Get(gateway.HMACHeader)
	if signature == "" {
		signature = c.Query("hmac")
	}

	merchantOrderID := event.Obj.Order.MerchantOrderID

	if err := h.verifier.Verify(&event.Obj, signature); err != nil {
		// Zero mutations on a bad signature; keep the payload for
		// security review.
		log.Printf("[WEBHOOK] rejected signature for order %s (merchant ref %s)",
			event.Obj.GatewayOrderID(), merchantOrderID)
		h.archiveAsync(merchantOrderID, false, body)
		return response.Unauthorized(c, "Invalid signature")
	}

	h.archiveAsync(merchantOrderID, true, body)

	outcome, err := h.reconciler.HandleEvent(c.Context(), &event)
	if err != nil {
		if errors.Is(err, services.ErrUnknownOrder) {
			log.Printf("[WEBHOOK] unknown gateway order %s", event.Obj.GatewayOrderID())
			return response.NotFound(c, "Unknown order")
		}
		log.Printf("[WEBHOOK] reconcile failed for order %s: %v", event.Obj.GatewayOrderID(), err)
		return response.InternalServerError(c, "Failed to process webhook")
	}

	log.Printf("[WEBHOOK] order %s: %s", event.Obj.GatewayOrderID(), outcome)
	return c.JSON(fiber.Map{"received": true})
}

// archiveAsync ships the payload to the audit archive off the request
// path. The webhook response must not depend on archive availability.
func (h *PaymentHandler) archiveAsync(merchantOrderID string, verified bool, payload []byte) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[WEBHOOK] archive panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		h.archiver.ArchiveWebhook(ctx, merchantOrderID, verified, payload)
	}()
}
