package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rxkz/whispering-tomes-website/internal/fulfillment"
	"github.com/Rxkz/whispering-tomes-website/internal/idempotency"
	"github.com/Rxkz/whispering-tomes-website/internal/orders"
	"github.com/Rxkz/whispering-tomes-website/internal/payments"
)

// MaxWebhookBody caps the payload read from the provider.
const MaxWebhookBody = 1 << 20

// SignatureHeader carries the provider's HMAC signature.
const SignatureHeader = "Stripe-Signature"

// EventVerifier authenticates a raw webhook payload.
type EventVerifier interface {
	Verify(payload []byte, signatureHeader string) (payments.PurchaseEvent, error)
}

// SessionGuard is the fast-path duplicate check.
type SessionGuard interface {
	Get(ctx context.Context, sessionID string) (*idempotency.SessionRecord, error)
}

// OrderRecorder persists a paid order together with its session guard row.
type OrderRecorder interface {
	CreatePaid(ctx context.Context, order orders.Order, buyerEmail string) (*orders.Order, error)
}

// WebhookConfig groups dependencies for the webhook handler.
type WebhookConfig struct {
	Verifier   EventVerifier
	Guard      SessionGuard
	Orders     OrderRecorder
	Dispatcher fulfillment.Dispatcher
	Logger     *slog.Logger
}

// RegisterWebhookRoutes registers POST /webhook.
func RegisterWebhookRoutes(r *gin.Engine, cfg WebhookConfig) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r.POST("/webhook", func(c *gin.Context) {
		ctx := c.Request.Context()

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBody))
		if err != nil {
			c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
			return
		}

		ev, err := cfg.Verifier.Verify(payload, c.GetHeader(SignatureHeader))
		if errors.Is(err, payments.ErrMalformedEvent) {
			// authentic but undecodable; a redelivery would carry the same bytes
			log.Error("purchase event unusable", "event_id", ev.ID, "err", err)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		if err != nil {
			log.Warn("webhook rejected", "err", err)
			c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
			return
		}

		if !ev.IsPurchaseCompleted() {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		if err := ev.Validate(); err != nil {
			log.Error("purchase event unusable", "event_id", ev.ID, "session_id", ev.SessionID, "err", err)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		log := log.With("session_id", ev.SessionID, "item_id", ev.ItemID())

		rec, err := cfg.Guard.Get(ctx, ev.SessionID)
		if err != nil {
			// the conditional write below still rejects duplicates
			log.Warn("session guard read failed", "err", err)
		}
		if rec != nil {
			log.Info("duplicate delivery", "order_id", rec.OrderID)
			alreadyProcessed(c)
			return
		}

		order := orders.NewPaidOrder(ev.BuyerID(), ev.ItemID(), ev.SessionID, ev.AmountTotal)
		saved, err := cfg.Orders.CreatePaid(ctx, order, ev.BuyerEmail)
		if errors.Is(err, orders.ErrDuplicateSession) {
			log.Info("duplicate delivery lost the insert race")
			alreadyProcessed(c)
			return
		}
		if err != nil {
			log.Error("order persist failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_persist_failed"})
			return
		}
		log.Info("order recorded", "order_id", saved.OrderID, "total", saved.TotalAmount.StringFixed(2))

		// the acknowledgement is written before any fulfillment work starts
		c.JSON(http.StatusOK, gin.H{"received": true})

		job := fulfillment.Job{
			OrderID:    saved.OrderID,
			SessionID:  saved.SessionID,
			ItemID:     saved.ItemID,
			BuyerEmail: ev.BuyerEmail,
		}
		if err := cfg.Dispatcher.Dispatch(context.WithoutCancel(ctx), job); err != nil {
			log.Error("fulfillment dispatch failed", "order_id", saved.OrderID, "err", err)
		}
	})
}

func alreadyProcessed(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"received": true, "message": "Order already processed"})
}
