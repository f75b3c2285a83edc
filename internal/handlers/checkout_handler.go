package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rxkz/whispering-tomes-website/internal/catalog"
	"github.com/Rxkz/whispering-tomes-website/internal/payments"
	"github.com/Rxkz/whispering-tomes-website/internal/validation"
)

// CheckoutCreator starts a hosted checkout for one item.
type CheckoutCreator interface {
	CreateSession(ctx context.Context, req payments.CheckoutRequest) (string, error)
}

// CheckoutConfig groups dependencies for the checkout handler.
type CheckoutConfig struct {
	Checkout CheckoutCreator
	Logger   *slog.Logger
}

// RegisterCheckoutRoutes registers POST /create-checkout-session.
func RegisterCheckoutRoutes(r *gin.Engine, cfg CheckoutConfig) {
	v := validation.New()
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r.POST("/create-checkout-session", func(c *gin.Context) {
		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		url, err := cfg.Checkout.CreateSession(c.Request.Context(), payments.CheckoutRequest{
			ItemID:     req.ItemID,
			BuyerID:    req.BuyerID,
			BuyerEmail: req.BuyerEmail,
		})
		if errors.Is(err, catalog.ErrItemNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "item_not_found"})
			return
		}
		if err != nil {
			log.Error("checkout session create failed", "item_id", req.ItemID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	})
}
