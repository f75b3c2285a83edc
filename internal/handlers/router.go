package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with every route the API serves.
func NewRouter(webhook WebhookConfig, checkout CheckoutConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterWebhookRoutes(r, webhook)
	RegisterCheckoutRoutes(r, checkout)

	return r
}
