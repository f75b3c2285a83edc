package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Dispatch modes for post-response fulfillment.
const (
	DispatchInline = "inline"
	DispatchQueue  = "queue"
)

// Config is everything the binaries read at start-up.
type Config struct {
	Port     string `mapstructure:"port"`
	RunLocal bool   `mapstructure:"run_local"`

	StripeSecretKey     string `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string `mapstructure:"stripe_webhook_secret"`
	CheckoutCurrency    string `mapstructure:"checkout_currency"`
	CheckoutSuccessURL  string `mapstructure:"checkout_success_url"`
	CheckoutCancelURL   string `mapstructure:"checkout_cancel_url"`

	OrdersTable         string `mapstructure:"orders_table"`
	SessionsTable       string `mapstructure:"sessions_table"`
	FulfillmentTable    string `mapstructure:"fulfillment_table"` // empty disables the outbox
	FulfillmentQueueURL string `mapstructure:"fulfillment_queue_url"`
	DispatchMode        string `mapstructure:"dispatch_mode"`

	DatabaseURL  string        `mapstructure:"database_url"`
	AssetBucket  string        `mapstructure:"asset_bucket"`
	AssetLinkTTL time.Duration `mapstructure:"asset_link_ttl"`

	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	SenderEmail    string `mapstructure:"sender_email"`
	SenderName     string `mapstructure:"sender_name"`

	MetricsNamespace string `mapstructure:"metrics_namespace"`
	AlertsEnabled    bool   `mapstructure:"alerts_enabled"`
}

var defaults = map[string]any{
	"port":                  "8080",
	"run_local":             false,
	"stripe_secret_key":     "",
	"stripe_webhook_secret": "",
	"checkout_currency":     "usd",
	"checkout_success_url":  "http://localhost:5173/success?session_id={CHECKOUT_SESSION_ID}",
	"checkout_cancel_url":   "http://localhost:5173/cancel",
	"orders_table":          "orders",
	"sessions_table":        "checkout_sessions",
	"fulfillment_table":     "",
	"fulfillment_queue_url": "",
	"dispatch_mode":         DispatchInline,
	"database_url":          "",
	"asset_bucket":          "ebook",
	"asset_link_ttl":        24 * time.Hour,
	"sendgrid_api_key":      "",
	"sender_email":          "orders@whisperingtomes.com",
	"sender_name":           "Whispering Tomes",
	"metrics_namespace":     "WhisperingTomes/Orders",
	"alerts_enabled":        false,
}

// Load reads defaults, then the optional file named by CONFIG_FILE, then the
// environment (ORDERS_TABLE, STRIPE_WEBHOOK_SECRET, ...).
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DispatchMode {
	case DispatchInline:
	case DispatchQueue:
		if c.FulfillmentQueueURL == "" {
			return fmt.Errorf("dispatch_mode %q needs fulfillment_queue_url", c.DispatchMode)
		}
	default:
		return fmt.Errorf("unknown dispatch_mode %q", c.DispatchMode)
	}
	if c.AssetLinkTTL <= 0 {
		return fmt.Errorf("asset_link_ttl must be positive, got %s", c.AssetLinkTTL)
	}
	return nil
}

// ValidateAPI checks the settings only the webhook-serving binary needs.
func (c *Config) ValidateAPI() error {
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("stripe_webhook_secret is required")
	}
	return nil
}

// OutboxEnabled reports whether fulfillment state is tracked.
func (c *Config) OutboxEnabled() bool { return c.FulfillmentTable != "" }
