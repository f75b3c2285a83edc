// Package app builds the collaborators shared by the api, worker and
// fulfillctl binaries from a loaded Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rxkz/whispering-tomes-website/internal/alerts"
	"github.com/Rxkz/whispering-tomes-website/internal/assets"
	"github.com/Rxkz/whispering-tomes-website/internal/aws"
	"github.com/Rxkz/whispering-tomes-website/internal/catalog"
	"github.com/Rxkz/whispering-tomes-website/internal/config"
	"github.com/Rxkz/whispering-tomes-website/internal/fulfillment"
	"github.com/Rxkz/whispering-tomes-website/internal/notify"
	"github.com/Rxkz/whispering-tomes-website/internal/outbox"
)

// NewLogger returns the JSON logger every binary writes to stdout.
func NewLogger(service string) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

// Outbox returns the fulfillment outbox store, or nil when no table is configured.
func Outbox(cfg *config.Config, clients *aws.AWSClients) *outbox.Store {
	if !cfg.OutboxEnabled() {
		return nil
	}
	return outbox.NewStore(clients.DynamoDB, cfg.FulfillmentTable)
}

// Alerter returns the CloudWatch alerter, or nil when alerts are disabled.
func Alerter(cfg *config.Config, clients *aws.AWSClients) fulfillment.Alerter {
	if !cfg.AlertsEnabled {
		return nil
	}
	return alerts.NewCloudWatchAlerter(clients.CloudWatch, cfg.MetricsNamespace)
}

// Catalog opens the Postgres pool backing the item catalog. Close the pool on shutdown.
func Catalog(ctx context.Context, cfg *config.Config) (*catalog.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("database_url is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog pool: %w", err)
	}
	return catalog.NewStore(pool), pool, nil
}

// Fulfiller wires the asset resolver and notifier over items.
func Fulfiller(cfg *config.Config, clients *aws.AWSClients, items assets.ItemReader, log *slog.Logger) *fulfillment.Fulfiller {
	resolver := assets.NewResolver(items, clients.S3Presign, cfg.AssetBucket, cfg.AssetLinkTTL)
	mailer := notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SenderEmail, cfg.SenderName)

	var box fulfillment.Outbox
	if s := Outbox(cfg, clients); s != nil {
		box = s
	}
	return fulfillment.NewFulfiller(resolver, notify.NewNotifier(mailer), box, log)
}
