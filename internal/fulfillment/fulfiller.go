package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Rxkz/whispering-tomes-website/internal/assets"
	"github.com/Rxkz/whispering-tomes-website/internal/catalog"
	"github.com/Rxkz/whispering-tomes-website/internal/notify"
)

// AssetResolver mints a download link for an item.
type AssetResolver interface {
	Resolve(ctx context.Context, itemID string) (*catalog.Item, assets.SignedLink, error)
	TTL() time.Duration
}

// ReceiptSender delivers the confirmation email.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, r notify.Receipt) error
}

// Outbox records delivery state. Optional.
type Outbox interface {
	MarkDelivered(ctx context.Context, orderID string) error
	MarkFailed(ctx context.Context, orderID, stage, note string) error
}

// Fulfiller resolves the asset and sends the receipt for one order.
type Fulfiller struct {
	resolver AssetResolver
	sender   ReceiptSender
	outbox   Outbox
	log      *slog.Logger
}

// NewFulfiller wires a Fulfiller. outbox may be nil.
func NewFulfiller(resolver AssetResolver, sender ReceiptSender, outbox Outbox, log *slog.Logger) *Fulfiller {
	if log == nil {
		log = slog.Default()
	}
	return &Fulfiller{resolver: resolver, sender: sender, outbox: outbox, log: log}
}

// Fulfill runs the asset resolver then the notifier. A failed stage stops the
// job and is returned as a Failure; the order itself stays paid.
func (f *Fulfiller) Fulfill(ctx context.Context, job Job) error {
	log := f.log.With("order_id", job.OrderID, "session_id", job.SessionID, "item_id", job.ItemID)

	item, link, err := f.resolver.Resolve(ctx, job.ItemID)
	if err != nil {
		return f.fail(ctx, log, job, StageResolve, err)
	}
	log.Info("download link minted", "expires_at", link.ExpiresAt)

	receipt := notify.Receipt{
		BuyerEmail: job.BuyerEmail,
		ItemTitle:  item.Title,
		OrderID:    job.OrderID,
		Link:       link,
		Validity:   f.resolver.TTL(),
	}
	if err := f.sender.SendReceipt(ctx, receipt); err != nil {
		return f.fail(ctx, log, job, StageNotify, err)
	}
	log.Info("receipt sent")

	if f.outbox != nil {
		if err := f.outbox.MarkDelivered(ctx, job.OrderID); err != nil {
			log.Error("outbox mark delivered failed", "err", err)
		}
	}
	return nil
}

func (f *Fulfiller) fail(ctx context.Context, log *slog.Logger, job Job, stage string, err error) error {
	log.Error("fulfillment failed", "stage", stage, "err", err)
	if f.outbox != nil {
		if oerr := f.outbox.MarkFailed(ctx, job.OrderID, stage, err.Error()); oerr != nil {
			log.Error("outbox mark failed failed", "err", oerr)
		}
	}
	return Failure{Job: job, Stage: stage, Err: err}
}

// Permanent reports whether retrying the job cannot succeed.
func Permanent(err error) bool {
	return errors.Is(err, catalog.ErrItemNotFound)
}
