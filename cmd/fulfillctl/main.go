package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rxkz/whispering-tomes-website/internal/app"
	"github.com/Rxkz/whispering-tomes-website/internal/aws"
	"github.com/Rxkz/whispering-tomes-website/internal/config"
	"github.com/Rxkz/whispering-tomes-website/internal/fulfillment"
)

var Version = "dev"

func main() {
	if err := newRootCmd(loadDeps).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(load depsLoader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fulfillctl",
		Short:         "Inspect and re-drive paid orders whose download email was not delivered",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(pendingCmd(load))
	rootCmd.AddCommand(redriveCmd(load))

	return rootCmd
}

// loadDeps builds the real collaborators from config and AWS.
func loadDeps(ctx context.Context) (*deps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.OutboxEnabled() {
		return nil, nil, errors.New("fulfillment_table is not configured; nothing is tracked")
	}
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return nil, nil, err
	}
	log := app.NewLogger("fulfillctl")

	d := &deps{outbox: app.Outbox(cfg, clients)}
	cleanup := func() {}

	if cfg.FulfillmentQueueURL != "" {
		d.queue = fulfillment.NewQueueDispatcher(aws.NewPublisher(clients.SQS, cfg.FulfillmentQueueURL))
	}
	if cfg.DatabaseURL != "" {
		items, pool, err := app.Catalog(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		cleanup = pool.Close
		d.runner = app.Fulfiller(cfg, clients, items, log)
	}
	return d, cleanup, nil
}
