package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rxkz/whispering-tomes-website/internal/fulfillment"
	"github.com/Rxkz/whispering-tomes-website/internal/outbox"
)

type outboxAPI interface {
	Get(ctx context.Context, orderID string) (*outbox.Record, error)
	ListUndelivered(ctx context.Context, limit int) ([]outbox.Record, error)
}

type deps struct {
	outbox outboxAPI
	runner fulfillment.Runner     // nil without a catalog
	queue  fulfillment.Dispatcher // nil without a queue url
}

type depsLoader func(ctx context.Context) (*deps, func(), error)

func pendingCmd(load depsLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List paid orders whose fulfillment is PENDING or FAILED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			d, cleanup, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			recs, err := d.outbox.ListUndelivered(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			return writeTable(cmd.OutOrStdout(), recs)
		},
	}

	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cmd.Flags().IntP("limit", "n", 0, "Maximum rows (0 = all)")

	return cmd
}

func writeTable(out io.Writer, recs []outbox.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(out, "no undelivered orders")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSESSION\tITEM\tSTATUS\tATTEMPTS\tSTAGE\tUPDATED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.OrderID, r.SessionID, r.ItemID, r.Status, r.Attempts, dash(r.LastStage), r.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func redriveCmd(load depsLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redrive [order-id]",
		Short: "Re-run fulfillment for one order",
		Long: `Re-run the asset resolver and notifier for a recorded order.
By default the job runs in this process; --enqueue hands it to the worker queue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enqueue, _ := cmd.Flags().GetBool("enqueue")
			force, _ := cmd.Flags().GetBool("force")
			ctx := cmd.Context()

			d, cleanup, err := load(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := d.outbox.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no fulfillment row for order %s", args[0])
			}
			if rec.Status == outbox.StatusDelivered && !force {
				return fmt.Errorf("order %s was already delivered; pass --force to send again", rec.OrderID)
			}

			job := fulfillment.Job{
				OrderID:    rec.OrderID,
				SessionID:  rec.SessionID,
				ItemID:     rec.ItemID,
				BuyerEmail: rec.BuyerEmail,
			}
			if enqueue {
				if d.queue == nil {
					return errors.New("--enqueue needs fulfillment_queue_url")
				}
				if err := d.queue.Dispatch(ctx, job); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued order %s\n", rec.OrderID)
				return nil
			}

			if d.runner == nil {
				return errors.New("inline redrive needs database_url")
			}
			if err := d.runner.Fulfill(ctx, job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered order %s to %s\n", rec.OrderID, rec.BuyerEmail)
			return nil
		},
	}

	cmd.Flags().Bool("enqueue", false, "Publish to the fulfillment queue instead of running inline")
	cmd.Flags().Bool("force", false, "Re-send even if the row is DELIVERED")

	return cmd
}
