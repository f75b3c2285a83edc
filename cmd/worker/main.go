package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Rxkz/whispering-tomes-website/internal/app"
	"github.com/Rxkz/whispering-tomes-website/internal/aws"
	"github.com/Rxkz/whispering-tomes-website/internal/config"
)

func main() {
	log := app.NewLogger("worker")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.Error("failed to init aws clients", "err", err)
		os.Exit(1)
	}
	items, pool, err := app.Catalog(ctx, cfg)
	if err != nil {
		log.Error("failed to open catalog", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	p := NewProcessor(app.Fulfiller(cfg, clients, items, log), app.Alerter(cfg, clients), log)
	if box := app.Outbox(cfg, clients); box != nil {
		p.WithDeliveries(box)
	}

	// RUN_LOCAL=true runs a single simulated SQS event, body from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"order_id":"local-order-1","session_id":"cs_local_1","item_id":"1","buyer_email":"reader@example.com"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		}
		resp, _ := p.Handle(ctx, event)
		if len(resp.BatchItemFailures) > 0 {
			log.Error("local job failed")
			os.Exit(1)
		}
		return
	}

	lambda.Start(p.Handle)
}
