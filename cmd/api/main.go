package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/Rxkz/whispering-tomes-website/internal/app"
	"github.com/Rxkz/whispering-tomes-website/internal/aws"
	"github.com/Rxkz/whispering-tomes-website/internal/config"
	"github.com/Rxkz/whispering-tomes-website/internal/fulfillment"
	"github.com/Rxkz/whispering-tomes-website/internal/handlers"
	"github.com/Rxkz/whispering-tomes-website/internal/idempotency"
	"github.com/Rxkz/whispering-tomes-website/internal/orders"
	"github.com/Rxkz/whispering-tomes-website/internal/payments"
)

func main() {
	log := app.NewLogger("api")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fatal(log, "failed to load config", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		fatal(log, "invalid api config", err)
	}

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		fatal(log, "failed to init aws clients", err)
	}

	items, pool, err := app.Catalog(ctx, cfg)
	if err != nil {
		fatal(log, "failed to open catalog", err)
	}
	defer pool.Close()

	orderStore := orders.NewStore(clients.DynamoDB, cfg.OrdersTable, cfg.SessionsTable)
	if cfg.OutboxEnabled() {
		orderStore = orderStore.WithOutbox(cfg.FulfillmentTable)
	}

	var dispatcher fulfillment.Dispatcher
	switch cfg.DispatchMode {
	case config.DispatchQueue:
		dispatcher = fulfillment.NewQueueDispatcher(aws.NewPublisher(clients.SQS, cfg.FulfillmentQueueURL))
	default:
		async := fulfillment.NewAsyncDispatcher(app.Fulfiller(cfg, clients, items, log), app.Alerter(cfg, clients), log)
		defer async.Close()
		dispatcher = async
	}

	r := handlers.NewRouter(handlers.WebhookConfig{
		Verifier:   payments.NewVerifier(cfg.StripeWebhookSecret, 0),
		Guard:      idempotency.NewStore(clients.DynamoDB, cfg.SessionsTable),
		Orders:     orderStore,
		Dispatcher: dispatcher,
		Logger:     log,
	}, handlers.CheckoutConfig{
		Checkout: payments.NewCheckoutService(items, payments.NewStripeSessions(cfg.StripeSecretKey), payments.CheckoutConfig{
			Currency:   cfg.CheckoutCurrency,
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
		}),
		Logger: log,
	})

	// RUN_LOCAL=true serves HTTP directly for development.
	if cfg.RunLocal {
		gin.SetMode(gin.DebugMode)
		addr := ":" + cfg.Port
		log.Info("running local server", "addr", addr, "dispatch_mode", cfg.DispatchMode)
		if err := r.Run(addr); err != nil {
			fatal(log, "failed to run local server", err)
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}
