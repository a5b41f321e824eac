// Package app wires the order lifecycle components from configuration. Both binaries
// share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
	"github.com/imrishuroy/go-storefront-orderflow/internal/checkout"
	"github.com/imrishuroy/go-storefront-orderflow/internal/config"
	"github.com/imrishuroy/go-storefront-orderflow/internal/handlers"
	"github.com/imrishuroy/go-storefront-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-storefront-orderflow/internal/logging"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
	"github.com/imrishuroy/go-storefront-orderflow/internal/remote"
	"github.com/imrishuroy/go-storefront-orderflow/internal/storage"
	"github.com/imrishuroy/go-storefront-orderflow/internal/tracker"
)

// redisService namespaces slot keys in a shared redis.
const redisService = "storefront"

type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Queue    *orders.Queue
	Checkout *checkout.Service
	Tracker  *tracker.Tracker
	Sessions *cart.Sessions

	clients *aws.AWSClients
	closers []func() error
}

// New builds every component. Call Close when done.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logging.OrNop(logger),
		Sessions: cart.NewSessions(),
	}

	slot, err := a.slot(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Queue = orders.NewQueue(slot, a.Logger.Named("queue"))

	submitter, fetcher, err := a.transport(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	ledger, err := a.ledger(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics, err := a.metrics(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	factory := orders.NewFactory(cfg.ShippingFee)
	a.Checkout = checkout.NewService(factory, a.Queue, submitter, ledger, metrics, cfg.RequestTimeout, a.Logger.Named("checkout"))
	a.Tracker = tracker.New(a.Queue, fetcher, a.Logger.Named("tracker"))

	a.Logger.Info("order lifecycle ready",
		zap.String("storage", cfg.StorageBackend),
		zap.String("slot", cfg.SlotName),
		zap.String("sync", cfg.SyncTransport),
		zap.Bool("metrics", cfg.MetricsEnabled),
	)
	return a, nil
}

// Router returns the HTTP API.
func (a *App) Router() *gin.Engine {
	return handlers.NewRouter(handlers.HandlerConfig{
		Checkout:  a.Checkout,
		Tracker:   a.Tracker,
		Sessions:  a.Sessions,
		JWTSecret: []byte(a.Config.JWTSecret),
		Logger:    a.Logger.Named("http"),
	})
}

// Close releases storage connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) awsClients(ctx context.Context) (*aws.AWSClients, error) {
	if a.clients != nil {
		return a.clients, nil
	}
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("init aws clients: %w", err)
	}
	a.clients = clients
	return clients, nil
}

func (a *App) slot(ctx context.Context) (storage.Slot, error) {
	cfg := a.Config
	switch cfg.StorageBackend {
	case "file":
		return storage.NewFileSlot(cfg.FilePath), nil
	case "sqlite":
		s, err := storage.OpenSQLite(cfg.SQLitePath, cfg.SlotName)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case "redis":
		s := storage.NewRedisSlot(cfg.RedisAddr, redisService, cfg.SlotName)
		a.closers = append(a.closers, s.Close)
		return s, nil
	case "dynamodb":
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewDynamoSlot(clients.DynamoDB, cfg.SlotTable, cfg.SlotName), nil
	case "memory":
		a.Logger.Warn("orders are kept in memory only and are lost on restart")
		return storage.NewMemorySlot(), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

// transport picks the submitter and, when the backend API is reachable and knows the
// stored remote ids, the status source.
func (a *App) transport(ctx context.Context) (checkout.Submitter, remote.StatusFetcher, error) {
	cfg := a.Config
	var httpClient *remote.HTTPClient
	if cfg.APIBaseURL != "" {
		httpClient = remote.NewHTTPClient(cfg.APIBaseURL, cfg.RequestTimeout, cfg.CustomerEmail, a.Logger.Named("remote"))
	}
	var fetcher remote.StatusFetcher
	if httpClient != nil {
		fetcher = httpClient
	}

	switch cfg.SyncTransport {
	case "http":
		if httpClient == nil {
			return nil, nil, errors.New("API_BASE_URL is required when SYNC_TRANSPORT=http")
		}
		return httpClient, fetcher, nil
	case "sqs":
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, nil, err
		}
		publisher := aws.NewPublisher(clients.SQS, cfg.QueueURL)
		if fetcher != nil {
			// the stored remote id is an SQS message id, which the status endpoint does not know
			a.Logger.Info("status polling disabled for SYNC_TRANSPORT=sqs")
		}
		return remote.NewQueueSubmitter(publisher, cfg.CustomerEmail), nil, nil
	case "none":
		return remote.NoopSubmitter{}, fetcher, nil
	default:
		return nil, nil, fmt.Errorf("unknown SYNC_TRANSPORT %q", cfg.SyncTransport)
	}
}

func (a *App) ledger(ctx context.Context) (checkout.Ledger, error) {
	if a.Config.LedgerTable == "" {
		return idempotency.NewGuard(), nil
	}
	clients, err := a.awsClients(ctx)
	if err != nil {
		return nil, err
	}
	return idempotency.NewStore(clients.DynamoDB, a.Config.LedgerTable, a.Config.LedgerTTL), nil
}

func (a *App) metrics(ctx context.Context) (checkout.MetricsRecorder, error) {
	if !a.Config.MetricsEnabled {
		return checkout.NopMetrics{}, nil
	}
	clients, err := a.awsClients(ctx)
	if err != nil {
		return nil, err
	}
	return aws.NewMetrics(clients.CloudWatch, a.Config.MetricsNamespace), nil
}
