package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minicrm/backend/api/routes"
	"github.com/minicrm/backend/internal/config"
	"github.com/minicrm/backend/internal/handlers"
	"github.com/minicrm/backend/internal/locks"
	"github.com/minicrm/backend/internal/logger"
	"github.com/minicrm/backend/internal/repositories"
	"github.com/minicrm/backend/internal/repositories/memory"
	mongorepo "github.com/minicrm/backend/internal/repositories/mongodb"
	"github.com/minicrm/backend/internal/services"
	"github.com/minicrm/backend/pkg/authtoken"
	"github.com/minicrm/backend/pkg/mongodb"
	"github.com/minicrm/backend/pkg/redisclient"
	"github.com/minicrm/backend/pkg/vendorapi"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// repositorySet is the storage backend selected by configuration
type repositorySet struct {
	customers repositories.CustomerRepository
	orders    repositories.OrderRepository
	segments  repositories.SegmentRepository
	campaigns repositories.CampaignRepository
	messages  repositories.MessageRepository
	close     func(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx := context.Background()

	repos, err := openRepositories(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.close(context.Background()); err != nil {
			zlog.Error("failed to close storage", zap.Error(err))
		}
	}()

	var rdb *redis.Client
	var locker locks.Locker = locks.NewLocalLocker()
	if cfg.Redis.URL != "" {
		rdb, err = redisclient.New(ctx, cfg.Redis.URL, zlog)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		locker = locks.NewRedisLocker(rdb, "minicrm:lock:")
	} else {
		zlog.Info("redis not configured; using in-process send locks without rate limiting")
	}

	gateway, err := newGateway(cfg.Vendor)
	if err != nil {
		return err
	}

	engagement := services.NewEngagementScheduler(
		repos.campaigns,
		repos.messages,
		services.RatioEstimator{Open: cfg.Campaign.OpenRate, Click: cfg.Campaign.ClickRate},
		cfg.Campaign.EngagementDelay,
		zlog.Named("engagement"),
	)
	defer engagement.Stop()

	resolver := services.NewAudienceResolver(repos.customers, repos.orders, repos.segments, zlog)
	customerService := services.NewCustomerService(repos.customers, repos.orders, zlog)
	orderService := services.NewOrderService(repos.orders, repos.customers, zlog)
	segmentService := services.NewSegmentService(repos.segments, repos.customers, resolver, zlog)
	campaignService := services.NewCampaignService(repos.campaigns, repos.segments, repos.messages, resolver, services.SendPipeline{
		Dispatcher: services.NewDispatcher(cfg.Campaign.BatchSize, cfg.Vendor.CallTimeout, zlog.Named("dispatcher")),
		Gateway:    gateway,
		Decider:    services.NewRandomDecider(cfg.Campaign.SuccessProbability),
		Locker:     locker,
		LockTTL:    cfg.Redis.LockTTL,
		Engagement: engagement,
	}, zlog)
	messageService := services.NewMessageService(repos.messages, zlog)

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRouter(routes.HandlerDependencies{
		CustomerHandler: handlers.NewCustomerHandler(customerService, zlog),
		OrderHandler:    handlers.NewOrderHandler(orderService, zlog),
		SegmentHandler:  handlers.NewSegmentHandler(segmentService, zlog),
		CampaignHandler: handlers.NewCampaignHandler(campaignService, zlog),
		MessageHandler:  handlers.NewMessageHandler(messageService, zlog),
		Signer:          authtoken.NewSigner(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiresIn)*time.Second),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Log:             zlog.Named("http"),
		Redis:           rdb,
		SendRateLimit:   cfg.Redis.SendRateLimit,
		SendRateWindow:  cfg.Redis.SendRateWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("storage", cfg.Storage),
			zap.String("vendor", cfg.Vendor.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	zlog.Info("server exiting")
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*repositorySet, error) {
	if cfg.Storage == config.StorageMemory {
		zlog.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &repositorySet{
			customers: store.Customers,
			orders:    store.Orders,
			segments:  store.Segments,
			campaigns: store.Campaigns,
			messages:  store.Messages,
			close:     func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.ConnectTimeout, zlog)
	if err != nil {
		return nil, err
	}
	db := client.Database()
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	return &repositorySet{
		customers: mongorepo.NewCustomerRepository(db),
		orders:    mongorepo.NewOrderRepository(db),
		segments:  mongorepo.NewSegmentRepository(db),
		campaigns: mongorepo.NewCampaignRepository(db),
		messages:  mongorepo.NewMessageRepository(db),
		close:     client.Disconnect,
	}, nil
}

func newGateway(cfg config.VendorConfig) (vendorapi.Gateway, error) {
	switch cfg.Mode {
	case "simulated", "":
		return vendorapi.NewSimulatedGateway(cfg.MinDelay, cfg.MaxDelay, cfg.SuccessProbability), nil
	case "http":
		return vendorapi.NewHTTPGateway(cfg.BaseURL, cfg.APIKey, cfg.CallTimeout), nil
	case "mock":
		return vendorapi.NewMockGateway("MINICRM"), nil
	}
	return nil, fmt.Errorf("unknown vendor mode %q", cfg.Mode)
}
