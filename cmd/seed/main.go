package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/minicrm/backend/internal/config"
	"github.com/minicrm/backend/internal/importer"
	"github.com/minicrm/backend/internal/logger"
	mongorepo "github.com/minicrm/backend/internal/repositories/mongodb"
	"github.com/minicrm/backend/internal/services"
	"github.com/minicrm/backend/pkg/mongodb"
	"go.uber.org/zap"
)

// seed imports customers, and optionally one order per row, from a CSV file
// into the configured MongoDB database.
func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: seed [-config dir] customers.csv")
	}
	csvFilePath := flag.Arg(0)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.ConnectTimeout, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database()
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		zlog.Fatal("failed to ensure indexes", zap.Error(err))
	}
	customerRepo := mongorepo.NewCustomerRepository(db)
	orderRepo := mongorepo.NewOrderRepository(db)

	file, err := os.Open(csvFilePath)
	if err != nil {
		zlog.Fatal("failed to open CSV file", zap.String("path", csvFilePath), zap.Error(err))
	}
	defer file.Close()

	imp := importer.NewCustomerImporter(
		services.NewCustomerService(customerRepo, orderRepo, zlog),
		services.NewOrderService(orderRepo, customerRepo, zlog),
		zlog,
	)
	result, err := imp.Import(ctx, file)
	if err != nil {
		zlog.Fatal("failed to import data", zap.Error(err))
	}
	for _, msg := range result.Errors {
		zlog.Warn("row skipped", zap.String("reason", msg))
	}
	zlog.Info("data imported",
		zap.Int("customersCreated", result.CustomersCreated),
		zap.Int("ordersCreated", result.OrdersCreated))
}
