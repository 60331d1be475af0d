package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Affo25/Ecoomerce-apis/configs"
	"github.com/Affo25/Ecoomerce-apis/repositories"
	"github.com/Affo25/Ecoomerce-apis/repositories/memory"
	"github.com/Affo25/Ecoomerce-apis/services/ingestion"
	"github.com/Affo25/Ecoomerce-apis/uploads"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *configs.Database
	var st stores
	switch cfg.DBDriver {
	case configs.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		st = stores{
			products: memory.NewProductStore(),
			orders:   memory.NewOrderStore(),
			counters: memory.NewSequence(),
			admins:   memory.NewAdminStore(),
		}
	default:
		db = configs.NewDatabase(cfg.MongoURI, cfg.MongoDatabase)
		st, err = mongoStores(ctx, db)
		if err != nil {
			logger.Error("Failed to prepare database", "error", err)
			os.Exit(1)
		}
		st.health = db.Ping
	}

	var sink ingestion.ImageSink
	switch cfg.StorageMode {
	case configs.StorageHosted:
		sink = ingestion.NewHostedUpload(uploads.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret))
	default:
		sink = ingestion.NewLocalDisk(cfg.UploadDir, cfg.UploadURLPrefix, cfg.ImageMaxWidth)
	}

	app := newApp(cfg, st, sink, logger)

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Environment, "storage", cfg.StorageMode, "db", cfg.DBDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	if db != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(shutdownCtx); err != nil {
			logger.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}
}

func mongoStores(ctx context.Context, db *configs.Database) (stores, error) {
	products := repositories.NewProductRepository(db)
	orders := repositories.NewOrderRepository(db)
	admins := repositories.NewAdminRepository(db)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for _, ensure := range []func(context.Context) error{
		products.EnsureIndexes,
		orders.EnsureIndexes,
		admins.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return stores{}, err
		}
	}

	return stores{
		products: products,
		orders:   orders,
		counters: repositories.NewCounterRepository(db),
		admins:   admins,
	}, nil
}
