// reconcile は決済されないまま残った gateway 注文をキャンセルして在庫を戻す。
// cron などから定期的に実行する。
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cartengine/internal/config"
	"cartengine/internal/infra/db"
	infraRepo "cartengine/internal/infra/repository"
	"cartengine/internal/messaging"
	"cartengine/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	olderThan := flag.Duration("older-than", cfg.ReservationTTL, "cancel unpaid gateway orders created before now minus this duration")
	limit := flag.Int("limit", cfg.ReconcileBatch, "max orders per run")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("cmd", "reconcile")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Connect(cfg.DatabaseURL, true)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	var publisher interface {
		usecase.EventPublisher
		Close() error
	} = messaging.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = messaging.NewProducer(cfg.KafkaBrokers)
	}
	defer publisher.Close()

	// メトリクスは送らない（nil でよい）
	guard := usecase.NewStockGuard(infraRepo.NewInventoryGormRepository(gormDB), nil, logger)
	uc := usecase.NewAdminOrderUsecase(usecase.OrderDeps{
		Tx:        infraRepo.NewTxManagerGorm(gormDB),
		Orders:    infraRepo.NewOrderGormRepository(gormDB),
		Items:     infraRepo.NewOrderItemGormRepository(gormDB),
		History:   infraRepo.NewOrderHistoryGormRepository(gormDB),
		Guard:     guard,
		Publisher: publisher,
		Logger:    logger,
	})

	res, err := uc.ExpireAbandoned(ctx, *olderThan, *limit)
	if err != nil {
		logger.Error("reconcile failed", "error", err)
		os.Exit(1)
	}
	if len(res.Failed) > 0 {
		logger.Warn("some orders could not be expired", "failed", res.Failed)
		os.Exit(2)
	}
}
