package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cartengine/internal/config"
	"cartengine/internal/handler"
	"cartengine/internal/infra/cache"
	"cartengine/internal/infra/db"
	infraRepo "cartengine/internal/infra/repository"
	"cartengine/internal/messaging"
	"cartengine/internal/metrics"
	"cartengine/internal/payment"
	"cartengine/internal/repository"
	"cartengine/internal/server"
	"cartengine/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	//.env は無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DatabaseURL, cfg.IsProd())
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	//metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	wishlistRepo := infraRepo.NewWishlistGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	historyRepo := infraRepo.NewOrderHistoryGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//表示用の商品情報は Redis があればキャッシュする
	var snapshots repository.ProductSnapshotReader = productRepo
	if cfg.RedisAddr != "" {
		snapshots = cache.NewSnapshotReader(productRepo, cache.NewRedisCache(cfg.RedisAddr, "cartengine"), cfg.CatalogCacheTTL, logger)
	}

	//イベント送信
	var publisher interface {
		usecase.EventPublisher
		Close() error
	} = messaging.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = messaging.NewProducer(cfg.KafkaBrokers)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("publisher close failed", "error", err)
		}
	}()

	//決済ゲートウェイ
	var gateway payment.Gateway = payment.NewLocalGateway(cfg.GatewayKeyID)
	if cfg.PaymentGateway == config.GatewayHTTP {
		gateway = payment.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret)
	}
	verifier := payment.NewVerifier(cfg.GatewayKeySecret)

	//Usecase生成
	guard := usecase.NewStockGuard(inventoryRepo, m, logger)
	cartUC := usecase.NewCartUsecase(cartRepo, productRepo, snapshots, guard, m, logger)
	wishlistUC := usecase.NewWishlistUsecase(wishlistRepo, productRepo, snapshots, cartUC, m, logger)
	deps := usecase.OrderDeps{
		Tx:        txm,
		Orders:    orderRepo,
		Items:     orderItemRepo,
		History:   historyRepo,
		Guard:     guard,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	}
	orderUC := usecase.NewOrderUsecase(deps, cartUC, gateway, cfg.Currency)
	paymentUC := usecase.NewPaymentUsecase(deps, cartUC, verifier)
	adminOrderUC := usecase.NewAdminOrderUsecase(deps)

	//Handler生成
	e := server.New(cfg, server.Handlers{
		Cart:       handler.NewCartHandler(cartUC),
		Wishlist:   handler.NewWishlistHandler(wishlistUC),
		Order:      handler.NewOrderHandler(orderUC),
		Payment:    handler.NewPaymentHandler(paymentUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
	}, reg, logger)

	//Server起動
	logger.Info("starting api", "addr", cfg.ListenAddr(), "gateway", cfg.PaymentGateway, "env", cfg.GoEnv)
	if err := server.Start(ctx, e, cfg.ListenAddr()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
}
