package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 決済ゲートウェイの種類
const (
	GatewayLocal = "local"
	GatewayHTTP  = "http"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL string // 空なら POSTGRES_* から組み立てる

	JWTSecret string // JWT署名シークレット（発行は外部、ここでは検証のみ）

	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	PaymentGateway   string // local/http
	GatewayKeyID     string // 公開キー（クライアントに返す）
	GatewayKeySecret string // 署名検証用の共有シークレット
	GatewayBaseURL   string // http のときのAPIベースURL
	Currency         string // INR

	RedisAddr       string        // 空ならキャッシュ無し
	CatalogCacheTTL time.Duration // 商品スナップショットのTTL

	KafkaBrokers []string // 空ならイベント送信しない

	ReservationTTL time.Duration // 決済待ち注文の在庫を保持する時間
	ReconcileBatch int           // 照合1回で処理する注文数
}

// Loadは環境変数
func Load() (Config, error) {
	cacheTTL, err := durationOr("CATALOG_CACHE_TTL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	resTTL, err := durationOr("RESERVATION_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	batch, err := atoiOr("RECONCILE_BATCH", 100)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:    os.Getenv("GO_ENV"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		PaymentGateway:   strings.ToLower(getenv("PAYMENT_GATEWAY", GatewayLocal)),
		GatewayKeyID:     os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("GATEWAY_KEY_SECRET"),
		GatewayBaseURL:   getenv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		Currency:         strings.ToUpper(getenv("CURRENCY", "INR")),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		CatalogCacheTTL: cacheTTL,

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),

		ReservationTTL: resTTL,
		ReconcileBatch: batch,
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.GatewayKeySecret == "" {
		return Config{}, fmt.Errorf("GATEWAY_KEY_SECRET is required")
	}
	switch cfg.PaymentGateway {
	case GatewayLocal:
	case GatewayHTTP:
		if cfg.GatewayKeyID == "" {
			return Config{}, fmt.Errorf("GATEWAY_KEY_ID is required")
		}
	default:
		return Config{}, fmt.Errorf("PAYMENT_GATEWAY must be %q or %q", GatewayLocal, GatewayHTTP)
	}
	if cfg.ReservationTTL <= 0 {
		return Config{}, fmt.Errorf("RESERVATION_TTL must be positive")
	}

	return cfg, nil
}

// ListenAddr は ":8080" 形式にする
func (c Config) ListenAddr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
