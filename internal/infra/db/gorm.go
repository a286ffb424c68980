package db

import (
	"fmt"
	"os"

	"cartengine/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// dsn が空なら POSTGRES_* から組み立てる。
func Connect(dsn string, quiet bool) (*gorm.DB, error) {
	if dsn == "" {
		dsn = dsnFromEnv()
	}

	gcfg := &gorm.Config{}
	if quiet {
		gcfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	return gorm.Open(postgres.Open(dsn), gcfg)
}

// Migrate はこのサービスが使うテーブルを作る
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&model.Product{},
		&model.CartItem{},
		&model.WishlistItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderStatusHistory{},
	)
}

func dsnFromEnv() string {
	host := getenv("POSTGRES_HOST", "localhost")
	port := getenv("POSTGRES_PORT", "5432")
	user := getenv("POSTGRES_USER", "postgres")
	pass := getenv("POSTGRES_PASSWORD", "postgres")
	name := getenv("POSTGRES_DB", "app")
	ssl := getenv("POSTGRES_SSLMODE", "disable")

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, pass, name, ssl,
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
