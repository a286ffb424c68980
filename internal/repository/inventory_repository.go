package repository

import (
	"context"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算（1文の条件付き UPDATE）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 現在の在庫
	GetStock(ctx context.Context, productID int64) (int64, error)
}
