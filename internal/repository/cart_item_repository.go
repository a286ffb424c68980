package repository

import (
	"context"

	"cartengine/internal/domain/model"
)

type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	FindLine(ctx context.Context, userID int64, ref model.LineRef) (model.CartItem, error)

	// 同一明細は加算。加算後の数量が商品の在庫を超えるなら何もしないで false。
	// 判定と書き込みは1文で行う。
	IncrementLine(ctx context.Context, item model.CartItem) (bool, error)

	// 数量を絶対値で設定。在庫を超えるなら false。明細が無ければ ErrNotFound。
	SetQuantity(ctx context.Context, userID int64, ref model.LineRef, qty int64) (bool, error)

	// 明細を削除。無くてもエラーにしない。
	DeleteLine(ctx context.Context, userID int64, ref model.LineRef) error
}
