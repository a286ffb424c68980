package repository

import (
	"context"

	"cartengine/internal/domain/model"
)

// 注文ステータス履歴の保存・一覧取得の約束。
type OrderHistoryRepository interface {
	//履歴を1件追記
	Append(ctx context.Context, h model.OrderStatusHistory) error

	//古い順に返す
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error)
}
