package repository

import (
	"cartengine/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 商品の読み取りだけを約束。在庫の増減は InventoryRepository。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
}

// 表示用スナップショットの読み取り（キャッシュを挟んでよい）
type ProductSnapshotReader interface {
	Snapshot(ctx context.Context, id int64) (model.ProductSnapshot, error)
}
