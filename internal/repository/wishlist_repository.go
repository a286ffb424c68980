package repository

import (
	"context"

	"cartengine/internal/domain/model"
)

type WishlistRepository interface {
	// 既にあれば何もしない（created=false）
	Add(ctx context.Context, item model.WishlistItem) (bool, error)
	// 無くてもエラーにしない
	Remove(ctx context.Context, userID int64, productID int64, productType model.Category) error
	ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error)
}
