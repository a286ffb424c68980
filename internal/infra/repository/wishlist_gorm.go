package repository

import (
	"context"
	"time"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type wishlistGormRepository struct {
	db *gorm.DB
}

func NewWishlistGormRepository(db *gorm.DB) repo.WishlistRepository {
	return &wishlistGormRepository{db: db}
}

// 既にあれば何もしない
func (r *wishlistGormRepository) Add(ctx context.Context, item model.WishlistItem) (bool, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "product_type"}},
			DoNothing: true,
		}).
		Create(&item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 無くてもOK
func (r *wishlistGormRepository) Remove(ctx context.Context, userID int64, productID int64, productType model.Category) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND product_type = ?", userID, productID, productType).
		Delete(&model.WishlistItem{}).Error
}

func (r *wishlistGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error) {
	var items []model.WishlistItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
