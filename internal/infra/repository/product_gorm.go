package repository

import (
	"context"
	"errors"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 複数IDでまとめて取得（見つからないIDは含まれない）
func (r *ProductGormRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	var products []model.Product
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 表示用スナップショット（キャッシュ無し）
func (r *ProductGormRepository) Snapshot(ctx context.Context, id int64) (model.ProductSnapshot, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return model.ProductSnapshot{}, err
	}
	return p.Snapshot(), nil
}
