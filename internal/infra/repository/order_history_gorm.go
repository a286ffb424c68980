package repository

import (
	"context"
	"time"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"

	"gorm.io/gorm"
)

type orderHistoryGormRepository struct {
	db *gorm.DB
}

func NewOrderHistoryGormRepository(db *gorm.DB) repo.OrderHistoryRepository {
	return &orderHistoryGormRepository{db: db}
}

func (r *orderHistoryGormRepository) Append(ctx context.Context, h model.OrderStatusHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&h).Error; err != nil {
		return err
	}
	return nil
}

func (r *orderHistoryGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	var logs []model.OrderStatusHistory
	//古い順
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
