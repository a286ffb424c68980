package repository

import (
	"context"
	"errors"
	"time"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// unique_violation
const pgUniqueViolation = "23505"

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.findOne(ctx, "id = ?", orderID)
}

func (r *OrderGormRepository) FindByDisplayID(ctx context.Context, displayID string) (model.Order, error) {
	return r.findOne(ctx, "display_id = ?", displayID)
}

func (r *OrderGormRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Order, error) {
	return r.findOne(ctx, "gateway_order_id = ?", gatewayOrderID)
}

func (r *OrderGormRepository) findOne(ctx context.Context, query string, args ...interface{}) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where(query, args...).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

// 冪等キーの一意制約に当たったら ErrDuplicate
func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.Order{}, repo.ErrDuplicate
		}
		return model.Order{}, err
	}
	return order, nil
}

// from のときだけ更新する
func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND order_status = ?", orderID, from).
		Updates(map[string]interface{}{
			"order_status": to,
			"updated_at":   time.Now(),
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderGormRepository) SetGatewayOrderID(ctx context.Context, orderID int64, gatewayOrderID string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"gateway_order_id": gatewayOrderID,
			"updated_at":       time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 二重の支払い確定やキャンセル後の確定はここで弾く
func (r *OrderGormRepository) MarkPaid(ctx context.Context, orderID int64, p repo.PaymentConfirmation) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_method = ? AND payment_status = ? AND order_status <> ?",
			orderID, model.PaymentMethodGateway, model.PaymentStatusUnpaid, model.OrderStatusCancelled).
		Updates(map[string]interface{}{
			"payment_status":     model.PaymentStatusPaid,
			"gateway_payment_id": p.GatewayPaymentID,
			"gateway_signature":  p.Signature,
			"updated_at":         time.Now(),
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderGormRepository) MarkPaymentFailed(ctx context.Context, orderID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", orderID, model.PaymentStatusUnpaid).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentStatusFailed,
			"updated_at":     time.Now(),
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&o).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

// 決済されないまま残った gateway 注文（古い順）
func (r *OrderGormRepository) ListAbandoned(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []model.Order
	err := r.db.WithContext(ctx).
		Where("payment_method = ? AND payment_status = ? AND order_status = ? AND created_at < ?",
			model.PaymentMethodGateway, model.PaymentStatusUnpaid, model.OrderStatusPending, createdBefore).
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("order_status = ?", f.Status)
	}

	//user_id 絞り込み
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}
