package repository

import (
	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 挿入も加算も、在庫の確認も1文で行う。
// 新規行は SELECT の WHERE で、既存行は ON CONFLICT ... WHERE で在庫を超えないようにする。
const incrementLineSQL = `
INSERT INTO cart_items (user_id, product_id, variant_key, product_type, quantity, created_at, updated_at)
SELECT ?, p.id, ?, ?, ?, ?, ?
FROM products p
WHERE p.id = ? AND p.in_stock >= ?
ON CONFLICT (user_id, product_id, variant_key)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
WHERE cart_items.quantity + EXCLUDED.quantity <= (SELECT in_stock FROM products WHERE products.id = EXCLUDED.product_id)
`

// 同一明細は数量加算
func (r *CartGormRepository) IncrementLine(ctx context.Context, item model.CartItem) (bool, error) {
	if item.Quantity <= 0 {
		return false, errors.New("invalid quantity")
	}

	now := time.Now()
	res := r.db.WithContext(ctx).Exec(incrementLineSQL,
		item.UserID, item.VariantKey, item.ProductType, item.Quantity, now, now,
		item.ProductID, item.Quantity,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 明細の数量を設定（在庫以下のときだけ）
func (r *CartGormRepository) SetQuantity(ctx context.Context, userID int64, ref model.LineRef, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, ref.ProductID, ref.VariantKey).
		Where("? <= (SELECT in_stock FROM products WHERE products.id = cart_items.product_id)", qty).
		Updates(map[string]interface{}{
			"quantity":   qty,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// 0件は「明細が無い」か「在庫超過」
	if _, err := r.FindLine(ctx, userID, ref); err != nil {
		return false, err
	}
	return false, nil
}

// 明細を削除（無くてもOK）
func (r *CartGormRepository) DeleteLine(ctx context.Context, userID int64, ref model.LineRef) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, ref.ProductID, ref.VariantKey).
		Delete(&model.CartItem{}).Error
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 明細を取得
func (r *CartGormRepository) FindLine(ctx context.Context, userID int64, ref model.LineRef) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, ref.ProductID, ref.VariantKey).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}
