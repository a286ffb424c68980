package model

import "time"

// カートの明細。ユーザー×商品×バリアントで1行。
// 数量0の行は持たない（削除する）。
type CartItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:ux_cart_line,priority:1" json:"user_id"`
	ProductID   int64     `gorm:"not null;uniqueIndex:ux_cart_line,priority:2;index" json:"product_id"`
	VariantKey  string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_cart_line,priority:3" json:"variant_key"`
	ProductType Category  `gorm:"type:varchar(20);not null" json:"product_type"`
	Quantity    int64     `gorm:"not null;check:quantity >= 1" json:"quantity"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 明細の特定キー
type LineRef struct {
	ProductID  int64  `json:"product_id"`
	VariantKey string `json:"variant_key"`
}

func (c CartItem) Ref() LineRef {
	return LineRef{ProductID: c.ProductID, VariantKey: c.VariantKey}
}
