package model

import "time"

// 注文明細。価格・名前・バリアントは注文時点のスナップショット。
type OrderItem struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID             int64     `gorm:"not null;index" json:"-"`
	ProductID           int64     `gorm:"not null;index" json:"product_id"`
	ProductType         Category  `gorm:"type:varchar(20);not null" json:"product_type"`
	ProductNameSnapshot string    `gorm:"type:varchar(255);not null" json:"name"`
	VariantKey          string    `gorm:"type:varchar(255);not null" json:"variant"`
	Quantity            int64     `gorm:"not null;check:quantity >= 1" json:"quantity"`
	UnitPriceSnapshot   int64     `gorm:"not null" json:"unit_price"`
	Subtotal            int64     `gorm:"not null" json:"subtotal"`
	CreatedAt           time.Time `gorm:"not null;autoCreateTime" json:"-"`
}
