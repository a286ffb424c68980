package model

import (
	"time"
)

// 商品カテゴリ
type Category string

const (
	CategoryFashion     Category = "Fashion"
	CategoryElectronics Category = "Electronics"
)

// 商品（カタログ側が正。ここでは読み取りと在庫の増減だけ行う）
type Product struct {
	ID       int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string   `gorm:"type:varchar(255);not null" json:"name"`
	Image    string   `gorm:"type:text" json:"image"`
	Category Category `gorm:"type:varchar(20);not null;index" json:"category"`

	OriginalPrice   int64 `gorm:"not null" json:"original_price"`
	DiscountedPrice int64 `gorm:"not null;default:0" json:"discounted_price"`

	// 在庫は商品単位（バリアント単位ではない）
	InStock int64 `gorm:"not null;check:in_stock >= 0" json:"in_stock"`

	Sizes    []string `gorm:"serializer:json;type:jsonb" json:"sizes,omitempty"`
	Rams     []string `gorm:"serializer:json;type:jsonb" json:"rams,omitempty"`
	Storages []string `gorm:"serializer:json;type:jsonb" json:"storages,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 割引価格があればそれを使う
func (p Product) UnitPrice() int64 {
	if p.DiscountedPrice > 0 {
		return p.DiscountedPrice
	}
	return p.OriginalPrice
}

// カテゴリごとの選択軸に変換する
func (p Product) Variants() VariantAxes {
	switch p.Category {
	case CategoryElectronics:
		return ElectronicsAxes{Rams: p.Rams, Storages: p.Storages}
	default:
		return FashionAxes{Sizes: p.Sizes}
	}
}

// Snapshot は表示用の部分だけを切り出す。
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:              p.ID,
		Name:            p.Name,
		Image:           p.Image,
		Category:        p.Category,
		OriginalPrice:   p.OriginalPrice,
		DiscountedPrice: p.DiscountedPrice,
		UnitPrice:       p.UnitPrice(),
		InStock:         p.InStock,
		Sizes:           p.Sizes,
		Rams:            p.Rams,
		Storages:        p.Storages,
	}
}

// カート・ウィッシュリスト表示用の商品情報（キャッシュ可）
type ProductSnapshot struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Image           string   `json:"image"`
	Category        Category `json:"category"`
	OriginalPrice   int64    `json:"original_price"`
	DiscountedPrice int64    `json:"discounted_price"`
	UnitPrice       int64    `json:"unit_price"`
	// 表示のヒント。予約の判定には使わない
	InStock  int64    `json:"in_stock"`
	Sizes    []string `json:"sizes,omitempty"`
	Rams     []string `json:"rams,omitempty"`
	Storages []string `json:"storages,omitempty"`
}

func (s ProductSnapshot) Variants() VariantAxes {
	return Product{Category: s.Category, Sizes: s.Sizes, Rams: s.Rams, Storages: s.Storages}.Variants()
}

// VariantAxes はカテゴリごとの選択軸（Fashion | Electronics）。
type VariantAxes interface {
	Category() Category
	isVariantAxes()
}

type FashionAxes struct {
	Sizes []string
}

func (FashionAxes) Category() Category { return CategoryFashion }
func (FashionAxes) isVariantAxes()     {}

type ElectronicsAxes struct {
	Rams     []string
	Storages []string
}

func (ElectronicsAxes) Category() Category { return CategoryElectronics }
func (ElectronicsAxes) isVariantAxes()     {}
