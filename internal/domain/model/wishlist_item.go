package model

import "time"

// ウィッシュリスト。存在するかどうかだけが状態。
type WishlistItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:ux_wishlist_entry,priority:1" json:"user_id"`
	ProductID   int64     `gorm:"not null;uniqueIndex:ux_wishlist_entry,priority:2" json:"product_id"`
	ProductType Category  `gorm:"type:varchar(20);not null;uniqueIndex:ux_wishlist_entry,priority:3" json:"product_type"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
