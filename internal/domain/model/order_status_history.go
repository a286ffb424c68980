package model

import "time"

// 注文ステータス履歴（追記のみ）。
// 「誰が」「どの状態から」「どの状態へ」「なぜ」を残す。
type OrderStatusHistory struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID int64 `gorm:"not null;index" json:"-"`

	// 作成時は空
	FromStatus OrderStatus `gorm:"type:varchar(30)" json:"from_status,omitempty"`
	ToStatus   OrderStatus `gorm:"type:varchar(30);not null" json:"to_status"`

	// 決済イベントのときに入る（paid / failed）
	PaymentStatus PaymentStatus `gorm:"type:varchar(20)" json:"payment_status,omitempty"`

	ActorRole   Role   `gorm:"type:varchar(20);not null" json:"actor_role"`
	ActorUserID int64  `gorm:"not null;default:0" json:"-"`
	Reason      string `gorm:"type:text" json:"reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
