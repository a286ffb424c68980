package repository

import (
	"context"
	"errors"
	"time"

	"cartengine/internal/domain/model"
)

// 同じ冪等キーで既に作られていた
var ErrDuplicate = errors.New("duplicate")

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// 決済完了で書き込む値
type PaymentConfirmation struct {
	GatewayPaymentID string
	Signature        string
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (model.Order, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByDisplayID(ctx context.Context, displayID string) (model.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Order, error)
	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)

	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
	// 決済待ちのまま放置された gateway 注文
	ListAbandoned(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error)

	// from のときだけ to に変える（CAS）。変わらなければ false。
	UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus) (bool, error)
	SetGatewayOrderID(ctx context.Context, orderID int64, gatewayOrderID string) error
	// unpaid かつ未キャンセルのときだけ paid にする
	MarkPaid(ctx context.Context, orderID int64, p PaymentConfirmation) (bool, error)
	// unpaid のときだけ failed にする
	MarkPaymentFailed(ctx context.Context, orderID int64) (bool, error)
}
