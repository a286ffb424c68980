package model

import (
	"errors"
	"fmt"
)

var (
	// サイズ/RAM/ストレージの指定が不足・不正
	ErrInvalidSelection = errors.New("invalid selection")
	// 在庫不足
	ErrInsufficientStock = errors.New("insufficient stock")
	// 数量が1未満
	ErrInvalidQuantity = errors.New("invalid quantity")
	// 状態遷移表にない変更
	ErrIllegalTransition = errors.New("illegal transition")
	// 決済コールバックの署名不一致
	ErrInvalidSignature = errors.New("invalid signature")

	ErrEmptyCart          = errors.New("cart empty")
	ErrProductNotFound    = errors.New("product not found")
	ErrCartLineNotFound   = errors.New("cart line not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// 在庫不足の詳細。errors.Is(err, ErrInsufficientStock) でも判定できる。
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	// 読み取れなかった場合は -1
	Available int64
}

func (e *InsufficientStockError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("insufficient stock: product %d requested %d", e.ProductID, e.Requested)
	}
	return fmt.Sprintf("insufficient stock: product %d requested %d available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
