package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cartengine/internal/domain/model"
	"cartengine/internal/payment"
	repo "cartengine/internal/repository"
)

// PaymentUsecase はホスト型チェックアウトからのコールバックを処理する
type PaymentUsecase struct {
	OrderDeps
	cart      *CartUsecase
	verifier  *payment.Verifier
	lifecycle *orderLifecycle
}

func NewPaymentUsecase(deps OrderDeps, cart *CartUsecase, verifier *payment.Verifier) *PaymentUsecase {
	return &PaymentUsecase{
		OrderDeps: deps,
		cart:      cart,
		verifier:  verifier,
		lifecycle: deps.newLifecycle(),
	}
}

type ConfirmPaymentInput struct {
	GatewayPaymentID string
	GatewayOrderID   string
	Signature        string
}

type FailPaymentInput struct {
	GatewayOrderID string
	Reason         string
}

type PaymentOutput struct {
	OrderID       string              `json:"order_id"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	OrderStatus   model.OrderStatus   `json:"order_status"`
	CartCleared   *LineResult         `json:"cart_cleared,omitempty"`
}

// ConfirmPayment は署名を検証して unpaid → paid にする。
// 失敗したら注文は pending/unpaid のまま。
func (u *PaymentUsecase) ConfirmPayment(ctx context.Context, userID int64, in ConfirmPaymentInput) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := u.verifier.Verify(in.GatewayOrderID, in.GatewayPaymentID, in.Signature); err != nil {
		return PaymentOutput{}, u.reject(userID, in.GatewayOrderID, err)
	}

	o, err := u.Orders.FindByGatewayOrderID(ctx, in.GatewayOrderID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentOutput{}, u.reject(userID, in.GatewayOrderID, fmt.Errorf("%w: unknown gateway order", model.ErrInvalidSignature))
	}
	if err != nil {
		return PaymentOutput{}, toHTTPError(err)
	}
	switch {
	case o.UserID != userID:
		return PaymentOutput{}, u.reject(userID, in.GatewayOrderID, fmt.Errorf("%w: order belongs to another user", model.ErrInvalidSignature))
	case o.OrderStatus == model.OrderStatusCancelled:
		return PaymentOutput{}, u.reject(userID, in.GatewayOrderID, fmt.Errorf("%w: order cancelled", model.ErrInvalidSignature))
	case o.PaymentStatus == model.PaymentStatusPaid:
		return PaymentOutput{}, u.reject(userID, in.GatewayOrderID, fmt.Errorf("%w: order already paid", model.ErrInvalidSignature))
	}

	var items []model.OrderItem
	err = u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Orders().MarkPaid(ctx, o.ID, repo.PaymentConfirmation{
			GatewayPaymentID: in.GatewayPaymentID,
			Signature:        in.Signature,
		})
		if err != nil {
			return err
		}
		if !ok {
			//確認と更新の間に状態が変わった
			return fmt.Errorf("%w: order no longer payable", model.ErrInvalidSignature)
		}

		items, err = r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		return r.OrderHistory().Append(ctx, model.OrderStatusHistory{
			OrderID:       o.ID,
			FromStatus:    o.OrderStatus,
			ToStatus:      o.OrderStatus,
			PaymentStatus: model.PaymentStatusPaid,
			ActorRole:     model.RoleBuyer,
			ActorUserID:   userID,
			Reason:        "payment confirmed",
			CreatedAt:     time.Now(),
		})
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidSignature) {
			return PaymentOutput{}, u.reject(userID, in.GatewayOrderID, err)
		}
		u.Logger.Error("confirm payment failed", "order_id", o.DisplayID, "error", err)
		return PaymentOutput{}, toHTTPError(err)
	}

	u.Metrics.PaymentConfirm("paid")
	cleared := u.cart.ClearLines(ctx, userID, purchasedLines(items))
	u.lifecycle.publish(ctx, model.TopicOrderPaid, o.DisplayID, model.OrderPaidEvent{
		OrderID:          o.DisplayID,
		UserID:           o.UserID,
		GatewayOrderID:   in.GatewayOrderID,
		GatewayPaymentID: in.GatewayPaymentID,
		Timestamp:        time.Now(),
	})

	return PaymentOutput{
		OrderID:       o.DisplayID,
		PaymentStatus: model.PaymentStatusPaid,
		OrderStatus:   o.OrderStatus,
		CartCleared:   &cleared,
	}, nil
}

// FailPayment は決済失敗の通知。payment を failed にし、システムとしてキャンセルして在庫を戻す。
func (u *PaymentUsecase) FailPayment(ctx context.Context, userID int64, in FailPaymentInput) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.GatewayOrderID) == "" {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid gateway_order_id")
	}

	o, err := u.Orders.FindByGatewayOrderID(ctx, in.GatewayOrderID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && o.UserID != userID) {
		return PaymentOutput{}, toHTTPError(model.ErrOrderNotFound)
	}
	if err != nil {
		return PaymentOutput{}, toHTTPError(err)
	}

	reason := "payment failed"
	if r := strings.TrimSpace(in.Reason); r != "" {
		reason += ": " + r
	}

	o, err = u.lifecycle.cancelUnpaid(ctx, o, reason)
	if err != nil {
		return PaymentOutput{}, err
	}
	u.Metrics.PaymentConfirm("failed")

	return PaymentOutput{
		OrderID:       o.DisplayID,
		PaymentStatus: o.PaymentStatus,
		OrderStatus:   o.OrderStatus,
	}, nil
}

// 理由はログにだけ残し、レスポンスは一律 invalid signature
func (u *PaymentUsecase) reject(userID int64, gatewayOrderID string, err error) error {
	u.Metrics.PaymentConfirm("rejected")
	u.Logger.Warn("payment confirmation rejected", "user_id", userID, "gateway_order_id", gatewayOrderID, "error", err)
	return toHTTPError(err)
}
