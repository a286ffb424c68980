package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cartengine/internal/domain/model"
	"cartengine/internal/metrics"
	repo "cartengine/internal/repository"
)

// orderLifecycle は購入者・販売者・システムで共通の状態遷移を行う。
type orderLifecycle struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	guard     *StockGuard
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type UpdateStatusInput struct {
	Status string
	Reason string
}

func (l *orderLifecycle) updateStatus(ctx context.Context, actor model.Actor, displayID string, in UpdateStatusInput) (model.Order, error) {
	to := model.OrderStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !to.Valid() {
		return model.Order{}, toHTTPError(model.ErrInvalidStatus)
	}

	o, err := l.orders.FindByDisplayID(ctx, displayID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, toHTTPError(model.ErrOrderNotFound)
	}
	if err != nil {
		return model.Order{}, toHTTPError(err)
	}
	// 他人の注文は存在しないのと同じ扱い
	if actor.Role == model.RoleBuyer && o.UserID != actor.UserID {
		return model.Order{}, toHTTPError(model.ErrOrderNotFound)
	}

	return l.transition(ctx, o, to, actor, strings.TrimSpace(in.Reason))
}

// transition は1ステップの遷移を独立したトランザクションで行う
func (l *orderLifecycle) transition(ctx context.Context, o model.Order, to model.OrderStatus, actor model.Actor, reason string) (model.Order, error) {
	if !model.CanTransition(o.OrderStatus, to, actor.Role) {
		l.logger.Warn("illegal order transition",
			"order_id", o.DisplayID, "from", o.OrderStatus, "to", to, "role", actor.Role, "user_id", actor.UserID)
		return model.Order{}, toHTTPError(fmt.Errorf("%w: %s -> %s", model.ErrIllegalTransition, o.OrderStatus, to))
	}

	err := l.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return l.applyInTx(ctx, r, o, to, actor, reason, "")
	})
	if err != nil {
		if !errors.Is(err, model.ErrIllegalTransition) {
			l.logger.Error("order transition failed", "order_id", o.DisplayID, "to", to, "error", err)
		}
		return model.Order{}, toHTTPError(err)
	}

	from := o.OrderStatus
	o.OrderStatus = to
	o.UpdatedAt = time.Now()
	l.afterTransition(ctx, o, from, actor, reason)
	return o, nil
}

// applyInTx は現在状態が変わっていないときだけ更新する（CAS）。
// キャンセルなら同じトランザクションで在庫を戻す。
func (l *orderLifecycle) applyInTx(ctx context.Context, r repo.TxRepos, o model.Order, to model.OrderStatus, actor model.Actor, reason string, ps model.PaymentStatus) error {
	ok, err := r.Orders().UpdateStatus(ctx, o.ID, o.OrderStatus, to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: order %s changed concurrently", model.ErrIllegalTransition, o.DisplayID)
	}

	if to == model.OrderStatusCancelled {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		if err := l.guard.WithInventory(r.Inventory()).ReleaseAll(ctx, reservationsOf(items)); err != nil {
			return err
		}
	}

	return r.OrderHistory().Append(ctx, model.OrderStatusHistory{
		OrderID:       o.ID,
		FromStatus:    o.OrderStatus,
		ToStatus:      to,
		PaymentStatus: ps,
		ActorRole:     actor.Role,
		ActorUserID:   actor.UserID,
		Reason:        reason,
		CreatedAt:     time.Now(),
	})
}

func (l *orderLifecycle) afterTransition(ctx context.Context, o model.Order, from model.OrderStatus, actor model.Actor, reason string) {
	l.metrics.Transition(string(o.OrderStatus), string(actor.Role))
	l.publish(ctx, model.TopicOrderStatusChanged, o.DisplayID, model.OrderStatusChangedEvent{
		OrderID:   o.DisplayID,
		UserID:    o.UserID,
		From:      from,
		To:        o.OrderStatus,
		ActorRole: actor.Role,
		Reason:    reason,
		Timestamp: o.UpdatedAt,
	})
}

// 送信失敗は注文処理を失敗にしない
func (l *orderLifecycle) publish(ctx context.Context, topic, key string, event any) {
	if err := l.publisher.Publish(ctx, topic, key, event); err != nil {
		l.logger.Warn("event publish failed", "topic", topic, "order_id", key, "error", err)
	}
}

func reservationsOf(items []model.OrderItem) []Reservation {
	out := make([]Reservation, 0, len(items))
	for _, it := range items {
		out = append(out, Reservation{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func purchasedLines(items []model.OrderItem) []model.LineRef {
	out := make([]model.LineRef, 0, len(items))
	for _, it := range items {
		out = append(out, model.LineRef{ProductID: it.ProductID, VariantKey: it.VariantKey})
	}
	return out
}

// cancelUnpaid は未払いの gateway 注文をシステムとしてキャンセルする。
// payment を failed にする条件付き更新と同じトランザクションなので、支払い確定とは排他になる。
func (l *orderLifecycle) cancelUnpaid(ctx context.Context, o model.Order, reason string) (model.Order, error) {
	system := model.Actor{Role: model.RoleSystem}
	if !model.CanTransition(o.OrderStatus, model.OrderStatusCancelled, system.Role) {
		return model.Order{}, toHTTPError(fmt.Errorf("%w: order %s is %s", model.ErrIllegalTransition, o.DisplayID, o.OrderStatus))
	}

	err := l.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Orders().MarkPaymentFailed(ctx, o.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: payment already settled", model.ErrIllegalTransition)
		}
		return l.applyInTx(ctx, r, o, model.OrderStatusCancelled, system, reason, model.PaymentStatusFailed)
	})
	if err != nil {
		if !errors.Is(err, model.ErrIllegalTransition) {
			l.logger.Error("cancel unpaid order failed", "order_id", o.DisplayID, "error", err)
		}
		return model.Order{}, toHTTPError(err)
	}

	from := o.OrderStatus
	o.OrderStatus = model.OrderStatusCancelled
	o.PaymentStatus = model.PaymentStatusFailed
	o.UpdatedAt = time.Now()
	l.afterTransition(ctx, o, from, system, reason)
	return o, nil
}
