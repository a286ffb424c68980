package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"
)

type OrderRepository struct{ v view }

func (r *OrderRepository) Create(_ context.Context, o model.Order) (model.Order, error) {
	defer r.v.lock()()
	for _, cur := range r.v.s.st.orders {
		if cur.DisplayID == o.DisplayID {
			return model.Order{}, repo.ErrDuplicate
		}
		if o.IdempotencyKey != nil && cur.IdempotencyKey != nil &&
			cur.UserID == o.UserID && *cur.IdempotencyKey == *o.IdempotencyKey {
			return model.Order{}, repo.ErrDuplicate
		}
	}
	now := time.Now()
	o.ID = r.v.s.st.nextID()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	r.v.s.st.orders[o.ID] = o
	return o, nil
}

func (r *OrderRepository) findBy(match func(model.Order) bool) (model.Order, error) {
	defer r.v.lock()()
	for _, o := range r.v.s.st.orders {
		if match(o) {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r *OrderRepository) FindByID(_ context.Context, orderID int64) (model.Order, error) {
	return r.findBy(func(o model.Order) bool { return o.ID == orderID })
}

func (r *OrderRepository) FindByDisplayID(_ context.Context, displayID string) (model.Order, error) {
	return r.findBy(func(o model.Order) bool { return o.DisplayID == displayID })
}

func (r *OrderRepository) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (model.Order, error) {
	return r.findBy(func(o model.Order) bool {
		return o.GatewayOrderID != nil && *o.GatewayOrderID == gatewayOrderID
	})
}

func (r *OrderRepository) FindByIdempotencyKey(_ context.Context, userID int64, key string) (model.Order, bool, error) {
	o, err := r.findBy(func(o model.Order) bool {
		return o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key
	})
	if err != nil {
		return model.Order{}, false, nil
	}
	return o, true, nil
}

// 新しい順
func (r *OrderRepository) list(match func(model.Order) bool) []model.Order {
	out := []model.Order{}
	for _, o := range r.v.s.st.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b model.Order) int { return cmp.Compare(b.ID, a.ID) })
	return out
}

func page(items []model.Order, p, limit int) []model.Order {
	start := (p - 1) * limit
	if start >= len(items) {
		return []model.Order{}
	}
	end := min(start+limit, len(items))
	return items[start:end]
}

func (r *OrderRepository) ListByUserID(_ context.Context, userID int64, p int, limit int) ([]model.Order, int64, error) {
	defer r.v.lock()()
	all := r.list(func(o model.Order) bool { return o.UserID == userID })
	return page(all, p, limit), int64(len(all)), nil
}

func (r *OrderRepository) ListAdmin(_ context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	defer r.v.lock()()
	all := r.list(func(o model.Order) bool {
		if f.Status != "" && string(o.OrderStatus) != f.Status {
			return false
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			return false
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			return false
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			return false
		}
		return true
	})
	return page(all, f.Page, f.Limit), int64(len(all)), nil
}

func (r *OrderRepository) ListAbandoned(_ context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	defer r.v.lock()()
	all := r.list(func(o model.Order) bool {
		return o.PaymentMethod == model.PaymentMethodGateway &&
			o.PaymentStatus == model.PaymentStatusUnpaid &&
			o.OrderStatus == model.OrderStatusPending &&
			o.CreatedAt.Before(createdBefore)
	})
	slices.Reverse(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// update は条件を満たすときだけ書き換える
func (r *OrderRepository) update(orderID int64, fn func(o *model.Order) bool) (bool, error) {
	defer r.v.lock()()
	o, ok := r.v.s.st.orders[orderID]
	if !ok {
		return false, nil
	}
	if !fn(&o) {
		return false, nil
	}
	o.UpdatedAt = time.Now()
	r.v.s.st.orders[orderID] = o
	return true, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, orderID int64, from, to model.OrderStatus) (bool, error) {
	return r.update(orderID, func(o *model.Order) bool {
		if o.OrderStatus != from {
			return false
		}
		o.OrderStatus = to
		return true
	})
}

func (r *OrderRepository) SetGatewayOrderID(_ context.Context, orderID int64, gatewayOrderID string) error {
	ok, _ := r.update(orderID, func(o *model.Order) bool {
		o.GatewayOrderID = &gatewayOrderID
		return true
	})
	if !ok {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) MarkPaid(_ context.Context, orderID int64, p repo.PaymentConfirmation) (bool, error) {
	return r.update(orderID, func(o *model.Order) bool {
		if o.PaymentMethod != model.PaymentMethodGateway ||
			o.PaymentStatus != model.PaymentStatusUnpaid ||
			o.OrderStatus == model.OrderStatusCancelled {
			return false
		}
		o.PaymentStatus = model.PaymentStatusPaid
		o.GatewayPaymentID = &p.GatewayPaymentID
		o.GatewaySignature = &p.Signature
		return true
	})
}

func (r *OrderRepository) MarkPaymentFailed(_ context.Context, orderID int64) (bool, error) {
	return r.update(orderID, func(o *model.Order) bool {
		if o.PaymentStatus != model.PaymentStatusUnpaid {
			return false
		}
		o.PaymentStatus = model.PaymentStatusFailed
		return true
	})
}

// Backdate はテスト用に作成時刻をずらす
func (s *Store) Backdate(orderID int64, createdAt time.Time) {
	defer s.root().lock()()
	if o, ok := s.st.orders[orderID]; ok {
		o.CreatedAt = createdAt
		s.st.orders[orderID] = o
	}
}

type OrderItemRepository struct{ v view }

func (r *OrderItemRepository) CreateBulk(_ context.Context, orderID int64, items []model.OrderItem) error {
	defer r.v.lock()()
	for _, it := range items {
		it.ID = r.v.s.st.nextID()
		it.OrderID = orderID
		if it.CreatedAt.IsZero() {
			it.CreatedAt = time.Now()
		}
		r.v.s.st.items[it.ID] = it
	}
	return nil
}

func (r *OrderItemRepository) ListByOrderID(_ context.Context, orderID int64) ([]model.OrderItem, error) {
	defer r.v.lock()()
	out := []model.OrderItem{}
	for _, it := range r.v.s.st.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b model.OrderItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

type OrderHistoryRepository struct{ v view }

func (r *OrderHistoryRepository) Append(_ context.Context, h model.OrderStatusHistory) error {
	defer r.v.lock()()
	h.ID = r.v.s.st.nextID()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	r.v.s.st.history[h.ID] = h
	return nil
}

func (r *OrderHistoryRepository) ListByOrderID(_ context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	defer r.v.lock()()
	out := []model.OrderStatusHistory{}
	for _, h := range r.v.s.st.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	slices.SortFunc(out, func(a, b model.OrderStatusHistory) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
