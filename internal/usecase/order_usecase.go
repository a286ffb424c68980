package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cartengine/internal/domain/model"
	"cartengine/internal/metrics"
	"cartengine/internal/payment"
	repo "cartengine/internal/repository"

	"github.com/google/uuid"
)

// OrderDeps は注文系ユースケースが共有する部品
type OrderDeps struct {
	Tx        repo.TransactionManager
	Orders    repo.OrderRepository
	Items     repo.OrderItemRepository
	History   repo.OrderHistoryRepository
	Guard     *StockGuard
	Publisher EventPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func (d OrderDeps) newLifecycle() *orderLifecycle {
	return &orderLifecycle{
		tx:        d.Tx,
		orders:    d.Orders,
		guard:     d.Guard,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

type OrderUsecase struct {
	OrderDeps
	cart      *CartUsecase
	gateway   payment.Gateway
	currency  string
	lifecycle *orderLifecycle
}

func NewOrderUsecase(deps OrderDeps, cart *CartUsecase, gateway payment.Gateway, currency string) *OrderUsecase {
	return &OrderUsecase{
		OrderDeps: deps,
		cart:      cart,
		gateway:   gateway,
		currency:  currency,
		lifecycle: deps.newLifecycle(),
	}
}

type CreateOrderInput struct {
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
	IdempotencyKey  string
}

type OrderItemOutput struct {
	ProductID   int64          `json:"product_id"`
	ProductType model.Category `json:"product_type"`
	Name        string         `json:"name"`
	VariantKey  string         `json:"variant"`
	UnitPrice   int64          `json:"unit_price"`
	Quantity    int64          `json:"quantity"`
	Subtotal    int64          `json:"subtotal"`
}

type OrderOutput struct {
	OrderID         string                `json:"order_id"`
	UserID          int64                 `json:"user_id"`
	OrderStatus     model.OrderStatus     `json:"order_status"`
	PaymentMethod   model.PaymentMethod   `json:"payment_method"`
	PaymentStatus   model.PaymentStatus   `json:"payment_status"`
	TotalAmount     int64                 `json:"total_amount"`
	Currency        string                `json:"currency"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	GatewayOrderID  string                `json:"gateway_order_id,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Items           []OrderItemOutput     `json:"items"`
}

type OrderDetailOutput struct {
	OrderOutput
	History      []model.OrderStatusHistory `json:"history"`
	NextStatuses []model.OrderStatus        `json:"next_statuses"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type CreateOrderOutput struct {
	OrderID        string              `json:"order_id"`
	Amount         int64               `json:"amount"`
	Currency       string              `json:"currency"`
	PaymentMethod  model.PaymentMethod `json:"payment_method"`
	GatewayKey     string              `json:"gateway_key,omitempty"`
	GatewayOrderID string              `json:"gateway_order_id,omitempty"`
	Order          OrderOutput         `json:"order"`
	CartCleared    *LineResult         `json:"cart_cleared,omitempty"`
	// 商品が消えていたため注文から外し、カートからも消した明細
	Unavailable []model.LineRef `json:"unavailable,omitempty"`
}

// CreateOrder はカートを注文に変える。
// 在庫確保から注文作成までは1トランザクションで、失敗したら何も残らない。
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (CreateOrderOutput, error) {
	if userID <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	method := model.PaymentMethod(strings.ToLower(strings.TrimSpace(in.PaymentMethod)))
	if !method.Valid() {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
	if err := validateAddress(in.ShippingAddress); err != nil {
		return CreateOrderOutput{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	// 同じキーなら同じ結果
	if key != "" {
		if out, found, err := u.replay(ctx, userID, key); err != nil || found {
			return out, err
		}
	}

	start := time.Now()
	defer func() { u.Metrics.ObserveCheckout(time.Since(start).Seconds()) }()

	var (
		created model.Order
		items   []model.OrderItem
		orphans []model.LineRef
	)
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orphans = nil
		lines, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return model.ErrEmptyCart
		}

		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		products, err := r.Products().ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		reservations := make([]Reservation, 0, len(lines))
		items = make([]model.OrderItem, 0, len(lines))
		var total int64
		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok {
				// カタログから消えた商品は買えない。GetCart と同じく対象外にする
				orphans = append(orphans, l.Ref())
				continue
			}
			reservations = append(reservations, Reservation{ProductID: l.ProductID, Quantity: l.Quantity})

			//価格・名前・バリアントは注文時点で凍結
			sub := p.UnitPrice() * l.Quantity
			items = append(items, model.OrderItem{
				ProductID:           p.ID,
				ProductType:         p.Category,
				ProductNameSnapshot: p.Name,
				VariantKey:          l.VariantKey,
				Quantity:            l.Quantity,
				UnitPriceSnapshot:   p.UnitPrice(),
				Subtotal:            sub,
			})
			total += sub
		}
		if len(items) == 0 {
			return model.ErrEmptyCart
		}

		//在庫確保（途中で失敗したら確保済みを戻す）
		if err := u.Guard.WithInventory(r.Inventory()).ReserveAll(ctx, reservations); err != nil {
			return err
		}

		now := time.Now()
		order := model.Order{
			DisplayID:       newDisplayID(now),
			UserID:          userID,
			ShippingAddress: in.ShippingAddress,
			TotalAmount:     total,
			Currency:        u.currency,
			PaymentMethod:   method,
			PaymentStatus:   model.PaymentStatusUnpaid,
			OrderStatus:     model.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		created, err = r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}
		if err := r.OrderItems().CreateBulk(ctx, created.ID, items); err != nil {
			return err
		}
		return r.OrderHistory().Append(ctx, model.OrderStatusHistory{
			OrderID:       created.ID,
			ToStatus:      model.OrderStatusPending,
			PaymentStatus: model.PaymentStatusUnpaid,
			ActorRole:     model.RoleBuyer,
			ActorUserID:   userID,
			Reason:        "order placed",
			CreatedAt:     now,
		})
	})
	if len(orphans) > 0 && (err == nil || errors.Is(err, model.ErrEmptyCart)) {
		u.pruneOrphans(ctx, userID, orphans)
	}
	if err != nil {
		//同じキーの同時リクエストに負けた
		if errors.Is(err, repo.ErrDuplicate) && key != "" {
			if out, found, rerr := u.replay(ctx, userID, key); rerr != nil || found {
				return out, rerr
			}
		}
		if errors.Is(err, repo.ErrDuplicate) {
			return CreateOrderOutput{}, wrapHTTPError(http.StatusConflict, "order conflict, retry", err)
		}
		if !errors.Is(err, model.ErrInsufficientStock) && !errors.Is(err, model.ErrEmptyCart) {
			u.Logger.Error("create order failed", "user_id", userID, "error", err)
		}
		return CreateOrderOutput{}, toHTTPError(err)
	}

	out := CreateOrderOutput{
		OrderID:       created.DisplayID,
		Amount:        created.TotalAmount,
		Currency:      created.Currency,
		PaymentMethod: created.PaymentMethod,
		Unavailable:   orphans,
	}

	if method == model.PaymentMethodCOD {
		//代引きはこの時点で支払い確定扱い
		cleared := u.cart.ClearLines(ctx, userID, purchasedLines(items))
		out.CartCleared = &cleared
	} else {
		gwOrder, err := u.gateway.CreateOrder(ctx, payment.GatewayOrderRequest{
			Amount:   created.TotalAmount,
			Currency: created.Currency,
			Receipt:  created.DisplayID,
		})
		if err == nil {
			err = u.Orders.SetGatewayOrderID(ctx, created.ID, gwOrder.ID)
		}
		if err != nil {
			u.Logger.Error("gateway order creation failed", "order_id", created.DisplayID, "error", err)
			u.abandon(ctx, created, "payment gateway unavailable")
			return CreateOrderOutput{}, toHTTPError(fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err))
		}
		gid := gwOrder.ID
		created.GatewayOrderID = &gid
		out.GatewayKey = u.gateway.KeyID()
		out.GatewayOrderID = gid
	}

	out.Order = toOrderOutput(created, items)
	u.Metrics.Transition(string(model.OrderStatusPending), string(model.RoleBuyer))
	u.lifecycle.publish(ctx, model.TopicOrderCreated, created.DisplayID, model.OrderCreatedEvent{
		OrderID:       created.DisplayID,
		UserID:        created.UserID,
		PaymentMethod: created.PaymentMethod,
		TotalAmount:   created.TotalAmount,
		Currency:      created.Currency,
		Items:         items,
		Timestamp:     created.CreatedAt,
	})
	return out, nil
}

// ListMyOrders は新しい順
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	orders, total, err := u.Orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, toHTTPError(err)
	}
	outs, err := u.withItems(ctx, orders)
	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}, nil
}

// GetMyOrder は履歴と、購入者が次に選べる状態も返す
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID int64, displayID string) (OrderDetailOutput, error) {
	if userID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	o, err := u.Orders.FindByDisplayID(ctx, displayID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderDetailOutput{}, toHTTPError(model.ErrOrderNotFound)
	}
	if err != nil {
		return OrderDetailOutput{}, toHTTPError(err)
	}
	if o.UserID != userID {
		//他人の注文は「存在しない扱い」にする
		return OrderDetailOutput{}, toHTTPError(model.ErrOrderNotFound)
	}

	return u.detail(ctx, o, model.RoleBuyer)
}

// UpdateStatus は購入者によるキャンセル・返品依頼
func (u *OrderUsecase) UpdateStatus(ctx context.Context, userID int64, displayID string, in UpdateStatusInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	o, err := u.lifecycle.updateStatus(ctx, model.Actor{UserID: userID, Role: model.RoleBuyer}, displayID, in)
	if err != nil {
		return OrderOutput{}, err
	}
	items, err := u.Items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, toHTTPError(err)
	}
	return toOrderOutput(o, items), nil
}

func (u *OrderUsecase) replay(ctx context.Context, userID int64, key string) (CreateOrderOutput, bool, error) {
	existing, found, err := u.Orders.FindByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return CreateOrderOutput{}, false, toHTTPError(err)
	}
	if !found {
		return CreateOrderOutput{}, false, nil
	}
	items, err := u.Items.ListByOrderID(ctx, existing.ID)
	if err != nil {
		return CreateOrderOutput{}, false, toHTTPError(err)
	}

	out := CreateOrderOutput{
		OrderID:       existing.DisplayID,
		Amount:        existing.TotalAmount,
		Currency:      existing.Currency,
		PaymentMethod: existing.PaymentMethod,
		Order:         toOrderOutput(existing, items),
	}
	if existing.GatewayOrderID != nil {
		out.GatewayKey = u.gateway.KeyID()
		out.GatewayOrderID = *existing.GatewayOrderID
	}
	return out, true, nil
}

// ゲートウェイ注文が作れなかったらシステムとしてキャンセルし在庫を戻す
// 消えた商品の明細を片付ける。失敗しても次回の注文でまた外れるだけ。
func (u *OrderUsecase) pruneOrphans(ctx context.Context, userID int64, refs []model.LineRef) {
	res := u.cart.ClearLines(ctx, userID, refs)
	u.Logger.Warn("cart lines for missing products removed", "user_id", userID, "removed", len(res.Succeeded), "failed", len(res.Failed))
}

func (u *OrderUsecase) abandon(ctx context.Context, o model.Order, reason string) {
	if _, err := u.lifecycle.cancelUnpaid(ctx, o, reason); err != nil {
		u.Logger.Error("cancel after gateway failure failed", "order_id", o.DisplayID, "error", err)
	}
}

func (u *OrderUsecase) withItems(ctx context.Context, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := u.Items.ListByOrderID(ctx, o.ID)
		if err != nil {
			return []OrderOutput{}, toHTTPError(err)
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

func (u *OrderUsecase) detail(ctx context.Context, o model.Order, role model.Role) (OrderDetailOutput, error) {
	items, err := u.Items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDetailOutput{}, toHTTPError(err)
	}
	history, err := u.History.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDetailOutput{}, toHTTPError(err)
	}
	return OrderDetailOutput{
		OrderOutput:  toOrderOutput(o, items),
		History:      history,
		NextStatuses: model.NextStatuses(o.OrderStatus, role),
	}, nil
}

func validateAddress(a model.ShippingAddress) error {
	if strings.TrimSpace(a.Name) == "" ||
		strings.TrimSpace(a.Line1) == "" ||
		strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.PostalCode) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid shipping_address")
	}
	return nil
}

// ORD-YYYYMMDD-XXXXXXXX
func newDisplayID(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + now.Format("20060102") + "-" + id[:8]
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:   it.ProductID,
			ProductType: it.ProductType,
			Name:        it.ProductNameSnapshot,
			VariantKey:  it.VariantKey,
			UnitPrice:   it.UnitPriceSnapshot,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}

	out := OrderOutput{
		OrderID:         o.DisplayID,
		UserID:          o.UserID,
		OrderStatus:     o.OrderStatus,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           outItems,
	}
	if o.GatewayOrderID != nil {
		out.GatewayOrderID = *o.GatewayOrderID
	}
	return out
}
