package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"cartengine/internal/domain/model"
	"cartengine/internal/domain/variant"
	"cartengine/internal/payment"
	"cartengine/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// CreateOrder
// =====================

func TestOrderUsecase_CreateOrder_COD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 1)

	out := f.checkoutCOD(t, 1)

	assert.True(t, strings.HasPrefix(out.OrderID, "ORD-"))
	assert.Equal(t, int64(150000), out.Amount)
	assert.Equal(t, "INR", out.Currency)
	assert.Equal(t, model.PaymentMethodCOD, out.PaymentMethod)
	assert.Equal(t, model.OrderStatusPending, out.Order.OrderStatus)
	assert.Equal(t, model.PaymentStatusUnpaid, out.Order.PaymentStatus)
	assert.Empty(t, out.GatewayOrderID)
	if assert.Equal(t, 1, len(out.Order.Items)) {
		it := out.Order.Items[0]
		assert.Equal(t, "Oxford Shirt", it.Name)
		assert.Equal(t, "size:M", it.VariantKey)
		assert.Equal(t, int64(150000), it.UnitPrice)
	}

	// 購入した明細はカートから消える
	if assert.NotNil(t, out.CartCleared) {
		assert.Equal(t, 1, len(out.CartCleared.Succeeded))
	}
	cart, err := f.cart.GetCart(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(cart.Groups))

	assert.Equal(t, int64(4), f.stock(t, p.ID))
	f.publisher.AssertCalled(t, "Publish", mock.Anything, model.TopicOrderCreated, out.OrderID, mock.Anything)
	f.gateway.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestOrderUsecase_CreateOrder_PriceIsFrozen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 2)

	out := f.checkoutCOD(t, 1)

	// 注文後に値下げしても注文の金額は変わらない
	p.DiscountedPrice = 1000
	f.store.PutProduct(p)

	detail, err := f.orders.GetMyOrder(ctx, 1, out.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, int64(300000), detail.TotalAmount)
	assert.Equal(t, int64(150000), detail.Items[0].UnitPrice)
}

func TestOrderUsecase_CreateOrder_InsufficientStock_LeavesCartAndStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(2)
	f.addShirt(t, 1, p, "M", 2)

	// カート投入後に他で売れた
	ok, err := f.store.Inventory().DecreaseStockIfEnough(ctx, p.ID, 1)
	assert.True(t, ok)
	assert.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "cod"})
	assertHTTPStatus(t, err, http.StatusConflict)

	var ise *model.InsufficientStockError
	if assert.True(t, errors.As(err, &ise)) {
		assert.Equal(t, int64(2), ise.Requested)
		assert.Equal(t, int64(1), ise.Available)
	}

	cart, _ := f.cart.GetCart(ctx, 1)
	assert.Equal(t, int64(2), cart.TotalQuantity)
	assert.Equal(t, int64(1), f.stock(t, p.ID))

	list, err := f.orders.ListMyOrders(ctx, 1, 1, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), list.Total)
}

func TestOrderUsecase_CreateOrder_PartialFailureRestoresEarlierLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.shirt(5)
	b := f.phone(1)
	f.addShirt(t, 1, a, "S", 3)
	_, err := f.cart.AddToCart(ctx, 1, usecase.AddCartInput{
		ProductID: b.ID, ProductType: "Electronics", Quantity: 1,
		Selection: variant.Selection{Ram: "8GB", Storage: "128GB"},
	})
	assert.NoError(t, err)
	ok, _ := f.store.Inventory().DecreaseStockIfEnough(ctx, b.ID, 1)
	assert.True(t, ok)

	_, err = f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "cod"})
	assert.True(t, errors.Is(err, model.ErrInsufficientStock))

	assert.Equal(t, int64(5), f.stock(t, a.ID))
	assert.Equal(t, int64(0), f.stock(t, b.ID))
}

// 同じ商品の別バリアントは合算して在庫と比べる
func TestOrderUsecase_CreateOrder_VariantsShareProductStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(3)
	f.addShirt(t, 1, p, "M", 2)
	f.addShirt(t, 1, p, "L", 2)

	_, err := f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "cod"})
	assertHTTPStatus(t, err, http.StatusConflict)

	var ise *model.InsufficientStockError
	if assert.True(t, errors.As(err, &ise)) {
		assert.Equal(t, p.ID, ise.ProductID)
		assert.Equal(t, int64(4), ise.Requested)
		assert.Equal(t, int64(3), ise.Available)
	}
	assert.Equal(t, int64(3), f.stock(t, p.ID))

	cart, _ := f.cart.GetCart(ctx, 1)
	assert.Equal(t, int64(4), cart.TotalQuantity)
}

// カタログから消えた商品の明細は注文から外れ、カートからも消える
func TestOrderUsecase_CreateOrder_SkipsLinesForMissingProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.shirt(5)
	b := f.phone(3)
	f.addShirt(t, 1, a, "M", 1)
	_, err := f.cart.AddToCart(ctx, 1, usecase.AddCartInput{
		ProductID: b.ID, ProductType: "Electronics", Quantity: 1,
		Selection: variant.Selection{Ram: "8GB", Storage: "128GB"},
	})
	assert.NoError(t, err)

	f.store.DeleteProduct(b.ID)

	cart, err := f.cart.GetCart(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(cart.Groups))
	assert.Equal(t, int64(1), cart.TotalQuantity)

	out, err := f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "cod"})
	assert.NoError(t, err)
	assert.Equal(t, int64(150000), out.Amount)
	assert.Equal(t, 1, len(out.Order.Items))
	assert.Equal(t, []model.LineRef{{ProductID: b.ID, VariantKey: "ram:8GB|storage:128GB"}}, out.Unavailable)
	assert.Equal(t, int64(4), f.stock(t, a.ID))

	lines, err := f.store.CartItems().ListByUserID(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(lines))
}

func TestOrderUsecase_CreateOrder_OnlyMissingProductsIsEmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 2)
	f.store.DeleteProduct(p.ID)

	_, err := f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "cod"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	assert.True(t, errors.Is(err, model.ErrEmptyCart))

	// 見えない明細は残さない
	lines, err := f.store.CartItems().ListByUserID(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(lines))

	list, err := f.orders.ListMyOrders(ctx, 1, 1, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), list.Total)
}

func TestOrderUsecase_CreateOrder_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 1)

	_, err := f.orders.CreateOrder(ctx, 0, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "cod"})
	assertHTTPStatus(t, err, http.StatusUnauthorized)

	_, err = f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "card"})
	assertErrContains(t, err, "invalid payment_method")

	addr := testAddress()
	addr.PostalCode = ""
	_, err = f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: addr, PaymentMethod: "cod"})
	assertErrContains(t, err, "invalid shipping_address")

	_, err = f.orders.CreateOrder(ctx, 2, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "cod"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	assert.True(t, errors.Is(err, model.ErrEmptyCart))

	assert.Equal(t, int64(5), f.stock(t, p.ID))
}

func TestOrderUsecase_CreateOrder_Gateway(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "L", 2)

	f.gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req payment.GatewayOrderRequest) bool {
		return req.Amount == 300000 && req.Currency == "INR" && strings.HasPrefix(req.Receipt, "ORD-")
	})).Return(payment.GatewayOrder{ID: "order_gw_1", Status: "created"}, nil).Once()

	out, err := f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "Gateway"})
	assert.NoError(t, err)
	assert.Equal(t, "rzp_test_key", out.GatewayKey)
	assert.Equal(t, "order_gw_1", out.GatewayOrderID)
	assert.Equal(t, int64(300000), out.Amount)
	assert.Nil(t, out.CartCleared)

	// 支払い確定まではカートを残す
	cart, _ := f.cart.GetCart(ctx, 1)
	assert.Equal(t, int64(2), cart.TotalQuantity)
	assert.Equal(t, int64(3), f.stock(t, p.ID))

	o := f.order(t, out.OrderID)
	if assert.NotNil(t, o.GatewayOrderID) {
		assert.Equal(t, "order_gw_1", *o.GatewayOrderID)
	}
	f.gateway.AssertExpectations(t)
}

func TestOrderUsecase_CreateOrder_GatewayDown_CancelsAndRestocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "L", 2)

	f.gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(payment.GatewayOrder{}, errors.New("connection refused")).Once()

	_, err := f.orders.CreateOrder(ctx, 1, usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "gateway"})
	assertHTTPStatus(t, err, http.StatusBadGateway)
	assert.True(t, errors.Is(err, model.ErrGatewayUnavailable))

	assert.Equal(t, int64(5), f.stock(t, p.ID))
	cart, _ := f.cart.GetCart(ctx, 1)
	assert.Equal(t, int64(2), cart.TotalQuantity)

	list, err := f.orders.ListMyOrders(ctx, 1, 1, 20)
	assert.NoError(t, err)
	if assert.Equal(t, 1, len(list.Items)) {
		assert.Equal(t, model.OrderStatusCancelled, list.Items[0].OrderStatus)
		assert.Equal(t, model.PaymentStatusFailed, list.Items[0].PaymentStatus)
	}
}

func TestOrderUsecase_CreateOrder_IdempotencyKeyReplays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 1)

	in := usecase.CreateOrderInput{ShippingAddress: testAddress(), PaymentMethod: "cod", IdempotencyKey: "k-123"}
	first, err := f.orders.CreateOrder(ctx, 1, in)
	assert.NoError(t, err)

	second, err := f.orders.CreateOrder(ctx, 1, in)
	assert.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.Amount, second.Amount)

	list, _ := f.orders.ListMyOrders(ctx, 1, 1, 20)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, int64(4), f.stock(t, p.ID))
}

// =====================
// 参照
// =====================

func TestOrderUsecase_GetMyOrder_OtherUserIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 1)
	out := f.checkoutCOD(t, 1)

	_, err := f.orders.GetMyOrder(ctx, 2, out.OrderID)
	assertHTTPStatus(t, err, http.StatusNotFound)

	_, err = f.orders.UpdateStatus(ctx, 2, out.OrderID, usecase.UpdateStatusInput{Status: "cancelled"})
	assertHTTPStatus(t, err, http.StatusNotFound)
	assert.Equal(t, model.OrderStatusPending, f.order(t, out.OrderID).OrderStatus)

	_, err = f.orders.GetMyOrder(ctx, 1, "ORD-00000000-NOPE")
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_GetMyOrder_Detail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 1)
	out := f.checkoutCOD(t, 1)

	d, err := f.orders.GetMyOrder(ctx, 1, out.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, out.OrderID, d.OrderID)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusCancelled}, d.NextStatuses)
	if assert.Equal(t, 1, len(d.History)) {
		assert.Equal(t, model.OrderStatusPending, d.History[0].ToStatus)
		assert.Equal(t, model.RoleBuyer, d.History[0].ActorRole)
	}
}

func TestOrderUsecase_ListMyOrders_NewestFirstAndPaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(10)

	ids := []string{}
	for i := 0; i < 3; i++ {
		f.addShirt(t, 1, p, "M", 1)
		ids = append(ids, f.checkoutCOD(t, 1).OrderID)
	}

	list, err := f.orders.ListMyOrders(ctx, 1, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	if assert.Equal(t, 2, len(list.Items)) {
		assert.Equal(t, ids[2], list.Items[0].OrderID)
		assert.Equal(t, ids[1], list.Items[1].OrderID)
	}

	list, err = f.orders.ListMyOrders(ctx, 1, 2, 2)
	assert.NoError(t, err)
	if assert.Equal(t, 1, len(list.Items)) {
		assert.Equal(t, ids[0], list.Items[0].OrderID)
	}

	_, err = f.orders.ListMyOrders(ctx, 1, 1, 500)
	assertErrContains(t, err, "invalid limit")
	_, err = f.orders.ListMyOrders(ctx, 1, -1, 20)
	assertErrContains(t, err, "invalid page")
}

// =====================
// 購入者の状態変更
// =====================

func TestOrderUsecase_UpdateStatus_BuyerCancelRestocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 2)
	out := f.checkoutCOD(t, 1)
	assert.Equal(t, int64(3), f.stock(t, p.ID))

	res, err := f.orders.UpdateStatus(ctx, 1, out.OrderID, usecase.UpdateStatusInput{Status: "CANCELLED", Reason: "changed my mind"})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, res.OrderStatus)
	assert.Equal(t, int64(5), f.stock(t, p.ID))

	d, _ := f.orders.GetMyOrder(ctx, 1, out.OrderID)
	if assert.Equal(t, 2, len(d.History)) {
		h := d.History[1]
		assert.Equal(t, model.OrderStatusPending, h.FromStatus)
		assert.Equal(t, model.OrderStatusCancelled, h.ToStatus)
		assert.Equal(t, "changed my mind", h.Reason)
	}
	assert.Empty(t, d.NextStatuses)
	f.publisher.AssertCalled(t, "Publish", mock.Anything, model.TopicOrderStatusChanged, out.OrderID, mock.Anything)

	// 終端からは動かない。在庫も二重に戻らない
	_, err = f.orders.UpdateStatus(ctx, 1, out.OrderID, usecase.UpdateStatusInput{Status: "cancelled"})
	assertHTTPStatus(t, err, http.StatusConflict)
	assert.Equal(t, int64(5), f.stock(t, p.ID))
}

func TestOrderUsecase_UpdateStatus_CancelAfterShippedIsIllegal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 1)
	out := f.checkoutCOD(t, 1)
	f.advance(t, out.OrderID, model.OrderStatusProcessing, model.OrderStatusShipped)

	_, err := f.orders.UpdateStatus(ctx, 1, out.OrderID, usecase.UpdateStatusInput{Status: "cancelled"})
	assertHTTPStatus(t, err, http.StatusConflict)
	assert.True(t, errors.Is(err, model.ErrIllegalTransition))

	assert.Equal(t, model.OrderStatusShipped, f.order(t, out.OrderID).OrderStatus)
	assert.Equal(t, int64(4), f.stock(t, p.ID))
}

func TestOrderUsecase_UpdateStatus_ReturnRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 1)
	pending := f.checkoutCOD(t, 1)

	_, err := f.orders.UpdateStatus(ctx, 1, pending.OrderID, usecase.UpdateStatusInput{Status: "return_requested"})
	assertHTTPStatus(t, err, http.StatusConflict)

	f.addShirt(t, 1, p, "M", 1)
	delivered := f.checkoutCOD(t, 1)
	f.advance(t, delivered.OrderID, model.OrderStatusProcessing, model.OrderStatusShipped, model.OrderStatusDelivered)

	res, err := f.orders.UpdateStatus(ctx, 1, delivered.OrderID, usecase.UpdateStatusInput{Status: "return_requested", Reason: "wrong size"})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusReturnRequested, res.OrderStatus)
}

func TestOrderUsecase_UpdateStatus_InvalidStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.shirt(5)
	f.addShirt(t, 1, p, "M", 1)
	out := f.checkoutCOD(t, 1)

	_, err := f.orders.UpdateStatus(ctx, 1, out.OrderID, usecase.UpdateStatusInput{Status: "PAID"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	assert.True(t, errors.Is(err, model.ErrInvalidStatus))
}
