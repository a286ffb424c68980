package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"cartengine/internal/domain/model"
	"cartengine/internal/domain/variant"
	"cartengine/internal/infra/memory"
	"cartengine/internal/metrics"
	"cartengine/internal/payment"
	"cartengine/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Gateway / Publisher モック
// =====================

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) CreateOrder(ctx context.Context, req payment.GatewayOrderRequest) (payment.GatewayOrder, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(payment.GatewayOrder)
	return o, args.Error(1)
}

func (m *GatewayMock) KeyID() string {
	return "rzp_test_key"
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, topic string, key string, event any) error {
	args := m.Called(ctx, topic, key, event)
	return args.Error(0)
}

// =====================
// fixture（メモリ実装で全ユースケースを組み立てる）
// =====================

const testSecret = "test_gateway_secret"

type fixture struct {
	store     *memory.Store
	metrics   *metrics.Metrics
	gateway   *GatewayMock
	publisher *PublisherMock
	verifier  *payment.Verifier

	cart     *usecase.CartUsecase
	wishlist *usecase.WishlistUsecase
	orders   *usecase.OrderUsecase
	payments *usecase.PaymentUsecase
	admin    *usecase.AdminOrderUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewMetrics(prometheus.NewRegistry())

	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	gw := new(GatewayMock)
	verifier := payment.NewVerifier(testSecret)

	guard := usecase.NewStockGuard(store.Inventory(), m, logger)
	cart := usecase.NewCartUsecase(store.CartItems(), store.Products(), store.Products(), guard, m, logger)
	wishlist := usecase.NewWishlistUsecase(store.Wishlist(), store.Products(), store.Products(), cart, m, logger)

	deps := usecase.OrderDeps{
		Tx:        store.TxManager(),
		Orders:    store.Orders(),
		Items:     store.OrderItems(),
		History:   store.OrderHistory(),
		Guard:     guard,
		Publisher: pub,
		Metrics:   m,
		Logger:    logger,
	}

	return &fixture{
		store:     store,
		metrics:   m,
		gateway:   gw,
		publisher: pub,
		verifier:  verifier,
		cart:      cart,
		wishlist:  wishlist,
		orders:    usecase.NewOrderUsecase(deps, cart, gw, "INR"),
		payments:  usecase.NewPaymentUsecase(deps, cart, verifier),
		admin:     usecase.NewAdminOrderUsecase(deps),
	}
}

func (f *fixture) shirt(stock int64) model.Product {
	return f.store.PutProduct(model.Product{
		Name:          "Oxford Shirt",
		Category:      model.CategoryFashion,
		OriginalPrice: 150000,
		InStock:       stock,
		Sizes:         []string{"S", "M", "L"},
	})
}

func (f *fixture) phone(stock int64) model.Product {
	return f.store.PutProduct(model.Product{
		Name:            "Pixel",
		Category:        model.CategoryElectronics,
		OriginalPrice:   5000000,
		DiscountedPrice: 4500000,
		InStock:         stock,
		Rams:            []string{"8GB", "12GB"},
		Storages:        []string{"128GB", "256GB"},
	})
}

func (f *fixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	n, err := f.store.Inventory().GetStock(context.Background(), productID)
	assert.NoError(t, err)
	return n
}

func (f *fixture) addShirt(t *testing.T, userID int64, p model.Product, size string, qty int64) {
	t.Helper()
	_, err := f.cart.AddToCart(context.Background(), userID, usecase.AddCartInput{
		ProductID:   p.ID,
		ProductType: "Fashion",
		Quantity:    qty,
		Selection:   variantSize(size),
	})
	assert.NoError(t, err)
}

func (f *fixture) order(t *testing.T, displayID string) model.Order {
	t.Helper()
	o, err := f.store.Orders().FindByDisplayID(context.Background(), displayID)
	assert.NoError(t, err)
	return o
}

func variantSize(size string) variant.Selection {
	return variant.Selection{Size: size}
}

func testAddress() model.ShippingAddress {
	return model.ShippingAddress{
		Name:       "Asha Rao",
		Phone:      "9999999999",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
	}
}

// =====================
// Helper: HTTPError の検査
// =====================

func assertHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "err=%v is not HTTPError", err) {
		assert.Equal(t, status, he.Status, "err=%v", err)
	}
}

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func (f *fixture) checkoutCOD(t *testing.T, userID int64) usecase.CreateOrderOutput {
	t.Helper()
	out, err := f.orders.CreateOrder(context.Background(), userID, usecase.CreateOrderInput{
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	assert.NoError(t, err)
	return out
}

// gateway 注文を作る。gatewayOrderID はモックが返すID。
func (f *fixture) checkoutGateway(t *testing.T, userID int64, gatewayOrderID string) usecase.CreateOrderOutput {
	t.Helper()
	f.gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(payment.GatewayOrder{ID: gatewayOrderID, Status: "created"}, nil).Once()

	out, err := f.orders.CreateOrder(context.Background(), userID, usecase.CreateOrderInput{
		ShippingAddress: testAddress(),
		PaymentMethod:   "gateway",
	})
	assert.NoError(t, err)
	return out
}

// 販売者として順に進める
func (f *fixture) advance(t *testing.T, displayID string, statuses ...model.OrderStatus) {
	t.Helper()
	for _, s := range statuses {
		_, err := f.admin.UpdateStatus(context.Background(), 99, displayID, usecase.UpdateStatusInput{Status: string(s)})
		assert.NoError(t, err)
	}
}
