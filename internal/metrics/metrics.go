package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cartengine"

// Metrics は在庫・注文・決済まわりのカウンタ。nil のままでも呼べる。
type Metrics struct {
	StockReservations  *prometheus.CounterVec
	CartMutations      *prometheus.CounterVec
	OrderTransitions   *prometheus.CounterVec
	PaymentConfirms    *prometheus.CounterVec
	CheckoutLatencySec prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StockReservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservations_total",
			Help:      "Stock reservation attempts by result.",
		}, []string{"result"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart and wishlist mutations by operation and result.",
		}, []string{"op", "result"}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions by target status and actor role.",
		}, []string{"to", "role"}),
		PaymentConfirms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Payment confirmation callbacks by result.",
		}, []string{"result"}),
		CheckoutLatencySec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "CreateOrder latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.StockReservations, m.CartMutations, m.OrderTransitions, m.PaymentConfirms, m.CheckoutLatencySec)
	return m
}

func (m *Metrics) Reservation(result string) {
	if m == nil {
		return
	}
	m.StockReservations.WithLabelValues(result).Inc()
}

func (m *Metrics) CartMutation(op, result string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Transition(to, role string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(to, role).Inc()
}

func (m *Metrics) PaymentConfirm(result string) {
	if m == nil {
		return
	}
	m.PaymentConfirms.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCheckout(seconds float64) {
	if m == nil {
		return
	}
	m.CheckoutLatencySec.Observe(seconds)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
