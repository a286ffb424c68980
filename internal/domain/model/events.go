package model

import "time"

const (
	TopicOrderCreated       = "order.created"
	TopicOrderPaid          = "order.paid"
	TopicOrderStatusChanged = "order.status_changed"
)

type OrderCreatedEvent struct {
	OrderID       string        `json:"order_id"`
	UserID        int64         `json:"user_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalAmount   int64         `json:"total_amount"`
	Currency      string        `json:"currency"`
	Items         []OrderItem   `json:"items"`
	Timestamp     time.Time     `json:"timestamp"`
}

type OrderPaidEvent struct {
	OrderID          string    `json:"order_id"`
	UserID           int64     `json:"user_id"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Timestamp        time.Time `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID   string      `json:"order_id"`
	UserID    int64       `json:"user_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ActorRole Role        `json:"actor_role"`
	Reason    string      `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
