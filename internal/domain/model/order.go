package model

import "time"

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturnApproved  OrderStatus = "return_approved"
	OrderStatusReturnRejected  OrderStatus = "return_rejected"
	OrderStatusReturnCompleted OrderStatus = "return_completed"
)

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodGateway PaymentMethod = "gateway"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusFailed PaymentStatus = "failed"
)

// 配送先（注文時点でコピーして凍結する）
type ShippingAddress struct {
	Name       string `gorm:"column:ship_name;type:varchar(255);not null" json:"name"`
	Phone      string `gorm:"column:ship_phone;type:varchar(30)" json:"phone"`
	Line1      string `gorm:"column:ship_line1;type:varchar(255);not null" json:"line1"`
	Line2      string `gorm:"column:ship_line2;type:varchar(255)" json:"line2"`
	City       string `gorm:"column:ship_city;type:varchar(255);not null" json:"city"`
	State      string `gorm:"column:ship_state;type:varchar(255)" json:"state"`
	PostalCode string `gorm:"column:ship_postal_code;type:varchar(20);not null" json:"postal_code"`
	Country    string `gorm:"column:ship_country;type:varchar(100)" json:"country"`
}

// 注文。作成後に変わるのはステータスと決済参照だけ。
type Order struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	DisplayID string `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_id"`
	UserID    int64  `gorm:"not null;index;uniqueIndex:ux_order_idem,priority:1" json:"user_id"`

	ShippingAddress ShippingAddress `gorm:"embedded" json:"shipping_address"`
	TotalAmount     int64           `gorm:"not null" json:"total_amount"`
	Currency        string          `gorm:"type:varchar(3);not null" json:"currency"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	OrderStatus   OrderStatus   `gorm:"type:varchar(30);not null;index" json:"order_status"`

	// gateway のときだけ入る
	GatewayOrderID   *string `gorm:"type:varchar(255);uniqueIndex" json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string `gorm:"type:varchar(255)" json:"gateway_payment_id,omitempty"`
	GatewaySignature *string `gorm:"type:varchar(255)" json:"-"`

	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex:ux_order_idem,priority:2" json:"-"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusReturnRequested, OrderStatusReturnApproved,
		OrderStatusReturnRejected, OrderStatusReturnCompleted:
		return true
	}
	return false
}

// 終端状態からはどこにも行けない
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturnCompleted || s == OrderStatusReturnRejected
}

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodGateway
}

type transitionKey struct {
	from OrderStatus
	to   OrderStatus
}

// 状態遷移表。1ステップのみ、実行できるロールを限定する。
var orderTransitions = map[transitionKey][]Role{
	{OrderStatusPending, OrderStatusCancelled}:    {RoleBuyer, RoleVendor, RoleSystem},
	{OrderStatusProcessing, OrderStatusCancelled}: {RoleBuyer, RoleVendor, RoleSystem},

	{OrderStatusPending, OrderStatusProcessing}: {RoleVendor},
	{OrderStatusProcessing, OrderStatusShipped}: {RoleVendor},
	{OrderStatusShipped, OrderStatusDelivered}:  {RoleVendor},

	{OrderStatusDelivered, OrderStatusReturnRequested}:      {RoleBuyer},
	{OrderStatusReturnRequested, OrderStatusReturnApproved}: {RoleVendor},
	{OrderStatusReturnRequested, OrderStatusReturnRejected}: {RoleVendor},
	{OrderStatusReturnApproved, OrderStatusReturnCompleted}: {RoleVendor},
}

// CanTransition は (現在, 要求, ロール) が遷移表にあるかを返す。
func CanTransition(from, to OrderStatus, role Role) bool {
	roles, ok := orderTransitions[transitionKey{from: from, to: to}]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// NextStatuses はそのロールが今の状態から選べる遷移先。
func NextStatuses(from OrderStatus, role Role) []OrderStatus {
	all := []OrderStatus{
		OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusReturnRequested, OrderStatusReturnApproved, OrderStatusReturnRejected,
		OrderStatusReturnCompleted,
	}
	out := make([]OrderStatus, 0, 2)
	for _, to := range all {
		if CanTransition(from, to, role) {
			out = append(out, to)
		}
	}
	return out
}
