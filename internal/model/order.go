package model

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentGateway        PaymentMethod = "gateway"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

type Payment struct {
	Status string `json:"status"`
	Type   string `json:"type,omitempty"`
}

type Order struct {
	ID            string        `json:"id"`
	OrderNumber   string        `json:"order_number"`
	Status        OrderStatus   `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalPrice    float64       `json:"total_price"`
	Payment       *Payment      `json:"payment,omitempty"`
}

// GatewayPayable reports whether the order may enter a payment session:
// only pending orders paid through the hosted gateway qualify.
func (o *Order) GatewayPayable() bool {
	return o.Status == OrderPending && o.PaymentMethod == PaymentGateway
}
