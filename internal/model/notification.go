package model

import "time"

type NotificationType string

const (
	NotificationOrderStatus    NotificationType = "order_status"
	NotificationPaymentSuccess NotificationType = "payment_success"
	NotificationVoucher        NotificationType = "voucher"
	NotificationCart           NotificationType = "cart"
)

// NotificationData is the typed payload attached to every notification;
// its Type field discriminates tap routing.
type NotificationData struct {
	Type    NotificationType `json:"type"`
	OrderID string           `json:"order_id,omitempty"`
	Status  string           `json:"status,omitempty"`
	Amount  float64          `json:"amount,omitempty"`
}

type NotificationRecord struct {
	ID        string           `json:"id"`
	UserID    string           `json:"-"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      NotificationData `json:"data"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
