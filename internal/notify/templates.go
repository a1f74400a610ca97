package notify

import (
	"fmt"
	"strings"

	"storefront/internal/model"
)

type message struct {
	title string
	body  string
}

type templateKey struct {
	kind   model.NotificationType
	status string
	role   model.Role
}

// Message templates keyed by (kind, status, role). Role-specific entries
// win over the role-agnostic fallback: a merchant sees "New order needs
// approval" where a member sees "Order placed".
var templates = map[templateKey]message{
	{model.NotificationPaymentSuccess, "", ""}: {"Payment successful", "Your payment of {amount} for order {order} was received."},

	{model.NotificationOrderStatus, "pending", model.RoleMember}:   {"Order placed", "Order {order} has been placed and is awaiting payment."},
	{model.NotificationOrderStatus, "pending", model.RoleMerchant}: {"New order needs approval", "Order {order} is waiting for your approval."},
	{model.NotificationOrderStatus, "paid", model.RoleMember}:      {"Order paid", "Payment for order {order} is confirmed."},
	{model.NotificationOrderStatus, "paid", model.RoleMerchant}:    {"Order paid", "Order {order} has been paid by the customer."},
	{model.NotificationOrderStatus, "processing", ""}:              {"Order processing", "Order {order} is being prepared."},
	{model.NotificationOrderStatus, "shipped", model.RoleDriver}:   {"Delivery assigned", "Order {order} is ready for delivery."},
	{model.NotificationOrderStatus, "shipped", ""}:                 {"Order shipped", "Order {order} is on its way."},
	{model.NotificationOrderStatus, "delivered", ""}:               {"Order delivered", "Order {order} has been delivered."},
	{model.NotificationOrderStatus, "cancelled", ""}:               {"Order cancelled", "Order {order} was cancelled."},
	{model.NotificationOrderStatus, "", ""}:                        {"Order update", "Order {order} status changed to {status}."},

	{model.NotificationVoucher, "", ""}: {"New voucher", "A new voucher is available in your account."},
}

// messageFor resolves the template for a payload, falling back from the
// most specific key to the kind-level default.
func messageFor(data model.NotificationData, role model.Role) (message, bool) {
	keys := []templateKey{
		{data.Type, data.Status, role},
		{data.Type, data.Status, ""},
		{data.Type, "", role},
		{data.Type, "", ""},
	}
	for _, k := range keys {
		if m, ok := templates[k]; ok {
			return render(m, data), true
		}
	}
	return message{}, false
}

func render(m message, data model.NotificationData) message {
	order := data.OrderID
	amount := ""
	if data.Amount > 0 {
		amount = fmt.Sprintf("%.2f", data.Amount)
	}
	r := strings.NewReplacer("{order}", order, "{status}", data.Status, "{amount}", amount)
	return message{title: r.Replace(m.title), body: r.Replace(m.body)}
}
