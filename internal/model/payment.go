package model

import "strings"

// PaymentStatus is the backend's payment-status response. The backend is
// inconsistent about which field carries the settlement signal: it may be
// payment_status, order_status, or the nested payment object.
type PaymentStatus struct {
	PaymentStatus string   `json:"payment_status,omitempty"`
	OrderStatus   string   `json:"order_status,omitempty"`
	Payment       *Payment `json:"payment,omitempty"`
	Amount        float64  `json:"amount,omitempty"`
	OrderNumber   string   `json:"order_number,omitempty"`
}

// Paid resolves the settlement signal across all three status fields with
// OR semantics.
func (p *PaymentStatus) Paid() bool {
	if paidWord(p.PaymentStatus) || paidWord(p.OrderStatus) {
		return true
	}
	return p.Payment != nil && paidWord(p.Payment.Status)
}

func paidWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "settlement", "capture":
		return true
	}
	return false
}
