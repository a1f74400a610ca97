package model

import "time"

type TrackingEvent struct {
	Status      OrderStatus `json:"status"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TrackingSnapshot is a read-only projection of an order's delivery state,
// fetched per refresh and never retained between refreshes.
type TrackingSnapshot struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      OrderStatus     `json:"status"`
	Events      []TrackingEvent `json:"events,omitempty"`
}
