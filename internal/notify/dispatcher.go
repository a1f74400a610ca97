package notify

import (
	"context"
	"fmt"
	"log/slog"

	"storefront/internal/model"
)

// Dispatcher turns domain events into an appended log record plus a
// best-effort device notification. The append is authoritative: a failed
// device push is logged and never rolls the record back.
type Dispatcher struct {
	store  Store
	device DeviceNotifier
}

func NewDispatcher(store Store, device DeviceNotifier) *Dispatcher {
	return &Dispatcher{store: store, device: device}
}

func (d *Dispatcher) Dispatch(ctx context.Context, userID string, role model.Role, data model.NotificationData) error {
	msg, ok := messageFor(data, role)
	if !ok {
		msg = message{title: "Notification", body: "You have a new notification."}
	}

	rec := &model.NotificationRecord{
		UserID: userID,
		Title:  msg.title,
		Body:   msg.body,
		Data:   data,
	}
	if err := d.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}

	if err := d.device.Push(ctx, userID, rec.Title, rec.Body, data); err != nil {
		slog.Error("device push failed", "user", userID, "type", data.Type, "error", err)
	}

	return nil
}

func (d *Dispatcher) List(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	return d.store.List(ctx, userID)
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID string) (int, error) {
	return d.store.UnreadCount(ctx, userID)
}

func (d *Dispatcher) MarkRead(ctx context.Context, userID, id string) error {
	return d.store.MarkRead(ctx, userID, id)
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) error {
	return d.store.MarkAllRead(ctx, userID)
}

// ClearAll empties the user's log and clears the device notification
// center. The center clear is best effort, like Push.
func (d *Dispatcher) ClearAll(ctx context.Context, userID string) error {
	if err := d.store.ClearAll(ctx, userID); err != nil {
		return err
	}
	if err := d.device.Clear(ctx, userID); err != nil {
		slog.Error("device clear failed", "user", userID, "error", err)
	}
	return nil
}

// RouteFromTap maps a tapped notification's payload to an in-app
// destination. Unknown types route nowhere rather than erroring, to
// tolerate future payload shapes.
func RouteFromTap(data model.NotificationData) string {
	switch data.Type {
	case model.NotificationOrderStatus, model.NotificationPaymentSuccess:
		if data.OrderID != "" {
			return "/orders/" + data.OrderID
		}
		return "/orders"
	case model.NotificationVoucher:
		return "/vouchers"
	case model.NotificationCart:
		return "/cart"
	}
	return ""
}
