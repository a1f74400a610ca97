// Package tracking opportunistically re-verifies a displayed pending
// gateway order when its screen regains focus. It is the single-shot
// sibling of the payment session's reconciliation loop.
package tracking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/model"
)

type Gateway interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetPaymentStatus(ctx context.Context, orderID string) (*model.PaymentStatus, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, userID string, role model.Role, data model.NotificationData) error
}

type pendingCheck struct {
	cancel context.CancelFunc
}

type Refresher struct {
	gateway  Gateway
	notifier Notifier
	delay    time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCheck
}

func NewRefresher(gateway Gateway, notifier Notifier, delay time.Duration) *Refresher {
	return &Refresher{
		gateway:  gateway,
		notifier: notifier,
		delay:    delay,
		pending:  map[string]*pendingCheck{},
	}
}

// OnFocus arms a single delayed payment-status check for the order. Orders
// that are not pending gateway orders are skipped. A check already pending
// for the same order is replaced. If the check reports paid, the order is
// reloaded, an inline notification is dispatched, and onPaid receives the
// fresh order; there is no navigation.
func (r *Refresher) OnFocus(ctx context.Context, order *model.Order, userID string, role model.Role, onPaid func(*model.Order)) bool {
	if !order.GatewayPayable() {
		return false
	}

	cctx, cancel := context.WithCancel(ctx)
	p := &pendingCheck{cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.pending[order.ID]; ok {
		prev.cancel()
	}
	r.pending[order.ID] = p
	r.mu.Unlock()

	go r.run(cctx, p, order.ID, userID, role, onPaid)
	return true
}

// Cancel drops the order's pending check, if any. Must be called when the
// owning screen is torn down so a late timer cannot fire.
func (r *Refresher) Cancel(orderID string) {
	r.mu.Lock()
	p, ok := r.pending[orderID]
	delete(r.pending, orderID)
	r.mu.Unlock()

	if ok {
		p.cancel()
	}
}

func (r *Refresher) run(ctx context.Context, p *pendingCheck, orderID, userID string, role model.Role, onPaid func(*model.Order)) {
	defer r.clear(orderID, p)

	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	status, err := r.gateway.GetPaymentStatus(ctx, orderID)
	if err != nil {
		// Single shot: a transient failure just means the next focus
		// will check again.
		slog.Warn("tracking refresh check failed", "order", orderID, "error", err)
		return
	}
	if !status.Paid() {
		return
	}

	fresh, err := r.gateway.GetOrder(ctx, orderID)
	if err != nil {
		slog.Error("order reload failed", "order", orderID, "error", err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	data := model.NotificationData{Type: model.NotificationOrderStatus, OrderID: orderID, Status: string(model.OrderPaid)}
	if err := r.notifier.Dispatch(ctx, userID, role, data); err != nil {
		slog.Error("tracking refresh notification failed", "order", orderID, "error", err)
	}

	if onPaid != nil {
		onPaid(fresh)
	}
}

func (r *Refresher) clear(orderID string, p *pendingCheck) {
	r.mu.Lock()
	if r.pending[orderID] == p {
		delete(r.pending, orderID)
	}
	r.mu.Unlock()
}
