package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"storefront/internal/model"
	"storefront/internal/poller"
)

type State string

const (
	StateVerifying       State = "verifying"
	StateCreatingSession State = "creating_session"
	StateAwaitingPayment State = "awaiting_payment"
	StateReconciling     State = "reconciling"
	StateConfirmed       State = "confirmed"
	StateCancelled       State = "cancelled"
	StateFailed          State = "failed"
	StateUnknown         State = "unknown"
)

func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateCancelled, StateFailed, StateUnknown:
		return true
	}
	return false
}

var (
	ErrIneligibleOrder = errors.New("order is not payable through the gateway")
	ErrNotRetryable    = errors.New("session is not in a retryable state")
)

// Gateway is the slice of the backend the session needs.
type Gateway interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	CreatePaymentSession(ctx context.Context, orderID string) (string, error)
	GetPaymentStatus(ctx context.Context, orderID string) (*model.PaymentStatus, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, userID string, role model.Role, data model.NotificationData) error
}

// Session drives exactly one checkout attempt for one order: eligibility
// check, checkout token, classification of the embedded surface's
// navigation events, and reconciliation against the backend. It is never
// persisted and dies with its owning screen.
type Session struct {
	orderID     string
	userID      string
	role        model.Role
	gateway     Gateway
	notifier    Notifier
	poller      poller.Poller
	checkoutURL string

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	token       string
	total       float64
	lastEvent   Outcome
	attempts    int
	reconciling bool
	route       string
	alert       string
	done        chan struct{}
	finished    bool
}

// Start runs Verifying and CreatingSession. On success the session is left
// in AwaitingPayment and the hosted checkout URL is returned.
func (s *Session) Start(ctx context.Context) (string, error) {
	s.setState(StateVerifying)

	order, err := s.gateway.GetOrder(ctx, s.orderID)
	if err != nil {
		s.fail("Could not load the order. Try again.")
		return "", fmt.Errorf("verify order: %w", err)
	}
	if !order.GatewayPayable() {
		s.fail("This order can no longer be paid through the gateway.")
		return "", ErrIneligibleOrder
	}

	s.mu.Lock()
	s.total = order.TotalPrice
	s.mu.Unlock()

	s.setState(StateCreatingSession)

	token, err := s.gateway.CreatePaymentSession(ctx, s.orderID)
	if err != nil {
		s.fail("Could not start the payment. Try again.")
		return "", fmt.Errorf("create payment session: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.state = StateAwaitingPayment
	url := fmt.Sprintf(s.checkoutURL, token)
	s.mu.Unlock()

	return url, nil
}

// HandleNavigation classifies one navigation target from the embedded
// surface and advances the state machine. Unclassified targets and any
// event arriving outside AwaitingPayment are idempotent no-ops; in
// particular a rapid second Finished event cannot start a second
// reconciliation loop.
func (s *Session) HandleNavigation(target string) Outcome {
	outcome := Classify(target)
	if outcome == OutcomeUnclassified {
		return outcome
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastEvent = outcome
	if s.state != StateAwaitingPayment || s.reconciling {
		return outcome
	}

	switch outcome {
	case OutcomeFinished:
		s.reconciling = true
		s.state = StateReconciling
		go s.reconcile()
	case OutcomeUnfinished:
		s.state = StateCancelled
		s.alert = "Payment was not completed. The order is still awaiting payment."
		s.finishLocked()
	case OutcomeError:
		s.state = StateFailed
		s.alert = "The payment gateway reported an error. You can retry the payment."
		s.finishLocked()
	}

	return outcome
}

// reconcile polls the backend until it reports the order paid or the
// budget runs out. It runs at most once per Finished classification and is
// serialized by the reconciling flag.
func (s *Session) reconcile() {
	res, err := s.poller.Poll(s.ctx, func(ctx context.Context) (bool, error) {
		status, err := s.gateway.GetPaymentStatus(ctx, s.orderID)
		if err != nil {
			return false, err
		}
		return status.Paid(), nil
	})

	s.mu.Lock()
	s.attempts = res.Attempts
	s.reconciling = false

	if err != nil {
		// Cancelled mid-poll: the owning screen is gone, discard
		// without touching state or notifying.
		s.mu.Unlock()
		return
	}

	if !res.Satisfied {
		s.state = StateUnknown
		s.alert = "Payment status is still processing. Check your order list shortly."
		s.route = "/orders"
		s.finishLocked()
		s.mu.Unlock()
		slog.Info("reconciliation exhausted", "order", s.orderID, "attempts", res.Attempts)
		return
	}

	s.mu.Unlock()

	// Both records must be in the log before Done fires or the route is
	// readable, so the UI never lands on the confirmed screen ahead of
	// its notifications.
	s.notifyConfirmed()

	s.mu.Lock()
	s.state = StateConfirmed
	s.route = "/orders/" + s.orderID
	s.finishLocked()
	s.mu.Unlock()

	slog.Info("payment confirmed", "order", s.orderID, "attempts", res.Attempts)
}

func (s *Session) notifyConfirmed() {
	s.mu.Lock()
	total := s.total
	s.mu.Unlock()

	// The payment is settled once the poll is satisfied; a teardown
	// racing the dispatch must not lose the records.
	ctx := context.WithoutCancel(s.ctx)

	success := model.NotificationData{Type: model.NotificationPaymentSuccess, OrderID: s.orderID, Amount: total}
	if err := s.notifier.Dispatch(ctx, s.userID, s.role, success); err != nil {
		slog.Error("payment success notification failed", "order", s.orderID, "error", err)
	}

	paid := model.NotificationData{Type: model.NotificationOrderStatus, OrderID: s.orderID, Status: string(model.OrderPaid)}
	if err := s.notifier.Dispatch(ctx, s.userID, s.role, paid); err != nil {
		slog.Error("order paid notification failed", "order", s.orderID, "error", err)
	}
}

// Retry re-enters Verifying from a user-retryable terminal state.
func (s *Session) Retry(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateFailed && s.state != StateCancelled {
		s.mu.Unlock()
		return "", ErrNotRetryable
	}
	s.alert = ""
	s.route = ""
	s.lastEvent = OutcomeUnclassified
	s.attempts = 0
	s.done = make(chan struct{})
	s.finished = false
	s.mu.Unlock()

	return s.Start(ctx)
}

// Close tears the session down; a poll in flight stops scheduling further
// attempts and applies no effects afterwards.
func (s *Session) Close() {
	s.cancel()
}

// Done is closed when the session reaches a terminal state. Retry replaces
// the channel.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) UserID() string { return s.userID }

// Snapshot is what the UI layer reads: current state, where to go next,
// and what to tell the user.
type Snapshot struct {
	OrderID   string  `json:"order_id"`
	State     State   `json:"state"`
	Route     string  `json:"route,omitempty"`
	Alert     string  `json:"alert,omitempty"`
	LastEvent Outcome `json:"-"`
	Attempts  int     `json:"-"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		OrderID:   s.orderID,
		State:     s.state,
		Route:     s.route,
		Alert:     s.alert,
		LastEvent: s.lastEvent,
		Attempts:  s.attempts,
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) fail(alert string) {
	s.mu.Lock()
	s.state = StateFailed
	s.alert = alert
	s.finishLocked()
	s.mu.Unlock()
}

func (s *Session) finishLocked() {
	if !s.finished {
		s.finished = true
		close(s.done)
	}
}
