package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
	"storefront/internal/poller"
)

type fakeGateway struct {
	mu          sync.Mutex
	order       *model.Order
	orderErr    error
	token       string
	tokenErr    error
	statusFn    func(call int) (*model.PaymentStatus, error)
	createCalls int
	statusCalls int
}

func (g *fakeGateway) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	o := *g.order
	return &o, nil
}

func (g *fakeGateway) CreatePaymentSession(ctx context.Context, orderID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.tokenErr != nil {
		return "", g.tokenErr
	}
	return g.token, nil
}

func (g *fakeGateway) GetPaymentStatus(ctx context.Context, orderID string) (*model.PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusFn != nil {
		return g.statusFn(g.statusCalls)
	}
	return &model.PaymentStatus{PaymentStatus: "pending"}, nil
}

func (g *fakeGateway) calls() (create, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls, g.statusCalls
}

type fakeNotifier struct {
	mu         sync.Mutex
	dispatched []model.NotificationData
}

func (n *fakeNotifier) Dispatch(ctx context.Context, userID string, role model.Role, data model.NotificationData) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dispatched = append(n.dispatched, data)
	return nil
}

func (n *fakeNotifier) records() []model.NotificationData {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.NotificationData(nil), n.dispatched...)
}

// blockingNotifier parks every Dispatch until release is closed, holding
// the confirmation sequence open so tests can observe its intermediate
// state.
type blockingNotifier struct {
	fakeNotifier
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (n *blockingNotifier) Dispatch(ctx context.Context, userID string, role model.Role, data model.NotificationData) error {
	n.once.Do(func() { close(n.started) })
	select {
	case <-n.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return n.fakeNotifier.Dispatch(ctx, userID, role, data)
}

func pendingOrder(id string) *model.Order {
	return &model.Order{
		ID:            id,
		OrderNumber:   "1001",
		Status:        model.OrderPending,
		PaymentMethod: model.PaymentGateway,
		TotalPrice:    125000,
	}
}

func newTestManager(gw *fakeGateway, n Notifier) *Manager {
	p := poller.Poller{MaxAttempts: 5, Delay: time.Millisecond}
	return NewManager(gw, n, p, "https://pay.example/checkout/%s")
}

func waitTerminal(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session never reached a terminal state, stuck in %s", s.State())
	}
}

func TestStart_IneligibleOrder_NoSessionCreated(t *testing.T) {
	tests := []struct {
		name  string
		order *model.Order
	}{
		{"already paid", &model.Order{ID: "o1", Status: model.OrderPaid, PaymentMethod: model.PaymentGateway}},
		{"shipped", &model.Order{ID: "o1", Status: model.OrderShipped, PaymentMethod: model.PaymentGateway}},
		{"cash on delivery", &model.Order{ID: "o1", Status: model.OrderPending, PaymentMethod: model.PaymentCashOnDelivery}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{order: tt.order, token: "tok123"}
			mgr := newTestManager(gw, &fakeNotifier{})

			s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)

			require.ErrorIs(t, err, ErrIneligibleOrder)
			assert.Equal(t, StateFailed, s.State())
			create, _ := gw.calls()
			assert.Equal(t, 0, create, "ineligible order must not create a session")
		})
	}
}

func TestStart_SessionCreationFailure(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), tokenErr: errors.New("backend unavailable")}
	mgr := newTestManager(gw, &fakeNotifier{})

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIneligibleOrder)
	assert.Equal(t, StateFailed, s.State())
}

func TestStart_ReturnsCheckoutURL(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	mgr := newTestManager(gw, &fakeNotifier{})

	s, url, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/checkout/tok123", url)
	assert.Equal(t, StateAwaitingPayment, s.State())
}

func TestFullFlow_PaidOnSecondPoll(t *testing.T) {
	gw := &fakeGateway{
		order: pendingOrder("o1"),
		token: "tok123",
		statusFn: func(call int) (*model.PaymentStatus, error) {
			if call == 1 {
				return &model.PaymentStatus{PaymentStatus: "pending"}, nil
			}
			return &model.PaymentStatus{PaymentStatus: "paid"}, nil
		},
	}
	notifier := &fakeNotifier{}
	mgr := newTestManager(gw, notifier)

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	outcome := s.HandleNavigation("https://gateway.example/redirect?transaction_status=capture")
	assert.Equal(t, OutcomeFinished, outcome)
	waitTerminal(t, s)

	assert.Equal(t, StateConfirmed, s.State())
	_, status := gw.calls()
	assert.Equal(t, 2, status, "must confirm after exactly 2 poll attempts")

	records := notifier.records()
	require.Len(t, records, 2, "exactly one payment-success and one order-paid notification")
	assert.Equal(t, model.NotificationPaymentSuccess, records[0].Type)
	assert.Equal(t, model.NotificationOrderStatus, records[1].Type)
	assert.Equal(t, "paid", records[1].Status)

	snap := s.Snapshot()
	assert.Equal(t, "/orders/o1", snap.Route, "confirmed flow routes to order detail")
}

func TestConfirmed_NotificationsPrecedeTerminalSignal(t *testing.T) {
	gw := &fakeGateway{
		order: pendingOrder("o1"),
		token: "tok123",
		statusFn: func(call int) (*model.PaymentStatus, error) {
			return &model.PaymentStatus{PaymentStatus: "paid"}, nil
		},
	}
	notifier := newBlockingNotifier()
	mgr := newTestManager(gw, notifier)

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	s.HandleNavigation("https://gateway.example/redirect?transaction_status=settlement")

	select {
	case <-notifier.started:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never started")
	}

	// Dispatch is in flight: the terminal signal, confirmed state and
	// route must all still be withheld.
	select {
	case <-s.Done():
		t.Fatal("Done fired before the notifications were appended")
	default:
	}
	snap := s.Snapshot()
	assert.Equal(t, StateReconciling, snap.State)
	assert.Empty(t, snap.Route)
	assert.Empty(t, notifier.records())

	close(notifier.release)
	waitTerminal(t, s)

	assert.Equal(t, StateConfirmed, s.State())
	require.Len(t, notifier.records(), 2)
	assert.Equal(t, "/orders/o1", s.Snapshot().Route)
}

func TestClose_DuringDispatch_RecordsStillAppended(t *testing.T) {
	gw := &fakeGateway{
		order: pendingOrder("o1"),
		token: "tok123",
		statusFn: func(call int) (*model.PaymentStatus, error) {
			return &model.PaymentStatus{PaymentStatus: "paid"}, nil
		},
	}
	notifier := newBlockingNotifier()
	mgr := newTestManager(gw, notifier)

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	s.HandleNavigation("https://gateway.example/redirect?transaction_status=settlement")

	select {
	case <-notifier.started:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never started")
	}

	// The payment is already settled; tearing the screen down now must
	// not lose the records.
	s.Close()
	close(notifier.release)
	waitTerminal(t, s)

	assert.Equal(t, StateConfirmed, s.State())
	require.Len(t, notifier.records(), 2)
	assert.Equal(t, model.NotificationPaymentSuccess, notifier.records()[0].Type)
	assert.Equal(t, model.NotificationOrderStatus, notifier.records()[1].Type)
}

func TestReconciliation_Exhausted_Unknown(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	notifier := &fakeNotifier{}
	mgr := newTestManager(gw, notifier)

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	s.HandleNavigation("https://gateway.example/redirect?transaction_status=settlement")
	waitTerminal(t, s)

	assert.Equal(t, StateUnknown, s.State())
	_, status := gw.calls()
	assert.Equal(t, 5, status)
	assert.Empty(t, notifier.records(), "exhaustion must not dispatch success notifications")

	snap := s.Snapshot()
	assert.Equal(t, "/orders", snap.Route, "unknown outcome routes to order list")
	assert.NotEmpty(t, snap.Alert)
}

func TestReentrantFinishedEvents_SinglePollLoop(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	mgr := newTestManager(gw, &fakeNotifier{})

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		s.HandleNavigation("https://gateway.example/redirect?transaction_status=settlement")
	}
	waitTerminal(t, s)

	_, status := gw.calls()
	assert.Equal(t, 5, status, "poll count bounded by one loop's budget")
}

func TestUnfinishedNavigation_Cancelled(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	notifier := &fakeNotifier{}
	mgr := newTestManager(gw, notifier)

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	s.HandleNavigation("https://gateway.example/payment_incomplete?order_id=1001")
	waitTerminal(t, s)

	assert.Equal(t, StateCancelled, s.State())
	_, status := gw.calls()
	assert.Equal(t, 0, status, "cancelled flow never polls")
	assert.Empty(t, notifier.records())
}

func TestErrorNavigation_Failed_ThenRetry(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	mgr := newTestManager(gw, &fakeNotifier{})

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	s.HandleNavigation("https://gateway.example/payment_error?message=declined")
	assert.Equal(t, StateFailed, s.State())

	url, err := s.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/checkout/tok123", url)
	assert.Equal(t, StateAwaitingPayment, s.State())

	snap := s.Snapshot()
	assert.Empty(t, snap.Alert, "retry clears the previous alert")
}

func TestRetry_OnlyFromRetryableStates(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	mgr := newTestManager(gw, &fakeNotifier{})

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	_, err = s.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNotRetryable, "awaiting_payment is not retryable")
}

func TestClose_MidPoll_NoLateEffects(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	notifier := &fakeNotifier{}
	p := poller.Poller{MaxAttempts: 5, Delay: 20 * time.Millisecond}
	mgr := NewManager(gw, notifier, p, "https://pay.example/checkout/%s")

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	s.HandleNavigation("https://gateway.example/redirect?transaction_status=settlement")
	mgr.Close("o1")

	time.Sleep(150 * time.Millisecond)

	assert.Empty(t, notifier.records(), "no notifications after teardown")
	_, status := gw.calls()
	assert.LessOrEqual(t, status, 1)
	assert.Equal(t, StateReconciling, s.State(), "discarded session state is left untouched")
}

func TestManager_SecondStartConflicts(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	mgr := newTestManager(gw, &fakeNotifier{})

	_, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)

	_, _, err = mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestManager_RestartAfterTerminalState(t *testing.T) {
	gw := &fakeGateway{order: pendingOrder("o1"), token: "tok123"}
	mgr := newTestManager(gw, &fakeNotifier{})

	s, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)
	s.HandleNavigation("https://gateway.example/payment_error?message=declined")
	require.Equal(t, StateFailed, s.State())

	s2, _, err := mgr.Start(context.Background(), "o1", "u1", model.RoleMember)
	require.NoError(t, err)
	assert.NotSame(t, s, s2)
	assert.Equal(t, StateAwaitingPayment, s2.State())
	assert.Error(t, s.ctx.Err(), "replaced session's context is released")
	assert.NoError(t, s2.ctx.Err())
}
