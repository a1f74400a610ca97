package payment

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/model"
	"storefront/internal/poller"
)

var (
	ErrSessionActive   = errors.New("a payment session is already active for this order")
	ErrSessionNotFound = errors.New("no payment session for this order")
)

// Manager owns at most one live session per order.
type Manager struct {
	gateway     Gateway
	notifier    Notifier
	poller      poller.Poller
	checkoutURL string

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(gateway Gateway, notifier Notifier, p poller.Poller, checkoutURL string) *Manager {
	return &Manager{
		gateway:     gateway,
		notifier:    notifier,
		poller:      p,
		checkoutURL: checkoutURL,
		sessions:    map[string]*Session{},
	}
}

// Start creates a session for the order and runs it to AwaitingPayment.
// A non-terminal session already registered for the order is a conflict.
// Failed sessions stay registered so the UI can read their state and
// retry.
func (m *Manager) Start(ctx context.Context, orderID, userID string, role model.Role) (*Session, string, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[orderID]; ok {
		if !existing.State().Terminal() {
			m.mu.Unlock()
			return nil, "", ErrSessionActive
		}
		existing.Close()
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		orderID:     orderID,
		userID:      userID,
		role:        role,
		gateway:     m.gateway,
		notifier:    m.notifier,
		poller:      m.poller,
		checkoutURL: m.checkoutURL,
		ctx:         sctx,
		cancel:      cancel,
		state:       StateVerifying,
		done:        make(chan struct{}),
	}
	m.sessions[orderID] = s
	m.mu.Unlock()

	url, err := s.Start(ctx)
	return s, url, err
}

func (m *Manager) Get(orderID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[orderID]
	return s, ok
}

// Close tears down and forgets the order's session, if any.
func (m *Manager) Close(orderID string) {
	m.mu.Lock()
	s, ok := m.sessions[orderID]
	delete(m.sessions, orderID)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}
