package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/model"
	"storefront/internal/mw"
	"storefront/internal/payment"
)

type sessionResponse struct {
	State       payment.State `json:"state"`
	CheckoutURL string        `json:"checkout_url,omitempty"`
}

// StartPaymentHandler opens a payment session for the order and returns
// the hosted checkout URL the shell should load into its embedded browser.
func StartPaymentHandler(mgr *payment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		orderID := chi.URLParam(r, "orderID")
		userID, role, ok := identity(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		s, url, err := mgr.Start(r.Context(), orderID, userID, role)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrSessionActive):
				http.Error(w, "payment session already active", http.StatusConflict)
			case errors.Is(err, payment.ErrIneligibleOrder):
				http.Error(w, "order is not eligible for gateway payment", http.StatusUnprocessableEntity)
			default:
				slog.Error("payment session start failed", "order", orderID, "error", err)
				http.Error(w, "could not start payment session", http.StatusBadGateway)
			}
			return
		}

		writeJSON(w, sessionResponse{State: s.State(), CheckoutURL: url})
	}
}

type navigationEvent struct {
	URL string `json:"url"`
}

// PaymentEventHandler receives one navigation target observed by the
// embedded checkout surface.
func PaymentEventHandler(mgr *payment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s, ok := ownedSession(w, r, mgr)
		if !ok {
			return
		}

		var ev navigationEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.URL == "" {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		outcome := s.HandleNavigation(ev.URL)
		writeJSON(w, map[string]string{
			"outcome": outcome.String(),
			"state":   string(s.State()),
		})
	}
}

func PaymentStateHandler(mgr *payment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s, ok := ownedSession(w, r, mgr)
		if !ok {
			return
		}

		writeJSON(w, s.Snapshot())
	}
}

func RetryPaymentHandler(mgr *payment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s, ok := ownedSession(w, r, mgr)
		if !ok {
			return
		}

		url, err := s.Retry(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrNotRetryable):
				http.Error(w, "session is not retryable", http.StatusConflict)
			case errors.Is(err, payment.ErrIneligibleOrder):
				http.Error(w, "order is not eligible for gateway payment", http.StatusUnprocessableEntity)
			default:
				slog.Error("payment retry failed", "order", s.Snapshot().OrderID, "error", err)
				http.Error(w, "could not restart payment session", http.StatusBadGateway)
			}
			return
		}

		writeJSON(w, sessionResponse{State: s.State(), CheckoutURL: url})
	}
}

// ClosePaymentHandler tears the session down when the user navigates away.
func ClosePaymentHandler(mgr *payment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if _, ok := ownedSession(w, r, mgr); !ok {
			return
		}

		mgr.Close(chi.URLParam(r, "orderID"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func ownedSession(w http.ResponseWriter, r *http.Request, mgr *payment.Manager) (*payment.Session, bool) {
	userID, _, ok := identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	s, ok := mgr.Get(chi.URLParam(r, "orderID"))
	if !ok {
		http.Error(w, "no payment session for order", http.StatusNotFound)
		return nil, false
	}
	if s.UserID() != userID {
		http.Error(w, "no payment session for order", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func identity(r *http.Request) (string, model.Role, bool) {
	userID, ok := r.Context().Value(mw.UserCtxKey).(string)
	if !ok {
		return "", "", false
	}
	role, ok := r.Context().Value(mw.RoleCtxKey).(model.Role)
	if !ok {
		role = model.RoleMember
	}
	return userID, role, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
