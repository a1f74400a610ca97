package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/backend"
	"storefront/internal/model"
	"storefront/internal/tracking"
)

// TrackingGateway is the slice of the backend the tracking screen reads.
type TrackingGateway interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetOrderTracking(ctx context.Context, orderID string) (*model.TrackingSnapshot, error)
}

func GetTrackingHandler(gateway TrackingGateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot, err := gateway.GetOrderTracking(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			switch {
			case errors.Is(err, backend.ErrOrderNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			default:
				http.Error(w, "could not load tracking", http.StatusBadGateway)
			}
			return
		}

		writeJSON(w, snapshot)
	}
}

// RefreshTrackingHandler arms the focus-triggered re-check for a displayed
// pending gateway order. The check runs after its delay in the background;
// the screen picks up the result on its next read.
func RefreshTrackingHandler(gateway TrackingGateway, refresher *tracking.Refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, role, ok := identity(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orderID := chi.URLParam(r, "orderID")
		order, err := gateway.GetOrder(r.Context(), orderID)
		if err != nil {
			switch {
			case errors.Is(err, backend.ErrOrderNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			default:
				http.Error(w, "could not load order", http.StatusBadGateway)
			}
			return
		}

		armed := refresher.OnFocus(context.Background(), order, userID, role, nil)
		writeJSON(w, map[string]bool{"armed": armed})
	}
}

// CancelTrackingRefreshHandler drops a pending re-check when the screen is
// torn down, so a late timer cannot fire against discarded state.
func CancelTrackingRefreshHandler(refresher *tracking.Refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if _, _, ok := identity(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		refresher.Cancel(chi.URLParam(r, "orderID"))
		w.WriteHeader(http.StatusNoContent)
	}
}
