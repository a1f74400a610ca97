package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/model"
	"storefront/internal/notify"
)

type notificationListResponse struct {
	Notifications []model.NotificationRecord `json:"notifications"`
	UnreadCount   int                        `json:"unread_count"`
}

func ListNotificationsHandler(dispatcher *notify.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, _, ok := identity(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		records, err := dispatcher.List(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		unread, err := dispatcher.UnreadCount(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []model.NotificationRecord{}
		}

		writeJSON(w, notificationListResponse{Notifications: records, UnreadCount: unread})
	}
}

func MarkNotificationReadHandler(dispatcher *notify.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, _, ok := identity(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "notificationID")
		if err := dispatcher.MarkRead(r.Context(), userID, id); err != nil {
			switch {
			case errors.Is(err, notify.ErrRecordNotFound):
				http.Error(w, "notification not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func MarkAllNotificationsReadHandler(dispatcher *notify.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, _, ok := identity(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := dispatcher.MarkAllRead(r.Context(), userID); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func ClearNotificationsHandler(dispatcher *notify.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, _, ok := identity(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := dispatcher.ClearAll(r.Context(), userID); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type tapRequest struct {
	Data model.NotificationData `json:"data"`
}

// RouteNotificationHandler resolves where a tapped notification should
// take the user. Unknown payload types return an empty route.
func RouteNotificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req tapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		writeJSON(w, map[string]string{"route": notify.RouteFromTap(req.Data)})
	}
}
