package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"
)

type registerRequest struct {
	Login    string     `json:"login"`
	Password string     `json:"password"`
	Role     model.Role `json:"role,omitempty"`
}

func RegisterHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if req.Login == "" || req.Password == "" {
			http.Error(w, "login and password required", http.StatusBadRequest)
			return
		}
		if req.Role == "" {
			req.Role = model.RoleMember
		}
		if !model.ValidRole(req.Role) {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}

		user, err := authSvc.Register(r.Context(), req.Login, req.Password, req.Role)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrLoginTaken):
				http.Error(w, "login already exists", http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		tokenString, err := issueToken(user, secret)
		if err != nil {
			http.Error(w, "token generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Authorization", "Bearer "+tokenString)
		w.WriteHeader(http.StatusOK)
	}
}
