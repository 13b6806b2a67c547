package handler

import (
	"log/slog"
	"net/http"

	"github.com/pavelanni/casesim/internal/model"
)

const authRealm = `Basic realm="casesim", charset="UTF-8"`

// requireAuth checks HTTP basic credentials against the users table and puts
// the user into the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username == "" {
			unauthorized(w, r)
			return
		}

		user, err := h.store.Authenticate(username, password)
		if err != nil {
			slog.Error("failed to authenticate", "username", username, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			slog.Warn("rejected credentials", "username", username, "remote", r.RemoteAddr)
			unauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(model.ContextWithUser(r.Context(), user)))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				unauthorized(w, r)
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, http.StatusForbidden, "Forbidden")
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", authRealm)
	writeError(w, r, http.StatusUnauthorized, "Unauthorized")
}
