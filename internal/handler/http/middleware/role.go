package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
)

// RequirePrivileged requires a manager, hr or system role
func RequirePrivileged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if !caller.Role.IsPrivileged() {
			response.HandleError(w, auth.ErrPrivilegedRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
