package auth

import (
	"net/http"
	"strings"

	"github.com/omnisupply/procurement-api/internal/common"
)

// Middleware guards admin routes with bearer token verification.
type Middleware struct {
	Verifier *Verifier
}

// RequireAdmin rejects requests without a valid admin token and attaches the
// token subject to the request context for audit logging.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.JSONError(w, http.StatusInternalServerError, "SERVER_MISCONFIGURED", "admin auth unavailable", nil)
			return
		}
		token := bearerToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		subject, err := m.Verifier.VerifySubject(token)
		if err != nil {
			common.WriteAppError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithAdminSubject(r.Context(), subject)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
