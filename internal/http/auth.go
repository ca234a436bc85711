package http

import (
	"context"
	"net/http"
	"strings"

	"gestor/internal/auth"
)

type contextKey string

const tenantKey contextKey = "tenant"

func withTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

func tenantFrom(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey).(string)
	return tenant
}

// requireTenant admits requests with a valid bearer token and stores the
// token's tenant in the request context.
func (s *Server) requireTenant(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="gestor"`)
			s.writeError(w, r, "authenticate", auth.ErrAuthFailed)
			return
		}
		tenant, err := s.tokens.Parse(strings.TrimSpace(raw))
		if err != nil || tenant == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="gestor", error="invalid_token"`)
			s.writeError(w, r, "authenticate", auth.ErrInvalidToken)
			return
		}
		next(w, r.WithContext(withTenant(r.Context(), tenant)))
	})
}
