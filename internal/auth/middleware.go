package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"go.uber.org/zap"
)

// Middleware handles authentication for HTTP requests
type Middleware struct {
	validator *JWTValidator
	versions  *PermVersionStore
	logger    *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(validator *JWTValidator, versions *PermVersionStore, logger *zap.Logger) *Middleware {
	return &Middleware{validator: validator, versions: versions, logger: logger}
}

// Authenticate verifies the Bearer token, applies the permission
// staleness gate and stamps the tenant context on the request.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeAuthError(w, domain.NewAuthenticationFailed("missing authorization header"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeAuthError(w, domain.NewAuthenticationFailed("invalid authorization header"))
			return
		}

		tc, err := m.validator.ValidateToken(parts[1])
		if err != nil {
			m.logger.Debug("token validation failed", zap.Error(err))
			writeAuthError(w, domain.NewAuthenticationFailed("invalid or expired token"))
			return
		}

		if m.versions.IsStale(r.Context(), tc.UserID, tc.PermVersion) {
			w.Header().Set("X-Permission-Stale", "true")
			writeAuthError(w, domain.NewPermissionsStale())
			return
		}

		tc.RequestIP = clientIP(r)
		tc.RequestUserAgent = r.UserAgent()

		next.ServeHTTP(w, r.WithContext(WithTenantContext(r.Context(), tc)))
	})
}

// ServiceAuth guards service-to-service endpoints with a shared secret
// header instead of a user token.
func ServiceAuth(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Service-Key")
			if secret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
				logger.Warn("rejected internal request",
					zap.String("service", r.Header.Get("X-Service-Name")),
					zap.String("path", r.URL.Path),
				)
				writeAuthError(w, domain.NewAuthenticationFailed("invalid service credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the originating address, preferring proxy headers
// over the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeAuthError(w http.ResponseWriter, err *domain.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": err})
}
