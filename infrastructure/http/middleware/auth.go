package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jobtrack/jobtrack/application/port/outbound"
	"github.com/jobtrack/jobtrack/domain/apperror"
	"github.com/jobtrack/jobtrack/domain/valueobject"
	"github.com/jobtrack/jobtrack/infrastructure/http/response"
	"github.com/jobtrack/jobtrack/infrastructure/service/logger"
	"github.com/jobtrack/jobtrack/infrastructure/service/token"
)

type principalContextKey struct{}

// SessionAuthenticator is the per-request gate. It decodes the bearer
// token, if any, exactly once and attaches the principal to the request
// context. Requests without an Authorization header pass through
// unauthenticated; route guards decide whether that is acceptable.
type SessionAuthenticator struct {
	codec  outbound.TokenCodec
	logger logger.Logger
}

func NewSessionAuthenticator(codec outbound.TokenCodec, log logger.Logger) *SessionAuthenticator {
	return &SessionAuthenticator{
		codec:  codec,
		logger: log,
	}
}

func (m *SessionAuthenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := token.StripBearer(authHeader)
		if err != nil {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.codec.Decode(tokenString)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey{}, claims.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject maps decode failures to responses. Expired access tokens get the
// machine-readable business code so clients reissue instead of forcing a
// fresh login; anything unclassified becomes a generic 500.
func (m *SessionAuthenticator) reject(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperror.IsCode(err, apperror.ErrCodeExpiredToken):
		response.BusinessError(w, http.StatusUnauthorized,
			apperror.BusinessCodeExpiredAccessToken, "access token has expired")
	case apperror.IsCode(err, apperror.ErrCodeInvalidToken):
		logger.LogSecurityEvent(r.Context(), m.logger, "invalid_bearer_token", "MEDIUM", map[string]interface{}{
			"path": r.URL.Path,
		})
		response.Unauthorized(w, "invalid token")
	default:
		m.logger.Error(r.Context(), "unexpected failure while decoding bearer token", err, map[string]interface{}{
			"path": r.URL.Path,
		})
		response.InternalServerError(w, "internal server error")
	}
}

// RequireAuth guards routes that need an authenticated principal.
func (m *SessionAuthenticator) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			response.Unauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireAdmin guards admin-only routes.
func (m *SessionAuthenticator) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFrom(r.Context())
		if !strings.EqualFold(string(principal.Role), "ROLE_ADMIN") {
			response.Error(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalFrom retrieves the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (valueobject.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(valueobject.Principal)
	return principal, ok
}
