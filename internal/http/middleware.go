package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/identity"
	"github.com/fjod/go_cart/session-cart/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionCookieName = "sessionCartId"
	UserIDHeader      = "X-User-ID"

	sessionCookieMaxAge = 30 * 24 * time.Hour
)

// SessionMiddleware puts the session token from the cart cookie on the
// request context, issuing a new token when the browser has none.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(SessionCookieName); err == nil {
			token = strings.TrimSpace(c.Value)
		}
		if token == "" {
			token = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := identity.WithSessionToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware trusts the user id set by the authenticating proxy in
// front of this service.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userID := strings.TrimSpace(r.Header.Get(UserIDHeader)); userID != "" {
			ctx = identity.WithUserID(ctx, userID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request with the chi request id.
func RequestLogger(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			logger.WithContext(r.Context(), l).Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(started)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
