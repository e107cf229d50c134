package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"lexora.io/legal-assistant/internal/auth"
	"lexora.io/legal-assistant/internal/metrics"
	"lexora.io/legal-assistant/internal/store"
)

type ctxKey int

const userKey ctxKey = iota

func userFrom(ctx context.Context) *store.User {
	u, _ := ctx.Value(userKey).(*store.User)
	return u
}

// JWTAuthMiddleware resolves the bearer token's subject to a stored user.
func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "Authorization header is required")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "Authorization header must be a bearer token")
			return
		}
		userID, err := auth.ValidateJWT(tokenString, h.jwtSecret)
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
			return
		}

		user, err := h.users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "User not found")
				return
			}
			log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load user for token")
			writeErrorMessage(w, http.StatusInternalServerError, "internal", "Failed to process user identity")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// RequireAdministrator admits only administrator accounts.
func RequireAdministrator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := userFrom(r.Context())
		if u == nil {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		switch u.Role {
		case store.RoleAdministrator:
			next.ServeHTTP(w, r)
		case store.RoleUser, store.RoleProfessional, store.RoleAssistant:
			writeErrorMessage(w, http.StatusForbidden, "forbidden", "administrator role required")
		default:
			writeErrorMessage(w, http.StatusForbidden, "forbidden", "unknown role")
		}
	})
}

// AccessLog writes one zerolog event per request and records HTTP metrics
// under the matched route pattern.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		log.Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
