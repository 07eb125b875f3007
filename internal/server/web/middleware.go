package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veronewra/openverse/internal/common"
	"github.com/veronewra/openverse/internal/server/auth"
	"github.com/veronewra/openverse/internal/server/throttle"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// requireBearer authenticates the request from the Authorization header and
// stores the token claims in the request context. A missing, invalid or
// expired token yields 403.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeDetail(r.Context(), w, http.StatusForbidden, "Forbidden")
			return
		}

		claims, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			s.writeDetail(r.Context(), w, http.StatusForbidden, "Forbidden")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// throttleByIP meters unauthenticated traffic at the anonymous tier, keyed
// by caller address.
func (s *Server) throttleByIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		err := s.throttle.CheckAndRecord(r.Context(), clientIP(r), throttle.TierAnonymous.String(), true)
		if err != nil {
			s.rejectThrottled(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// throttleByClaims meters authenticated traffic at the tier carried in the
// bearer token. Must run after requireBearer.
func (s *Server) throttleByClaims(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		claims, ok := claimsFrom(r.Context())
		if !ok {
			s.writeDetail(r.Context(), w, http.StatusForbidden, "Forbidden")
			return
		}

		err := s.throttle.CheckAndRecord(r.Context(), claims.ClientID, claims.RateTier, claims.Verified)
		if err != nil {
			s.rejectThrottled(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rejectThrottled translates throttle engine outcomes into HTTP statuses.
// An over-limit client gets 429 with a Retry-After hint; transient
// coordination failures get 503; a tier the engine does not know is a data
// integrity problem and gets 500.
func (s *Server) rejectThrottled(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var limited *throttle.RateLimitedError
	if errors.As(err, &limited) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limited.RetryAfter)))
		s.writeDetail(ctx, w, http.StatusTooManyRequests, "Request was throttled.")
		return
	}

	if errors.Is(err, common.ErrLockBusy) || errors.Is(err, common.ErrStoreUnavailable) {
		s.logger.Warn(ctx, "throttle check unavailable", "error", err.Error())
		w.Header().Set("Retry-After", "1")
		s.writeDetail(ctx, w, http.StatusServiceUnavailable, "Service temporarily unavailable.")
		return
	}

	s.logger.Error(ctx, "throttle check failed", "error", err.Error())
	s.writeDetail(ctx, w, http.StatusInternalServerError, "Internal server error.")
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
