package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"nodal/pkg/auth"
	pkgerrors "nodal/pkg/errors"
)

// KeyFunc picks the bucket a request is counted against
type KeyFunc func(r *http.Request) string

// RateLimit rejects requests once the limiter denies their key. Limiter
// errors let the request through.
func RateLimit(
	limiter auth.RateLimiter,
	limit int,
	window time.Duration,
	key KeyFunc,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), key(r))
			if err != nil {
				logger.Warn("Rate limiter unavailable", zap.Error(err))
				allowed = true
			}
			if !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(limit, window.String()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
