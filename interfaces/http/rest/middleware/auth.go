package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nodal/pkg/auth"
	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
)

type claimsKey struct{}

// Authenticate validates the bearer token of every request and stores its
// claims in the request context. A nil validator disables authentication.
func Authenticate(validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("missing authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Debug("Rejected token", zap.Error(err), zap.String("path", r.URL.Path))
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError(err.Error()))
				return
			}

			ctx := common.WithSubject(r.Context(), claims.UserID)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireWorkspaceAccess rejects tokens scoped to other workspaces. It must
// be mounted below the {workspaceID} route parameter.
func RequireWorkspaceAccess(errs *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if ok && !claims.CanAccess(chi.URLParam(r, "workspaceID")) {
				errs.Handle(w, r, pkgerrors.NewForbiddenError("token does not grant access to this workspace"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the claims stored by Authenticate
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
