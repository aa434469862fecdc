package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/guard"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

type ctxKey string

const (
	ctxIdentityKey   ctxKey = "currentIdentity"
	ctxResolutionKey ctxKey = "currentResolution"
)

// IdentityStore loads the identity named by a token.
type IdentityStore interface {
	GetIdentityByID(ctx context.Context, id string) (*models.Identity, error)
}

func GetIdentityFromCtx(ctx context.Context) *models.Identity {
	if id, ok := ctx.Value(ctxIdentityKey).(*models.Identity); ok {
		return id
	}
	return nil
}

// GetResolutionFromCtx returns the role RoleMiddleware resolved for this request.
func GetResolutionFromCtx(ctx context.Context) (roles.Resolution, bool) {
	res, ok := ctx.Value(ctxResolutionKey).(roles.Resolution)
	return res, ok
}

// WithIdentity stores id in ctx the way AuthMiddleware does.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates the bearer JWT, loads the identity and sets it in context.
func AuthMiddleware(cfg *config.Config, ids IdentityStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "missing authorization", redirectTo(roles.LoginPath), "session_missing")
				return
			}
			claims, err := ParseAndValidateToken(cfg, token)
			if err != nil {
				utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "invalid token", redirectTo(roles.LoginPath), "session_missing")
				return
			}
			id, err := ids.GetIdentityByID(r.Context(), claims.IdentityID)
			if err != nil {
				utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "identity not found", redirectTo(roles.LoginPath), "session_missing")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RoleMiddleware runs the route guard for server endpoints: 401 when nobody
// is signed in, 403 with the caller's correct destination when the role does
// not fit. Must run after AuthMiddleware.
func RoleMiddleware(resolver guard.RoleResolver, p guard.Policy, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			in := guard.Input{Identity: GetIdentityFromCtx(ctx)}
			if in.Identity != nil {
				res, err := resolver.Resolve(ctx, in.Identity.Email)
				if err != nil {
					log.Warn(ctx, "role lookup failed", "email", in.Identity.Email, "err", err)
				}
				in.Resolution = res
			}

			d := guard.Decide(p, in)
			switch d.State {
			case guard.Authorized:
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxResolutionKey, in.Resolution)))
			case guard.Unauthenticated:
				utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", redirectTo(d.RedirectPath), nil)
			default:
				utils.WriteJSONResponse(w, http.StatusForbidden, false, "forbidden", redirectTo(d.RedirectPath), nil)
			}
		})
	}
}

func redirectTo(path string) map[string]string {
	return map[string]string{"redirect_path": path}
}
