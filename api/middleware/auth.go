package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/weddingplanner-backend/api/responses"
	pkgAuth "github.com/angelmondragon/weddingplanner-backend/pkg/auth"
	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), logg, token, claims)))
		})
	}
}

// Identity is the optional form of Auth. A missing, malformed or expired
// token leaves the request anonymous instead of rejecting it.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				if logg != nil {
					logg.Debug(r.Context(), "ignoring unusable identity token: "+err.Error())
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), logg, token, claims)))
		})
	}
}

func withClaims(ctx context.Context, logg *logger.Logger, token string, claims *pkgAuth.AccessTokenClaims) context.Context {
	userID := claims.UserID.String()
	ctx = WithUserID(ctx, userID)
	ctx = WithToken(ctx, token)
	if logg != nil {
		ctx = logg.WithUserID(ctx, userID)
	}
	return ctx
}
