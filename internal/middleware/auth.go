package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/prizelab/backend/internal/model"
	"github.com/prizelab/backend/pkg/errorx"
	"github.com/prizelab/backend/pkg/jwt"
	"github.com/prizelab/backend/pkg/router"
	"github.com/prizelab/backend/pkg/xcontext"
)

// WithAuthentication resolves the access token if one is present. It never
// rejects the request by itself; pair it with Authenticate on routes that
// require a logged-in user.
func WithAuthentication(tokenEngine *jwt.Engine[model.AccessToken]) router.MiddlewareFunc {
	return func(ctx context.Context, r *http.Request) (context.Context, error) {
		token := getAccessToken(ctx, r)
		if token == "" {
			return ctx, nil
		}

		accessToken, err := tokenEngine.Verify(token)
		if err != nil {
			return nil, errorx.New(errorx.Unauthenticated, "Invalid access token")
		}

		return xcontext.WithRequestUserID(ctx, accessToken.ID), nil
	}
}

func Authenticate() router.MiddlewareFunc {
	return func(ctx context.Context, r *http.Request) (context.Context, error) {
		if xcontext.RequestUserID(ctx) == "" {
			return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
		}

		return ctx, nil
	}
}

func getAccessToken(ctx context.Context, r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return token
	}

	cookie, err := r.Cookie(xcontext.Configs(ctx).Auth.AccessTokenName)
	if err != nil {
		return ""
	}

	return cookie.Value
}
