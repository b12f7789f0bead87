package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prizelab/backend/pkg/xcontext"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc runs before the handler. It can enrich the context (for
// example with the request user id) or reject the request by returning an
// error.
type MiddlewareFunc func(ctx context.Context, r *http.Request) (context.Context, error)

type Router struct {
	Inner gin.IRouter

	baseCtx context.Context
	befores []MiddlewareFunc
}

// New creates a router whose handlers run against the given base context. The
// base context carries configs, logger and database handle for all requests.
func New(ctx context.Context) *Router {
	if xcontext.Configs(ctx).Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Router{Inner: gin.New(), baseCtx: ctx}
}

// Branch returns a router sharing the same underlying engine but with an
// independent middleware chain.
func (r *Router) Branch() *Router {
	befores := make([]MiddlewareFunc, len(r.befores))
	copy(befores, r.befores)

	return &Router{Inner: r.Inner, baseCtx: r.baseCtx, befores: befores}
}

func (r *Router) Before(middleware MiddlewareFunc) {
	r.befores = append(r.befores, middleware)
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.Inner.GET(pattern, wrapHandler(r, http.MethodGet, handler))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.Inner.POST(pattern, wrapHandler(r, http.MethodPost, handler))
}

func (r *Router) Handler() http.Handler {
	return r.Inner.(*gin.Engine)
}
