package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type routePatternKey struct{}

// WithRoutePattern records a route label for handlers served outside a chi router.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the label stored by WithRoutePattern.
func RoutePatternFromContext(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

// routeLabel resolves the matched pattern of r. chi fills the pattern while it routes, so
// middleware must call this after the next handler returns.
func routeLabel(r *http.Request, fallback string) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && pattern != "/*" {
			return pattern
		}
	}
	if pattern := RoutePatternFromContext(r.Context()); pattern != "" {
		return pattern
	}
	return fallback
}

// statusOf treats a handler that never wrote a header as 200.
func statusOf(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}
