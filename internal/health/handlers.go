package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/storefront-checkout/internal/common"
)

const defaultProbeTimeout = 500 * time.Millisecond

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips readiness; the API clears it when it starts draining.
func SetReady(v bool) { ready.Store(v) }

// Probe checks one dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Handler exposes liveness and readiness endpoints.
type Handler struct {
	Probes []Probe
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	common.OK(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every probe concurrently and answers 503 if any fails or the process is draining.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSONError(w, http.StatusServiceUnavailable, "DRAINING", "server is shutting down", nil)
		return
	}
	results := make([]string, len(h.Probes))
	var g errgroup.Group
	for i, p := range h.Probes {
		g.Go(func() error {
			timeout := p.Timeout
			if timeout <= 0 {
				timeout = defaultProbeTimeout
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			if err := p.Check(ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	healthy := g.Wait() == nil
	status := make(map[string]string, len(h.Probes))
	for i, p := range h.Probes {
		status[p.Name] = results[i]
	}

	if !healthy {
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeUnavailable, "dependencies unavailable", status)
		return
	}
	common.OK(w, http.StatusOK, status)
}
