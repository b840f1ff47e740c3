// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"

	wafflemetrics "github.com/dalemusser/waffle/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics adds a per-route request counter on its own registry to waffle's
// latency histogram and runtime collectors, which live on the default
// registry. Each instance owns its registry so tests can build as many
// routers as they like.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// New builds the counter and registers it on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendario_http_requests_total",
			Help: "HTTP requests served, by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.requests)
	return m
}

// Middleware records the request in waffle's duration histogram and in the
// counter. The route label is the chi pattern (e.g. /api/agenda/{id}).
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return wafflemetrics.HTTPMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	}))
}

// Handler exposes this registry and the default one in the Prometheus text
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{m.registry, prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}
