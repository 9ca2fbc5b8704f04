package telemetry

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

// ServerMetrics counts requests by route and status and records latency.
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(service string, reg prometheus.Registerer) (*ServerMetrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecocart",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecocart",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	for _, c := range []prometheus.Collector{requests, latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &ServerMetrics{Requests: requests, LatencyMS: latency}, nil
}

// Middleware must wrap the ServeMux directly: the mux sets r.Pattern on the
// request it receives, which is read after the handler returns.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snoop := httpsnoop.CaptureMetrics(next, w, r)

		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(snoop.Code)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(snoop.Duration.Milliseconds()))
	})
}
