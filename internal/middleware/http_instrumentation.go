package middleware

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var httpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "promptstream",
		Subsystem: "http",
		Name:      "incoming_requests_total",
		Help:      "Number of incoming HTTP requests to internal endpoints.",
	},
	[]string{"path", "method", "status"},
)

func init() {
	_ = prometheus.DefaultRegisterer.Register(httpRequestsTotal)
}

// HTTPServerInstrumentation counts handled requests.
func HTTPServerInstrumentation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rw.Status())).Inc()
	})
}
