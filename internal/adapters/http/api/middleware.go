package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/sentinel/pkg/metrics"
)

// unmatchedRoute labels requests no route claimed, keeping raw paths out of label values.
const unmatchedRoute = "unmatched"

// Metrics records request count, latency and error class per chi route
// pattern. Install it with Use on the router that owns the routes.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routeLabel(r)
		code := strconv.Itoa(status)
		elapsed := float64(time.Since(start).Microseconds()) / 1000

		metrics.RecordHTTPRequest(route, r.Method, code)
		metrics.RecordHTTPRequestDuration(route, r.Method, code, elapsed)

		if status >= http.StatusBadRequest {
			class, severity := classify(status)
			metrics.RecordErrorByEndpoint(route, r.Method, class)
			metrics.RecordErrorByType(class, severity)
		}
	})
}

// routeLabel is read after routing so chi has filled in the matched pattern.
func routeLabel(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return unmatchedRoute
	}
	if p := rc.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

// classify maps a failing status to an error class and severity.
func classify(status int) (string, string) {
	switch {
	case status == http.StatusBadGateway:
		return "upstream_error", "high"
	case status >= http.StatusInternalServerError:
		return "server_error", "high"
	case status == http.StatusNotFound:
		return "not_found", "low"
	case status == http.StatusMethodNotAllowed:
		return "method_not_allowed", "low"
	default:
		return "client_error", "medium"
	}
}
