package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHandler returns a Gin handler serving the process's registered
// collectors in the Prometheus exposition format.
func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// PrometheusHandlerHTTP returns the same handler as a plain net/http.Handler,
// for callers wiring a bare http.ServeMux instead of gin.
func PrometheusHandlerHTTP() http.Handler {
	return promhttp.Handler()
}
