// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Deliveries counts individual transport attempts by outcome.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_deliveries_total",
		Help: "Outbound delivery attempts by outcome.",
	}, []string{"outcome"})

	// Passes counts dispatch and retry passes by result.
	Passes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_passes_total",
		Help: "Send and retry passes by kind and result.",
	}, []string{"kind", "result"})
)

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
