package metrics

import "github.com/prometheus/client_golang/prometheus"

// AI gateway Prometheus metrics, shared by the embedding and generation transports.
var (
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeline",
			Name:      "gateway_requests_total",
			Help:      "Total number of AI gateway requests",
		},
		[]string{"operation", "provider", "model", "status"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lifeline",
			Name:      "gateway_request_duration_seconds",
			Help:      "AI gateway request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "provider", "model"},
	)

	GatewayErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeline",
			Name:      "gateway_errors_total",
			Help:      "Total AI gateway errors",
		},
		[]string{"operation", "provider", "model", "error_type"},
	)

	SearchResultsFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeline",
			Name:      "search_results_filtered_total",
			Help:      "Search candidates discarded below the relevance threshold",
		},
		[]string{"collection"},
	)
)

// Gateway metric operation labels.
const (
	OpEmbed    = "embed"
	OpGenerate = "generate"
)

// Gateway metric error_type labels.
const (
	ErrTypeTransport = "transport"
	ErrTypeRejected  = "rejected"
	ErrTypeMalformed = "malformed"
)

var gatewayMetricsRegistered bool

// RegisterGatewayMetrics registers Prometheus gateway metrics. Must be called once from main.
func RegisterGatewayMetrics() {
	if gatewayMetricsRegistered {
		return
	}
	prometheus.MustRegister(GatewayRequestsTotal)
	prometheus.MustRegister(GatewayRequestDuration)
	prometheus.MustRegister(GatewayErrorsTotal)
	prometheus.MustRegister(SearchResultsFiltered)
	gatewayMetricsRegistered = true
}
