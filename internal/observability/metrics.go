package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Requests       *prometheus.CounterVec
	RateLimited    prometheus.Counter
	TokensIssued   *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	AudioBytes     prometheus.Counter
	StreamDuration prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "status"}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_tokens_total",
			Help:      "Session tokens issued by reason.",
		}, []string{"reason"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		AudioBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_relayed_total",
			Help:      "Raw audio bytes relayed to clients.",
		}),
		StreamDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audio_stream_duration_seconds",
			Help:      "Wall time of audio relay streams in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 50, 60},
		}),
	}
}

func (m *Metrics) ObserveStream(bytes int64, d time.Duration) {
	m.AudioBytes.Add(float64(bytes))
	m.StreamDuration.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
