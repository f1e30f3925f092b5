package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_completions_total",
			Help: "Provider redirects handled by the auth flow",
		},
		[]string{"result"}, // success|failure
	)

	FetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_requests_total",
			Help: "Avatar container downloads by outcome",
		},
		[]string{"outcome"}, // ok|transport|http_status|busy
	)

	FetchBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetch_bytes",
			Help:    "Size of downloaded avatar containers",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
		},
	)

	AttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_attempts_total",
			Help: "Finished provisioning attempts by outcome",
		},
		[]string{"outcome"}, // Provisioned|Failed|NoSelection
	)

	FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_failures_total",
			Help: "Failed provisioning attempts by pipeline stage",
		},
		[]string{"stage"},
	)

	AttemptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provisioner_attempt_duration_seconds",
			Help:    "Duration of a provisioning attempt from auth completion to terminal event",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "provisioner_queue_depth",
			Help: "Provisioning requests waiting behind the in-flight attempt",
		},
	)

	MeshesAttached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "avatar_meshes_attached",
			Help: "Mesh components attached by the most recent assembly",
		},
	)
)

func init() {
	prometheus.MustRegister(AuthCompletionsTotal)
	prometheus.MustRegister(FetchRequestsTotal)
	prometheus.MustRegister(FetchBytes)
	prometheus.MustRegister(AttemptsTotal)
	prometheus.MustRegister(FailuresTotal)
	prometheus.MustRegister(AttemptDuration)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(MeshesAttached)
}

func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
