package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Leaderboard metrics
	LeaderboardComputations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scoreboard_leaderboard_computations_total",
			Help: "Total number of leaderboard computations",
		},
	)

	LeaderboardDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoreboard_leaderboard_duration_seconds",
			Help:    "Time taken to compute the leaderboard in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Event mutation metrics
	EventMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_event_mutations_total",
			Help: "Total number of committed event mutations by action",
		},
		[]string{"action"},
	)

	EventMutationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_event_mutation_failures_total",
			Help: "Total number of rejected or failed event mutations by action and error kind",
		},
		[]string{"action", "kind"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_api_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoreboard_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Backup metrics
	BackupsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scoreboard_backups_created_total",
			Help: "Total number of database backups written",
		},
	)
)

func init() {
	prometheus.MustRegister(LeaderboardComputations)
	prometheus.MustRegister(LeaderboardDuration)
	prometheus.MustRegister(EventMutations)
	prometheus.MustRegister(EventMutationFailures)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(BackupsCreated)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the time since it was created.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed so far.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in seconds on h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time on the labelled child of h.
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
