package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "quizchain"

var (
	RunsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of chain runs started.",
		},
	)

	RunsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Total number of chain runs finished, labeled by terminal state.",
		},
		[]string{"state"},
	)

	TasksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Total number of tasks processed, labeled by per-task outcome.",
		},
		[]string{"outcome"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of answer submissions, labeled by result.",
		},
		[]string{"result"},
	)

	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retry units consumed, labeled by cause.",
		},
		[]string{"cause"},
	)

	AttemptDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Duration of one render-extract-submit attempt (seconds).",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	RateLimitHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		},
		[]string{"scope", "operation"},
	)

	RunDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a whole chain run (seconds).",
			Buckets:   []float64{1, 5, 10, 30, 60, 90, 120, 150, 180, 300},
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		RunsStartedTotal,
		RunsFinishedTotal,
		TasksProcessedTotal,
		SubmissionsTotal,
		RetriesTotal,
		RateLimitHitsTotal,
		AttemptDurationSeconds,
		RunDurationSeconds,
	)
}
