package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Test submissions, by outcome: scored/failed
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackmath_test_submissions_total",
			Help: "Total number of test submissions",
		},
		[]string{"outcome"},
	)

	// Score distribution of scored submissions (percentage 0..100)
	Scores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hackmath_test_score_percent",
			Help:    "Percentage scored per submission",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackmath_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status"}, // success/failure
	)

	RegistrationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackmath_registration_attempts_total",
			Help: "Total number of registration attempts",
		},
		[]string{"status"},
	)

	LogoutAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hackmath_logout_attempts_total",
			Help: "Total number of logout attempts",
		},
	)

	// Gate denials by signal: unauthenticated/profile not found/forbidden
	AccessDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackmath_access_denied_total",
			Help: "Requests stopped by the access gate",
		},
		[]string{"signal"},
	)
)

// ObserveSubmission records one scored submission.
func ObserveSubmission(percentage float64) {
	Submissions.WithLabelValues("scored").Inc()
	Scores.Observe(percentage)
}

func Handler() http.Handler { return promhttp.Handler() }
