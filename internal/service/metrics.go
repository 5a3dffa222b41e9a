package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_verifications_total",
			Help: "Init data verifications by reason code",
		},
		[]string{"result"},
	)
	AuthDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_verification_duration_seconds",
			Help:    "Time spent verifying init data and issuing a session",
			Buckets: prometheus.DefBuckets,
		},
	)
	ProfileUpsertFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_upsert_failures_total",
			Help: "Profile upserts that failed after a session was issued",
		},
	)
)

func init() {
	prometheus.MustRegister(AuthVerifications)
	prometheus.MustRegister(AuthDuration)
	prometheus.MustRegister(ProfileUpsertFailures)
}
