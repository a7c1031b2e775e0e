package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campaign",
		Name:      "registrations_total",
		Help:      "Remote voter registration calls by outcome.",
	}, []string{"outcome"})

	registrationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "campaign",
		Name:      "registration_duration_seconds",
		Help:      "Latency of a single remote voter registration call.",
		Buckets:   prometheus.DefBuckets,
	})

	submissionRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campaign",
		Name:      "submission_runs_total",
		Help:      "Grid submission runs by final status.",
	}, []string{"status"})

	activeSubmissions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "campaign",
		Name:      "active_submissions",
		Help:      "Submission runs currently holding a slot.",
	})

	openGrids = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "campaign",
		Name:      "open_grids",
		Help:      "Grid sessions held in memory.",
	})

	janitorRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campaign",
		Name:      "janitor_removed_total",
		Help:      "Items removed by the janitor by kind.",
	}, []string{"kind"})
)
