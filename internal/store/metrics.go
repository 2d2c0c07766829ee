package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var snapshotWrites = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hotelier_snapshot_writes_total",
		Help: "Count of snapshot write attempts per collection and outcome.",
	},
	[]string{"collection", "outcome"},
)
