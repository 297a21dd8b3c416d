package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VoteActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vote_wallet",
			Subsystem: "voting",
			Name:      "actions_total",
			Help:      "Vote mutations by action",
		},
		[]string{"action"},
	)

	StaleRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vote_wallet",
			Subsystem: "voting",
			Name:      "stale_refreshes_total",
			Help:      "Refresh results dropped for losing the generation race",
		},
	)

	PlacePagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vote_wallet",
			Subsystem: "explore",
			Name:      "pages_total",
			Help:      "Place pages loaded by segment",
		},
		[]string{"segment"},
	)

	RequestSyncTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vote_wallet",
			Subsystem: "syncer",
			Name:      "requests_total",
			Help:      "Username requests pulled from the platform",
		},
	)
)
