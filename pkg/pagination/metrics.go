package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pagination runs.
var (
	paginationPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planet_pagination_pages_total",
		Help: "Total pages fetched by pagination runs",
	})

	paginationItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planet_pagination_items_total",
		Help: "Total items delivered by pagination runs",
	})

	paginationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planet_pagination_runs_total",
		Help: "Total pagination runs by outcome (complete, limit, aborted, stopped, error)",
	}, []string{"outcome"})
)
