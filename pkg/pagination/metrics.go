package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts list requests issued by iterators.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsuche_pages_fetched_total",
		Help: "Total number of result pages fetched by pagination iterators",
	})

	// IterationsFinished counts finished iterations by stop reason.
	IterationsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsuche_iterations_finished_total",
			Help: "Total number of finished pagination iterations by reason",
		},
		[]string{"reason"}, // "short_page", "total_reached", "limit_reached", "max_pages", "error", "stopped"
	)
)
