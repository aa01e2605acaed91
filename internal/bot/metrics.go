package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// processOutcomes counts terminal pipeline outcomes by their stable label.
var processOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "process_outcomes_total",
		Help:      "Terminal outcomes of webhook event processing.",
	},
	[]string{"outcome"},
)
