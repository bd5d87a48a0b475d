package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Chat commands handled by command and result",
		},
		[]string{"command", "result"}, // ok | error | denied
	)

	pollErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_poll_errors_total",
			Help: "Failed getUpdates calls",
		},
	)
)

func recordCommand(cmd, result string) {
	commandsTotal.WithLabelValues(cmd, result).Inc()
}
