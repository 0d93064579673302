package teles

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teles",
		Subsystem: "hub",
		Name:      "commands_total",
		Help:      "Total protocol commands processed",
	}, []string{"command"})

	metricCommandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teles",
		Subsystem: "hub",
		Name:      "command_errors_total",
		Help:      "Total commands answered with a failure line",
	}, []string{"command"})

	metricActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "teles",
		Subsystem: "hub",
		Name:      "active_connections",
		Help:      "Current number of active sessions across all transports",
	})
)
