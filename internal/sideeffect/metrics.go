package sideeffect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cp_side_effect_failures_total",
		Help: "Side effects that failed after the declaration change was committed",
	}, []string{"kind"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cp_side_effect_dropped_total",
		Help: "Side effects dropped because the dispatch queue was full or closed",
	}, []string{"kind"})

	fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cp_side_effect_kafka_fallback_total",
		Help: "Side effects delivered in process because Kafka was unavailable",
	})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cp_side_effect_kafka_circuit_open",
		Help: "Kafka sink circuit breaker state (0=closed, 1=open)",
	})
)
