package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the business Prometheus metrics of the service.
type Metrics struct {
	DeclarationsCreated *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	TransitionsRefused  prometheus.Counter
	Logins              *prometheus.CounterVec
	ReferenceCacheHits  *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers on reg, letting tests use a private registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DeclarationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_declarations_created_total",
			Help: "Total number of declarations created, labeled by level",
		}, []string{"niveau"}),
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_status_transitions_total",
			Help: "Total number of applied status transitions, labeled by target status",
		}, []string{"statut"}),
		TransitionsRefused: f.NewCounter(prometheus.CounterOpts{
			Name: "cp_status_transitions_refused_total",
			Help: "Total number of transitions refused by the state machine",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_logins_total",
			Help: "Total number of login attempts, labeled by outcome",
		}, []string{"outcome"}),
		ReferenceCacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_reference_cache_lookups_total",
			Help: "Agency reference cache lookups, labeled by result (hit or miss)",
		}, []string{"result"}),
	}
}

// IncrementDeclarationsCreated counts one created declaration at the given level.
func (m *Metrics) IncrementDeclarationsCreated(niveau int) {
	if m == nil {
		return
	}
	m.DeclarationsCreated.WithLabelValues(strconv.Itoa(niveau)).Inc()
}

func (m *Metrics) IncrementStatusTransitions(statut string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(statut).Inc()
}

func (m *Metrics) IncrementTransitionsRefused() {
	if m == nil {
		return
	}
	m.TransitionsRefused.Inc()
}

// IncrementLogins records a login outcome ("success" or "failure").
func (m *Metrics) IncrementLogins(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveReferenceCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ReferenceCacheHits.WithLabelValues(result).Inc()
}
