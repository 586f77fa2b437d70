package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.IncrementDeclarationsCreated(4)
	m.IncrementDeclarationsCreated(4)
	m.IncrementStatusTransitions("VALIDE")
	m.ObserveReferenceCache(true)
	m.ObserveReferenceCache(false)

	assert.InDelta(t, 2, testutil.ToFloat64(m.DeclarationsCreated.WithLabelValues("4")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("VALIDE")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReferenceCacheHits.WithLabelValues("miss")), 0)
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementDeclarationsCreated(1)
		m.IncrementTransitionsRefused()
		m.IncrementLogins("success")
	})
}
