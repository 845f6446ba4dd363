// Package metrics holds the Prometheus collectors for ingestion, repair and webhooks.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clubledger"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	ingested      *prometheus.CounterVec
	repairChanges *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	phaseAborts   *prometheus.CounterVec
}

// MustNew registers the collectors with reg, reusing collectors that are
// already registered under the same name. Other registration errors panic.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Gateway records processed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		repairChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repair",
			Name:      "changes_total",
			Help:      "Repair changes planned or applied, by procedure and result.",
		}, []string{"procedure", "result"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Webhook events received, by type and outcome.",
		}, []string{"type", "outcome"}),
		phaseAborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "phase_aborts_total",
			Help:      "Sync phases aborted by a gateway page failure, by kind.",
		}, []string{"kind"}),
	}

	m.ingested = register(reg, m.ingested)
	m.repairChanges = register(reg, m.repairChanges)
	m.webhookEvents = register(reg, m.webhookEvents)
	m.phaseAborts = register(reg, m.phaseAborts)

	return m
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}

	panic(err)
}

func (m *Metrics) RecordIngest(kind, outcome string) {
	if m == nil {
		return
	}

	m.ingested.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordRepair(procedure, result string, n int) {
	if m == nil || n == 0 {
		return
	}

	m.repairChanges.WithLabelValues(procedure, result).Add(float64(n))
}

func (m *Metrics) RecordWebhook(eventType, outcome string) {
	if m == nil {
		return
	}

	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RecordPhaseAbort(kind string) {
	if m == nil {
		return
	}

	m.phaseAborts.WithLabelValues(kind).Inc()
}
