// Package observability exposes prometheus instrumentation for the
// ledger services.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the ledger counters. It satisfies the journals
// and inventory metric ports.
type Metrics struct {
	registry *prometheus.Registry

	entriesPosted      prometheus.Counter
	entriesCancelled   prometheus.Counter
	movementsRecorded  prometheus.Counter
	recomputeRuns      prometheus.Counter
	integrityRuns      prometheus.Counter
	integrityDriftRows prometheus.Counter
}

// NewMetrics builds a self-contained registry with go runtime and
// process collectors plus the ledger counters.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		entriesPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_journal_entries_posted_total",
			Help: "Journal entries transitioned to POSTED.",
		}),
		entriesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_journal_entries_cancelled_total",
			Help: "Journal entries transitioned to CANCELLED.",
		}),
		movementsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_inventory_movements_total",
			Help: "Inventory movements appended to the movement log.",
		}),
		recomputeRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_balance_recompute_runs_total",
			Help: "Completed full balance recomputation passes.",
		}),
		integrityRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_integrity_scans_total",
			Help: "Completed general ledger integrity scans.",
		}),
		integrityDriftRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_integrity_drift_entries_total",
			Help: "Posted entries found unbalanced by the integrity scan.",
		}),
	}
}

func (m *Metrics) EntryPosted()      { m.entriesPosted.Inc() }
func (m *Metrics) EntryCancelled()   { m.entriesCancelled.Inc() }
func (m *Metrics) MovementRecorded() { m.movementsRecorded.Inc() }
func (m *Metrics) RecomputeRan()     { m.recomputeRuns.Inc() }

// IntegrityScanRan counts one completed scan and the unbalanced
// entries it found.
func (m *Metrics) IntegrityScanRan(driftEntries int) {
	m.integrityRuns.Inc()
	m.integrityDriftRows.Add(float64(driftEntries))
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
