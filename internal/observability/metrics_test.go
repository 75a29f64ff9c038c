package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.EntryPosted()
	m.EntryPosted()
	m.EntryCancelled()
	m.MovementRecorded()
	m.RecomputeRan()
	m.IntegrityScanRan(3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "ledger_journal_entries_posted_total 2")
	require.Contains(t, body, "ledger_journal_entries_cancelled_total 1")
	require.Contains(t, body, "ledger_inventory_movements_total 1")
	require.Contains(t, body, "ledger_balance_recompute_runs_total 1")
	require.Contains(t, body, "ledger_integrity_scans_total 1")
	require.Contains(t, body, "ledger_integrity_drift_entries_total 3")
}

func TestMetricsRegistriesAreIndependent(t *testing.T) {
	first := NewMetrics()
	second := NewMetrics()
	first.EntryPosted()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	second.Handler().ServeHTTP(rec, req)
	require.NotContains(t, rec.Body.String(), "ledger_journal_entries_posted_total 1")
}
