package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestManager_RecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewManager(WithRegistry(reg))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	m.ObserveFetch("initial", 10*time.Millisecond, nil)
	m.ObserveFetch("initial", 10*time.Millisecond, errors.New("boom"))
	m.ObserveExport("pdf", "native", time.Second, nil)
	m.SetStoreSize(27)

	if got := testutil.ToFloat64(m.fetchTotal.WithLabelValues("initial", OutcomeSuccess)); got != 1 {
		t.Errorf("fetch success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fetchTotal.WithLabelValues("initial", OutcomeError)); got != 1 {
		t.Errorf("fetch error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.exportTotal.WithLabelValues("pdf", "native", OutcomeSuccess)); got != 1 {
		t.Errorf("export success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.storeFlights); got != 27 {
		t.Errorf("store gauge = %v, want 27", got)
	}
}

func TestManager_RegisterTwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewManager(WithRegistry(reg)); err != nil {
		t.Fatalf("first NewManager returned error: %v", err)
	}
	if _, err := NewManager(WithRegistry(reg)); err != nil {
		t.Fatalf("second NewManager returned error: %v", err)
	}
}

func TestManager_NilAndDisabledAreNoops(t *testing.T) {
	var m *Manager
	m.ObserveFetch("full", time.Millisecond, nil)
	m.SetStoreSize(3)
	m.ObserveExport("xlsx", "web", time.Millisecond, nil)

	disabled, err := NewManager(WithEnabled(false), WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	disabled.ObserveFetch("full", time.Millisecond, nil)
	if got := testutil.ToFloat64(disabled.fetchTotal.WithLabelValues("full", OutcomeSuccess)); got != 0 {
		t.Fatalf("disabled manager recorded %v fetches", got)
	}
}
