package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.PersistWrite("app-data", nil)
	m.PersistWrite("app-data", errors.New("boom"))
	m.BusMessage("tasks-state-updated", "out")
	m.BusEcho("tasks-state-updated")

	if got := testutil.ToFloat64(m.PersistWrites.WithLabelValues("app-data", "ok")); got != 1 {
		t.Errorf("ok writes = %v", got)
	}
	if got := testutil.ToFloat64(m.PersistWrites.WithLabelValues("app-data", "error")); got != 1 {
		t.Errorf("error writes = %v", got)
	}
	if got := testutil.ToFloat64(m.BusEchoes.WithLabelValues("tasks-state-updated")); got != 1 {
		t.Errorf("echoes = %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PersistWrite("app-data", nil)
	m.BusMessage("x", "in")
	m.BusEcho("x")
}

func TestHandler(t *testing.T) {
	m := New()
	m.BusMessage("widget-lock-state", "in")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `daily_bus_messages_total{direction="in",topic="widget-lock-state"} 1`) {
		t.Errorf("metrics output missing counter:\n%s", w.Body.String())
	}
}
