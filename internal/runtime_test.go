package internal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/daily/internal/models"
	"github.com/starford/daily/internal/store"
	"github.com/starford/daily/internal/window"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Data.Dir = filepath.Join(dir, "data")
	cfg.Data.SQLitePath = filepath.Join(dir, "data", "daily.db")
	cfg.Settings.Path = filepath.Join(dir, "widget.yaml")
	cfg.Persist.Debounce = 10 * time.Millisecond
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func testRuntime(t *testing.T, cfg *Config, opts ...Option) *runtime {
	t.Helper()
	app := &application{config: cfg}
	for _, opt := range opts {
		opt(app)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	rt, err := newRuntime(context.Background(), app, logger)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	t.Cleanup(rt.Close)
	return rt
}

func storeTask(title string) store.TaskInput {
	return store.TaskInput{Title: title}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLocalRuntimeRunsBothSurfaces(t *testing.T) {
	host := window.NewMemoryHost()
	rt := testRuntime(t, testConfig(t), WithHost(host))

	if len(rt.surfaces) != 2 {
		t.Fatalf("surfaces = %d, want 2", len(rt.surfaces))
	}
	if rt.primary().Label() != window.MainLabel {
		t.Errorf("primary = %q", rt.primary().Label())
	}
	if host.Window(window.WidgetLabel) == nil {
		t.Fatal("widget window not created")
	}

	widget := rt.surfaces[1].surface
	task, ok := rt.primary().Store().AddTask(storeTask("Pay rent"))
	if !ok {
		t.Fatal("AddTask rejected")
	}
	rt.primary().Store().ToggleTask(task.ID)
	eventually(t, "widget sees toggle", func() bool {
		got, ok := widget.Store().Task(task.ID)
		return ok && got.Status == models.TaskCompleted
	})
}

func TestHTTPHandler(t *testing.T) {
	rt := testRuntime(t, testConfig(t))
	h := newHTTPHandler(rt)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("ready = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(`{"title":"Ship"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bus/publish/widget-force-unlock", bytes.NewBufferString(`null`)))
	if w.Code != http.StatusAccepted {
		t.Errorf("hub publish = %d", w.Code)
	}

	eventually(t, "bus metrics", func() bool {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return strings.Contains(w.Body.String(), `daily_bus_messages_total{direction="out",topic="tasks-state-updated"}`)
	})
}

func TestSQLiteRuntimePersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Backend = BackendSQLite

	rt := testRuntime(t, cfg)
	if _, ok := rt.primary().Store().AddTask(storeTask("Durable")); !ok {
		t.Fatal("AddTask rejected")
	}
	rt.Close()

	rt = testRuntime(t, cfg)
	tasks := rt.primary().Store().State().Tasks
	if len(tasks) != 1 || tasks[0].Title != "Durable" {
		t.Errorf("tasks after restart = %+v", tasks)
	}
}

func TestWidgetIsRemote(t *testing.T) {
	cases := []struct {
		transport string
		label     string
		want      bool
	}{
		{TransportLocal, window.MainLabel, false},
		{TransportLocal, window.WidgetLabel, false},
		{TransportLocal, "", true},
		{TransportHTTP, window.MainLabel, true},
		{TransportNATS, window.MainLabel, true},
		{TransportNATS, window.WidgetLabel, false},
	}
	for _, tc := range cases {
		rt := &runtime{cfg: &Config{Bus: BusConfig{Transport: tc.transport}}}
		if got := rt.widgetIsRemote(tc.label); got != tc.want {
			t.Errorf("widgetIsRemote(%s, %q) = %v, want %v", tc.transport, tc.label, got, tc.want)
		}
	}
}
