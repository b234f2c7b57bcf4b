// Package testutil provides shared test helpers for setting up storage and
// wired surfaces.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/daily/internal/bus"
	"github.com/starford/daily/internal/persist"
	"github.com/starford/daily/internal/settings"
	"github.com/starford/daily/internal/storage"
	"github.com/starford/daily/internal/store"
	"github.com/starford/daily/internal/surface"
	"github.com/starford/daily/internal/window"
)

// TestAdapter creates an envelope adapter over a temporary directory.
func TestAdapter(t *testing.T) (*storage.Adapter, *storage.FS) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return storage.NewAdapter(fs), fs
}

// Env is a shared bus, window host, data directory and preference file that
// several surfaces of one test run against.
type Env struct {
	Bus       *bus.Local
	Host      *window.MemoryHost
	Adapter   *storage.Adapter
	PrefsPath string
}

// NewEnv creates an Env cleaned up with the test.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	local := bus.NewLocal(nil)
	t.Cleanup(func() { _ = local.Close() })
	adapter, _ := TestAdapter(t)
	return &Env{
		Bus:       local,
		Host:      window.NewMemoryHost(),
		Adapter:   adapter,
		PrefsPath: filepath.Join(t.TempDir(), "widget.yaml"),
	}
}

// Surface starts a surface with the given label on the environment. Its
// writes go through a short-delay scheduler that is flushed on cleanup.
func (e *Env) Surface(t *testing.T, label string, opts ...store.Option) *surface.Surface {
	t.Helper()
	prefs, err := settings.Open(e.PrefsPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	sched := persist.NewScheduler(e.Adapter, persist.WithDelay(10*time.Millisecond))
	t.Cleanup(sched.Close)

	b := bus.New(e.Bus, label)
	t.Cleanup(b.Close)

	base := []store.Option{
		store.WithLoader(e.Adapter),
		store.WithPersister(sched),
		store.WithPublisher(b),
		store.WithPrefs(prefs),
	}
	st := store.New(append(base, opts...)...)
	s := surface.New(label, st, b, window.NewManager(e.Host, prefs), prefs, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

// Eventually polls cond until it holds or two seconds pass.
func Eventually(t *testing.T, what string, cond func() bool) {
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
