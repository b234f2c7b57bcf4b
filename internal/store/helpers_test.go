package store

import (
	"sync"
	"testing"
	"time"

	"github.com/starford/daily/internal/models"
)

type emitted struct {
	topic   string
	payload any
}

// recorder captures every effect a store dispatches.
type recorder struct {
	mu        sync.Mutex
	source    *string
	snapshots []models.AppData
	configs   []models.AppConfig
	emits     []emitted
}

func (r *recorder) Schedule(snap models.AppData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snap)
}

func (r *recorder) SaveConfig(cfg models.AppConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
}

func (r *recorder) Source() *string { return r.source }

func (r *recorder) Emit(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = append(r.emits, emitted{topic: topic, payload: payload})
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots, r.configs, r.emits = nil, nil, nil
}

func (r *recorder) counts() (snapshots, configs, emits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots), len(r.configs), len(r.emits)
}

func (r *recorder) lastEmit(t *testing.T) emitted {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.emits) == 0 {
		t.Fatal("nothing emitted")
	}
	return r.emits[len(r.emits)-1]
}

func (r *recorder) lastSnapshot(t *testing.T) models.AppData {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		t.Fatal("nothing scheduled")
	}
	return r.snapshots[len(r.snapshots)-1]
}

// fixedNow is a clock that never moves, so ordering relies on stamp().
var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)

func label(s string) *string { return &s }

// newTestStore returns an initialized store labelled "main".
func newTestStore(t *testing.T, opts ...Option) (*Store, *recorder) {
	t.Helper()
	rec := &recorder{source: label("main")}
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithPersister(rec),
		WithPublisher(rec),
	}
	s := New(append(base, opts...)...)
	s.Initialize(t.Context())
	rec.reset()
	return s, rec
}

func addTask(t *testing.T, s *Store, title string) models.Task {
	t.Helper()
	task, ok := s.AddTask(TaskInput{Title: title})
	if !ok {
		t.Fatalf("AddTask(%q) rejected", title)
	}
	return task
}
