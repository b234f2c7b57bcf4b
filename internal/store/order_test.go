package store

import (
	"sync"
	"testing"
	"time"

	"github.com/starford/daily/internal/models"
)

// stallingPersister holds the first Schedule call until release is closed.
type stallingPersister struct {
	*recorder
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *stallingPersister) Schedule(snap models.AppData) {
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	p.recorder.Schedule(snap)
}

func TestEffectsLeaveInMutationOrder(t *testing.T) {
	s, rec := newTestStore(t)
	task := addTask(t, s, "Race")

	stall := &stallingPersister{recorder: rec, entered: make(chan struct{}), release: make(chan struct{})}
	s.persister = stall
	rec.reset()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.ToggleTask(task.ID)
	}()
	select {
	case <-stall.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first toggle never reached Schedule")
	}
	go func() {
		defer wg.Done()
		s.ToggleTask(task.ID)
	}()
	// Give the second toggle time to finish if nothing holds it back.
	time.Sleep(20 * time.Millisecond)
	close(stall.release)
	wg.Wait()

	got, _ := s.Task(task.ID)
	if got.Status != models.TaskActive {
		t.Fatalf("status = %q, want active after two toggles", got.Status)
	}
	e := rec.lastEmit(t)
	if p, ok := e.payload.(models.TaskStatusSync); !ok || p.Status != got.Status {
		t.Errorf("last emit = %+v, memory status %q", e.payload, got.Status)
	}
	snap := rec.lastSnapshot(t)
	if len(snap.Tasks) != 1 || snap.Tasks[0].Status != got.Status {
		t.Errorf("last snapshot = %+v, memory status %q", snap.Tasks, got.Status)
	}
}

func TestConcurrentTogglesAllApply(t *testing.T) {
	s, rec := newTestStore(t)

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(3)
		go func() { defer wg.Done(); s.ToggleWidgetShowAllTasks() }()
		go func() { defer wg.Done(); s.ToggleWidgetAlignMode() }()
		go func() { defer wg.Done(); s.ToggleWidgetLocked() }()
	}
	wg.Wait()

	st := s.State()
	if st.WidgetShowAllTasks || st.WidgetAlignMode != models.AlignRight || st.WidgetLocked {
		t.Errorf("after %d toggles each: show-all %v align %q locked %v", n, st.WidgetShowAllTasks, st.WidgetAlignMode, st.WidgetLocked)
	}
	if _, _, emits := rec.counts(); emits != 3*n {
		t.Errorf("emits = %d, want %d", emits, 3*n)
	}
	snap := rec.lastSnapshot(t)
	if snap.WidgetShowAllTasks != st.WidgetShowAllTasks || snap.WidgetAlignMode != st.WidgetAlignMode {
		t.Errorf("last snapshot flags = %v %q", snap.WidgetShowAllTasks, snap.WidgetAlignMode)
	}
}
