package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/daily/internal/models"
)

type recordingSaver struct {
	mu      sync.Mutex
	data    []models.AppData
	configs []models.AppConfig
	err     error
}

func (r *recordingSaver) SaveData(_ context.Context, data models.AppData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, data)
	return r.err
}

func (r *recordingSaver) SaveConfig(_ context.Context, cfg models.AppConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
	return r.err
}

func (r *recordingSaver) dataWrites() []models.AppData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AppData(nil), r.data...)
}

func (r *recordingSaver) configWrites() []models.AppConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AppConfig(nil), r.configs...)
}

func snapshotWithTasks(n int) models.AppData {
	data := models.EmptyAppData()
	for i := 0; i < n; i++ {
		data.Tasks = append(data.Tasks, models.Task{ID: string(rune('a' + i)), Title: "t"})
	}
	return data
}

func TestScheduleCoalescesBurst(t *testing.T) {
	saver := &recordingSaver{}
	s := NewScheduler(saver, WithDelay(100*time.Millisecond))
	defer s.Close()

	const n = 10
	for i := 1; i <= n; i++ {
		s.Schedule(snapshotWithTasks(i))
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)

	writes := saver.dataWrites()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
	if got := len(writes[0].Tasks); got != n {
		t.Errorf("written tasks = %d, want %d (latest snapshot)", got, n)
	}
}

func TestScheduleSeparatedByQuietPeriod(t *testing.T) {
	saver := &recordingSaver{}
	s := NewScheduler(saver, WithDelay(20*time.Millisecond))
	defer s.Close()

	s.Schedule(snapshotWithTasks(1))
	time.Sleep(100 * time.Millisecond)
	s.Schedule(snapshotWithTasks(2))
	time.Sleep(100 * time.Millisecond)

	if got := len(saver.dataWrites()); got != 2 {
		t.Fatalf("writes = %d, want 2", got)
	}
}

func TestFlushWritesPendingImmediately(t *testing.T) {
	saver := &recordingSaver{}
	s := NewScheduler(saver, WithDelay(time.Hour))
	defer s.Close()

	s.Schedule(snapshotWithTasks(3))
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	writes := saver.dataWrites()
	if len(writes) != 1 || len(writes[0].Tasks) != 3 {
		t.Fatalf("writes after flush = %+v", writes)
	}

	// Nothing pending: a second flush writes nothing.
	_ = s.Flush(context.Background())
	if got := len(saver.dataWrites()); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
}

func TestCloseWritesPending(t *testing.T) {
	saver := &recordingSaver{}
	s := NewScheduler(saver, WithDelay(time.Hour))
	s.Schedule(snapshotWithTasks(2))
	s.Close()

	if got := len(saver.dataWrites()); got != 1 {
		t.Fatalf("writes = %d, want 1", got)
	}

	// Safe no-ops after close.
	s.Schedule(snapshotWithTasks(1))
	s.SaveConfig(models.AppConfig{})
	if err := s.Flush(context.Background()); err != nil {
		t.Errorf("Flush after close: %v", err)
	}
}

func TestSaveConfigIsImmediateAndOrdered(t *testing.T) {
	saver := &recordingSaver{}
	s := NewScheduler(saver, WithDelay(time.Hour))
	defer s.Close()

	s.SaveConfig(models.AppConfig{WidgetVisible: true})
	s.SaveConfig(models.AppConfig{WidgetVisible: false})

	deadline := time.Now().Add(time.Second)
	for len(saver.configWrites()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	configs := saver.configWrites()
	if len(configs) != 2 {
		t.Fatalf("config writes = %d, want 2", len(configs))
	}
	if !configs[0].WidgetVisible || configs[1].WidgetVisible {
		t.Errorf("config writes out of order: %+v", configs)
	}
	if len(saver.dataWrites()) != 0 {
		t.Error("config writes must not flush the data envelope")
	}
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	saver := &recordingSaver{err: errors.New("disk full")}
	s := NewScheduler(saver, WithDelay(10*time.Millisecond))
	defer s.Close()

	s.Schedule(snapshotWithTasks(1))
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// The loop keeps serving after a failed write.
	s.Schedule(snapshotWithTasks(2))
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := len(saver.dataWrites()); got != 2 {
		t.Errorf("attempted writes = %d, want 2", got)
	}
}
