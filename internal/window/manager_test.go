package window

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/daily/internal/apperr"
	"github.com/starford/daily/internal/models"
)

type staticPrefs struct {
	scale    int
	locked   bool
	position *models.WidgetPosition
}

func (p staticPrefs) Scale() int { return p.scale }
func (p staticPrefs) Locked() bool { return p.locked }
func (p staticPrefs) Position() (models.WidgetPosition, bool) {
	if p.position == nil {
		return models.WidgetPosition{}, false
	}
	return *p.position, true
}

func TestGeometrySizeFor(t *testing.T) {
	cases := []struct {
		scale int
		want  Size
	}{
		{100, Size{360, 760}},
		{125, Size{450, 950}},
		{50, Size{252, 532}},
		{400, Size{1080, 2280}},
	}
	for _, tc := range cases {
		if got := DefaultGeometry.SizeFor(tc.scale); got != tc.want {
			t.Errorf("SizeFor(%d) = %+v, want %+v", tc.scale, got, tc.want)
		}
	}
}

func TestEnsureWidgetConcurrentCallsCreateOnce(t *testing.T) {
	host := NewMemoryHost()
	host.CreateDelay = 50 * time.Millisecond
	m := NewManager(host, staticPrefs{scale: 100})

	const callers = 8
	var wg sync.WaitGroup
	windows := make([]Window, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			windows[i], errs[i] = m.EnsureWidget(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if windows[i] != windows[0] {
			t.Errorf("caller %d got a different window", i)
		}
	}
	if n := host.Creates(); n != 1 {
		t.Errorf("Create called %d times, want 1", n)
	}
}

func TestEnsureWidgetReusesExisting(t *testing.T) {
	host := NewMemoryHost()
	existing := host.Add(Options{Label: WidgetLabel})
	m := NewManager(host, staticPrefs{scale: 100})

	w, err := m.EnsureWidget(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if w != Window(existing) {
		t.Error("existing window not reused")
	}
	if host.Creates() != 0 {
		t.Error("Create called for an existing window")
	}
}

func TestEnsureWidgetRecoversFromAlreadyExists(t *testing.T) {
	host := NewMemoryHost()
	host.Race = true
	m := NewManager(host, staticPrefs{scale: 100})

	w, err := m.EnsureWidget(context.Background())
	if err != nil {
		t.Fatalf("EnsureWidget: %v", err)
	}
	if w.Label() != WidgetLabel {
		t.Errorf("label = %q", w.Label())
	}
}

func TestEnsureWidgetErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		host := NewMemoryHost()
		host.CreateDelay = time.Second
		m := NewManager(host, staticPrefs{scale: 100}, WithCreateTimeout(30*time.Millisecond))

		_, err := m.EnsureWidget(context.Background())
		if !errors.Is(err, apperr.ErrTimeout) {
			t.Errorf("err = %v, want ErrTimeout", err)
		}
	})

	t.Run("host failure", func(t *testing.T) {
		host := NewMemoryHost()
		host.CreateErr = errors.New("no display")
		m := NewManager(host, staticPrefs{scale: 100})

		_, err := m.EnsureWidget(context.Background())
		if !errors.Is(err, apperr.ErrCreateFailed) {
			t.Errorf("err = %v, want ErrCreateFailed", err)
		}
		if errors.Is(err, apperr.ErrTimeout) {
			t.Error("host failure reported as timeout")
		}
	})
}

func TestEnsureWidgetRestoresPreferences(t *testing.T) {
	host := NewMemoryHost()
	pos := models.WidgetPosition{X: 1200, Y: 40}
	m := NewManager(host, staticPrefs{scale: 150, locked: true, position: &pos})

	if _, err := m.EnsureWidget(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := host.Window(WidgetLabel).State()
	want := WindowState{
		Position:     pos,
		Size:         Size{540, 1140},
		IgnoreCursor: true,
		AlwaysOnTop:  true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
}

func TestSetVisibility(t *testing.T) {
	host := NewMemoryHost()
	m := NewManager(host, staticPrefs{scale: 100})
	ctx := context.Background()

	if err := m.SetVisibility(ctx, false); err != nil {
		t.Fatal(err)
	}
	if host.Creates() != 0 {
		t.Fatal("hiding created the widget")
	}

	if err := m.SetVisibility(ctx, true); err != nil {
		t.Fatal(err)
	}
	st := host.Window(WidgetLabel).State()
	if !st.Visible || !st.Focused {
		t.Errorf("after show: %+v", st)
	}

	if err := m.SetVisibility(ctx, false); err != nil {
		t.Fatal(err)
	}
	if host.Window(WidgetLabel) == nil {
		t.Fatal("hiding destroyed the widget")
	}
	if host.Window(WidgetLabel).State().Visible {
		t.Error("still visible")
	}
}

func TestApplyLock(t *testing.T) {
	host := NewMemoryHost()
	w := host.Add(Options{Label: WidgetLabel, Focusable: true})
	m := NewManager(host, staticPrefs{scale: 100})
	ctx := context.Background()

	if err := m.ApplyLock(ctx, w, true); err != nil {
		t.Fatal(err)
	}
	st := w.State()
	if !st.IgnoreCursor || st.Focusable || !st.AlwaysOnTop {
		t.Errorf("locked state = %+v", st)
	}

	if err := m.ApplyLock(ctx, w, false); err != nil {
		t.Fatal(err)
	}
	st = w.State()
	if st.IgnoreCursor || !st.Focusable || !st.AlwaysOnTop || !st.Focused {
		t.Errorf("unlocked state = %+v", st)
	}
}

func TestResizeAnchorsRightEdge(t *testing.T) {
	host := NewMemoryHost()
	w := host.Add(Options{Label: WidgetLabel, Size: Size{360, 760}, Position: &models.WidgetPosition{X: 1000, Y: 50}})
	m := NewManager(host, staticPrefs{scale: 100})

	size, err := m.Resize(context.Background(), w, 200)
	if err != nil {
		t.Fatal(err)
	}
	if size != (Size{720, 1520}) {
		t.Errorf("size = %+v", size)
	}
	st := w.State()
	if right := st.Position.X + st.Size.Width; right != 1360 {
		t.Errorf("right edge = %d, want 1360", right)
	}
	if st.Position.Y != 50 {
		t.Errorf("y moved to %d", st.Position.Y)
	}
}

func TestStartDraggingOnlyWhenUnlocked(t *testing.T) {
	host := NewMemoryHost()
	w := host.Add(Options{Label: WidgetLabel})
	m := NewManager(host, staticPrefs{scale: 100})
	ctx := context.Background()

	_ = m.StartDragging(ctx, w, true)
	_ = m.StartDragging(ctx, w, false)

	if n := w.State().Drags; n != 1 {
		t.Errorf("drags = %d, want 1", n)
	}
}

func TestFocusMain(t *testing.T) {
	host := NewMemoryHost()
	m := NewManager(host, staticPrefs{scale: 100})
	ctx := context.Background()

	if err := m.FocusMain(ctx); err != nil {
		t.Fatalf("missing main: %v", err)
	}
	main := host.Add(Options{Label: MainLabel, Focusable: true})
	if err := m.FocusMain(ctx); err != nil {
		t.Fatal(err)
	}
	if st := main.State(); !st.Visible || !st.Focused {
		t.Errorf("main = %+v", st)
	}
}
