package window

import (
	"context"
	"sync"
	"time"

	"github.com/starford/daily/internal/apperr"
	"github.com/starford/daily/internal/models"
)

// MemoryHost is a Host without a window system. The headless app and tests
// use it.
type MemoryHost struct {
	mu      sync.Mutex
	windows map[string]*MemoryWindow
	creates int

	// CreateDelay delays every Create call.
	CreateDelay time.Duration
	// CreateErr, when set, is returned by Create.
	CreateErr error
	// Race makes Create register the window and then report
	// apperr.ErrAlreadyExists, as when a concurrent creator wins.
	Race bool
}

// NewMemoryHost returns an empty host.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{windows: make(map[string]*MemoryWindow)}
}

// Lookup returns the window with label.
func (h *MemoryHost) Lookup(label string) (Window, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[label]
	if !ok {
		return nil, false
	}
	return w, true
}

// Create registers a new window.
func (h *MemoryHost) Create(ctx context.Context, opts Options) (Window, error) {
	h.mu.Lock()
	h.creates++
	delay, createErr, race := h.CreateDelay, h.CreateErr, h.Race
	h.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if createErr != nil {
		return nil, createErr
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[opts.Label]; ok {
		return nil, apperr.ErrAlreadyExists
	}
	w := newMemoryWindow(opts)
	h.windows[opts.Label] = w
	if race {
		return nil, apperr.ErrAlreadyExists
	}
	return w, nil
}

// Add registers a window directly, as for the main window at start-up.
func (h *MemoryHost) Add(opts Options) *MemoryWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	w := newMemoryWindow(opts)
	h.windows[opts.Label] = w
	return w
}

// Window returns the window with label, or nil.
func (h *MemoryHost) Window(label string) *MemoryWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.windows[label]
}

// Creates returns how many times Create was called.
func (h *MemoryHost) Creates() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.creates
}

// WindowState is a snapshot of a MemoryWindow.
type WindowState struct {
	Position     models.WidgetPosition
	Size         Size
	Visible      bool
	Focused      bool
	Focusable    bool
	IgnoreCursor bool
	AlwaysOnTop  bool
	Drags        int
}

// MemoryWindow records every property set on it.
type MemoryWindow struct {
	label string

	mu      sync.Mutex
	state   WindowState
	moved   map[int]func(models.WidgetPosition)
	movedID int
}

func newMemoryWindow(opts Options) *MemoryWindow {
	w := &MemoryWindow{
		label: opts.Label,
		moved: make(map[int]func(models.WidgetPosition)),
		state: WindowState{
			Size:         opts.Size,
			Visible:      opts.Visible,
			Focusable:    opts.Focusable,
			IgnoreCursor: opts.IgnoreCursor,
			AlwaysOnTop:  opts.AlwaysOnTop,
		},
	}
	if opts.Position != nil {
		w.state.Position = *opts.Position
	}
	return w
}

// State returns a snapshot of the window.
func (w *MemoryWindow) State() WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *MemoryWindow) set(fn func(s *WindowState)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.state)
	return nil
}

func (w *MemoryWindow) Label() string { return w.label }

func (w *MemoryWindow) Show(context.Context) error {
	return w.set(func(s *WindowState) { s.Visible = true })
}

func (w *MemoryWindow) Hide(context.Context) error {
	return w.set(func(s *WindowState) { s.Visible, s.Focused = false, false })
}

func (w *MemoryWindow) Focus(context.Context) error {
	return w.set(func(s *WindowState) { s.Focused = s.Focusable })
}

func (w *MemoryWindow) IsVisible(context.Context) (bool, error) {
	return w.State().Visible, nil
}

func (w *MemoryWindow) Position(context.Context) (models.WidgetPosition, error) {
	return w.State().Position, nil
}

func (w *MemoryWindow) SetPosition(_ context.Context, pos models.WidgetPosition) error {
	return w.set(func(s *WindowState) { s.Position = pos })
}

func (w *MemoryWindow) Size(context.Context) (Size, error) {
	return w.State().Size, nil
}

func (w *MemoryWindow) SetSize(_ context.Context, size Size) error {
	return w.set(func(s *WindowState) { s.Size = size })
}

func (w *MemoryWindow) SetIgnoreCursorEvents(_ context.Context, ignore bool) error {
	return w.set(func(s *WindowState) { s.IgnoreCursor = ignore })
}

func (w *MemoryWindow) SetFocusable(_ context.Context, focusable bool) error {
	return w.set(func(s *WindowState) {
		s.Focusable = focusable
		if !focusable {
			s.Focused = false
		}
	})
}

func (w *MemoryWindow) SetAlwaysOnTop(_ context.Context, onTop bool) error {
	return w.set(func(s *WindowState) { s.AlwaysOnTop = onTop })
}

func (w *MemoryWindow) StartDragging(context.Context) error {
	return w.set(func(s *WindowState) { s.Drags++ })
}

func (w *MemoryWindow) OnMoved(fn func(models.WidgetPosition)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.movedID
	w.movedID++
	w.moved[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.moved, id)
	}
}

// Move simulates the user moving the window.
func (w *MemoryWindow) Move(pos models.WidgetPosition) {
	w.mu.Lock()
	w.state.Position = pos
	fns := make([]func(models.WidgetPosition), 0, len(w.moved))
	for _, fn := range w.moved {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(pos)
	}
}
