package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/daily/internal/apperr"
	"github.com/starford/daily/internal/models"
)

// DefaultCreateTimeout bounds widget creation.
const DefaultCreateTimeout = 5 * time.Second

const (
	lookupRetries  = 10
	lookupInterval = 50 * time.Millisecond
)

// Prefs supplies the stored widget geometry and lock state.
type Prefs interface {
	Scale() int
	Locked() bool
	Position() (models.WidgetPosition, bool)
}

// Option configures a Manager.
type Option func(*Manager)

// WithGeometry sets the base size and scale range.
func WithGeometry(g Geometry) Option {
	return func(m *Manager) { m.geom = g }
}

// WithCreateTimeout bounds widget creation.
func WithCreateTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager owns the widget window's lifecycle and geometry. It holds no
// domain data.
type Manager struct {
	host    Host
	prefs   Prefs
	geom    Geometry
	timeout time.Duration
	logger  *slog.Logger

	inflight singleflight.Group
}

// NewManager builds a manager over host.
func NewManager(host Host, prefs Prefs, opts ...Option) *Manager {
	m := &Manager{
		host:    host,
		prefs:   prefs,
		geom:    DefaultGeometry,
		timeout: DefaultCreateTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Geometry returns the manager's geometry.
func (m *Manager) Geometry() Geometry { return m.geom }

// Widget returns the widget window if it exists.
func (m *Manager) Widget() (Window, bool) {
	return m.host.Lookup(WidgetLabel)
}

// EnsureWidget returns the widget window, creating it if needed. Concurrent
// callers share one creation attempt. Errors wrap apperr.ErrTimeout or
// apperr.ErrCreateFailed.
func (m *Manager) EnsureWidget(ctx context.Context) (Window, error) {
	if w, ok := m.host.Lookup(WidgetLabel); ok {
		return w, nil
	}

	ch := m.inflight.DoChan(WidgetLabel, func() (any, error) {
		return m.create()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Window), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) widgetOptions() Options {
	locked := m.prefs.Locked()
	opts := Options{
		Label:        WidgetLabel,
		Title:        "Daily Widget",
		Size:         m.geom.SizeFor(m.prefs.Scale()),
		AlwaysOnTop:  true,
		Focusable:    !locked,
		IgnoreCursor: locked,
		Transparent:  true,
		SkipTaskbar:  true,
	}
	if pos, ok := m.prefs.Position(); ok {
		opts.Position = &pos
	}
	return opts
}

type created struct {
	w   Window
	err error
}

func (m *Manager) create() (Window, error) {
	if w, ok := m.host.Lookup(WidgetLabel); ok {
		return w, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	opts := m.widgetOptions()
	done := make(chan created, 1)
	go func() {
		w, err := m.host.Create(ctx, opts)
		done <- created{w: w, err: err}
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn("window: widget creation timed out", slog.Duration("timeout", m.timeout))
		return nil, fmt.Errorf("window: create widget after %s: %w", m.timeout, apperr.ErrTimeout)

	case res := <-done:
		switch {
		case errors.Is(res.err, apperr.ErrAlreadyExists):
			// Another caller won the race; use its window.
			return m.awaitExisting(ctx)
		case errors.Is(res.err, context.DeadlineExceeded):
			return nil, fmt.Errorf("window: create widget after %s: %w", m.timeout, apperr.ErrTimeout)
		case res.err != nil:
			m.logger.Warn("window: widget creation failed", slog.String("error", res.err.Error()))
			return nil, fmt.Errorf("%w: %v", apperr.ErrCreateFailed, res.err)
		}
		m.logger.Info("window: widget created",
			slog.Int("width", opts.Size.Width),
			slog.Int("height", opts.Size.Height),
		)
		return res.w, nil
	}
}

func (m *Manager) awaitExisting(ctx context.Context) (Window, error) {
	for i := 0; i < lookupRetries; i++ {
		if w, ok := m.host.Lookup(WidgetLabel); ok {
			return w, nil
		}
		select {
		case <-time.After(lookupInterval):
		case <-ctx.Done():
			return nil, fmt.Errorf("window: create widget after %s: %w", m.timeout, apperr.ErrTimeout)
		}
	}
	return nil, fmt.Errorf("%w: widget reported as existing but not found", apperr.ErrCreateFailed)
}

// SetVisibility shows the widget, creating it if needed, or hides it. Hiding
// never creates or destroys the window.
func (m *Manager) SetVisibility(ctx context.Context, visible bool) error {
	if !visible {
		w, ok := m.host.Lookup(WidgetLabel)
		if !ok {
			return nil
		}
		return w.Hide(ctx)
	}

	w, err := m.EnsureWidget(ctx)
	if err != nil {
		return err
	}
	if err := w.Show(ctx); err != nil {
		return fmt.Errorf("window: show widget: %w", err)
	}
	if m.prefs.Locked() {
		return nil
	}
	if err := w.Focus(ctx); err != nil {
		m.logger.Debug("window: focus widget", slog.String("error", err.Error()))
	}
	return nil
}

// ApplyLock sets the three host properties that make up the lock. Unlocking
// also focuses the window.
func (m *Manager) ApplyLock(ctx context.Context, w Window, locked bool) error {
	if err := w.SetIgnoreCursorEvents(ctx, locked); err != nil {
		return fmt.Errorf("window: ignore cursor: %w", err)
	}
	if err := w.SetFocusable(ctx, !locked); err != nil {
		return fmt.Errorf("window: focusable: %w", err)
	}
	if err := w.SetAlwaysOnTop(ctx, true); err != nil {
		return fmt.Errorf("window: always on top: %w", err)
	}
	if locked {
		return nil
	}
	if err := w.Focus(ctx); err != nil {
		return fmt.Errorf("window: focus: %w", err)
	}
	return nil
}

// Resize applies scale, keeping the right edge where it was.
func (m *Manager) Resize(ctx context.Context, w Window, scale int) (Size, error) {
	pos, err := w.Position(ctx)
	if err != nil {
		return Size{}, fmt.Errorf("window: position: %w", err)
	}
	cur, err := w.Size(ctx)
	if err != nil {
		return Size{}, fmt.Errorf("window: size: %w", err)
	}

	next := m.geom.SizeFor(scale)
	if next == cur {
		return cur, nil
	}
	right := pos.X + cur.Width
	if err := w.SetSize(ctx, next); err != nil {
		return Size{}, fmt.Errorf("window: set size: %w", err)
	}
	if err := w.SetPosition(ctx, models.WidgetPosition{X: right - next.Width, Y: pos.Y}); err != nil {
		return Size{}, fmt.Errorf("window: set position: %w", err)
	}
	return next, nil
}

// StartDragging begins a user drag unless the widget is locked.
func (m *Manager) StartDragging(ctx context.Context, w Window, locked bool) error {
	if locked {
		return nil
	}
	return w.StartDragging(ctx)
}

// FocusMain shows and focuses the main window if it exists.
func (m *Manager) FocusMain(ctx context.Context) error {
	w, ok := m.host.Lookup(MainLabel)
	if !ok {
		return nil
	}
	if err := w.Show(ctx); err != nil {
		return fmt.Errorf("window: show main: %w", err)
	}
	return w.Focus(ctx)
}
