// Package surface binds one surface's store, bus, window manager and
// preferences together.
package surface

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/daily/internal/bus"
	"github.com/starford/daily/internal/models"
	"github.com/starford/daily/internal/settings"
	"github.com/starford/daily/internal/store"
	"github.com/starford/daily/internal/window"
)

// Prefs are the preferences a surface changes directly.
type Prefs interface {
	Scale() int
	SetScale(scale int) error
}

// Surface is one running presentation surface.
type Surface struct {
	label   string
	store   *store.Store
	bus     *bus.Bus
	windows *window.Manager
	prefs   Prefs
	logger  *slog.Logger

	// remoteWidget is set when the widget window lives in another process.
	remoteWidget bool

	mu     sync.Mutex
	unsubs []func()
}

// Option configures a Surface.
type Option func(*Surface)

// WithRemoteWidget marks the widget window as owned by another process. The
// surface then only records and announces visibility; the widget surface
// shows or hides its own window when it hears the change.
func WithRemoteWidget(remote bool) Option {
	return func(s *Surface) {
		s.remoteWidget = remote
	}
}

// New wires a surface. label is "main", "widget" or empty for an anonymous
// surface, which behaves like main but never filters echoes.
func New(label string, st *store.Store, b *bus.Bus, wm *window.Manager, prefs Prefs, logger *slog.Logger, opts ...Option) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Surface{
		label:   label,
		store:   st,
		bus:     b,
		windows: wm,
		prefs:   prefs,
		logger:  logger.With(slog.String("surface", label)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Label returns the surface label.
func (s *Surface) Label() string { return s.label }

// IsWidget reports whether this is the widget surface.
func (s *Surface) IsWidget() bool { return s.label == window.WidgetLabel }

// Store returns the surface's store.
func (s *Surface) Store() *store.Store { return s.store }

// Start loads state, subscribes to the bus and restores the widget window.
func (s *Surface) Start(ctx context.Context) error {
	s.store.Initialize(ctx)

	if err := s.listen(); err != nil {
		s.Close()
		return err
	}

	if s.IsWidget() {
		w, err := s.windows.EnsureWidget(ctx)
		if err != nil {
			s.logger.Warn("surface: widget window", slog.String("error", err.Error()))
			return nil
		}
		// Host move events travel over the bus like any other widget event.
		s.track(w.OnMoved(func(pos models.WidgetPosition) {
			s.bus.Emit(bus.TopicWidgetMoved, pos)
		}))
		st := s.store.State()
		s.applyLock(ctx, st.WidgetLocked)
		if st.WidgetVisible {
			s.showWidget(ctx, true)
		}
		return nil
	}

	if !s.remoteWidget && s.store.State().WidgetVisible {
		if err := s.windows.SetVisibility(ctx, true); err != nil {
			s.logger.Warn("surface: restore widget", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *Surface) track(unsub func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubs = append(s.unsubs, unsub)
}

func (s *Surface) listen() error {
	subs := []func() (func(), error){
		func() (func(), error) {
			return bus.Synced(s.bus, bus.TopicTaskStatusUpdated, s.store.ApplySyncedTaskStatus)
		},
		func() (func(), error) {
			return bus.Synced(s.bus, bus.TopicTasksStateUpdated, s.store.ApplySyncedTasksState)
		},
		func() (func(), error) {
			return bus.Synced(s.bus, bus.TopicWidgetTaskViewUpdated, s.store.ApplySyncedWidgetTaskView)
		},
		func() (func(), error) {
			return bus.Synced(s.bus, bus.TopicWidgetAlignmentUpdated, s.store.ApplySyncedWidgetAlignment)
		},
		func() (func(), error) {
			return bus.Value(s.bus, bus.TopicWidgetLockState, s.onLockState)
		},
		func() (func(), error) {
			return bus.Value(s.bus, bus.TopicWidgetVisibilityState, s.onVisibilityState)
		},
	}
	if s.IsWidget() {
		subs = append(subs,
			func() (func(), error) {
				return bus.Value(s.bus, bus.TopicWidgetMoved, s.onMoved)
			},
			func() (func(), error) {
				return s.bus.Listen(bus.TopicWidgetForceUnlock, func(json.RawMessage) { s.onForceUnlock() })
			},
		)
	}

	for _, sub := range subs {
		unsub, err := sub()
		if err != nil {
			return err
		}
		s.track(unsub)
	}
	return nil
}

func (s *Surface) onLockState(locked bool) {
	if !s.store.ApplyWidgetLocked(locked) {
		return
	}
	s.applyLock(context.Background(), locked)
}

func (s *Surface) onVisibilityState(visible bool) {
	changed := s.store.ApplyWidgetVisible(visible)
	if changed && s.IsWidget() {
		s.showWidget(context.Background(), visible)
	}
}

// showWidget applies visibility to this process's widget window.
func (s *Surface) showWidget(ctx context.Context, visible bool) {
	if err := s.windows.SetVisibility(ctx, visible); err != nil {
		s.logger.Warn("surface: widget visibility",
			slog.Bool("visible", visible),
			slog.String("error", err.Error()))
	}
}

func (s *Surface) onMoved(pos models.WidgetPosition) {
	s.store.RecordWidgetPosition(pos)
}

func (s *Surface) onForceUnlock() {
	s.logger.Info("surface: force unlock")
	s.store.SetWidgetLocked(false)
	s.applyLock(context.Background(), false)
}

// applyLock sets the lock on the widget window if there is one.
func (s *Surface) applyLock(ctx context.Context, locked bool) {
	w, ok := s.windows.Widget()
	if !ok {
		return
	}
	if err := s.windows.ApplyLock(ctx, w, locked); err != nil {
		s.logger.Warn("surface: apply lock", slog.String("error", err.Error()))
	}
}

// OnPrefsChanged reacts to preference changes made by another process.
func (s *Surface) OnPrefsChanged(p settings.Prefs) {
	ctx := context.Background()
	if s.store.ApplyWidgetLocked(p.Locked) {
		s.applyLock(ctx, p.Locked)
	}
	if w, ok := s.windows.Widget(); ok {
		if _, err := s.windows.Resize(ctx, w, p.Scale); err != nil {
			s.logger.Warn("surface: resize", slog.String("error", err.Error()))
		}
	}
}

// Close removes every bus subscription and window callback.
func (s *Surface) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// ErrLocked is returned by actions that need an unlocked widget.
var ErrLocked = errors.New("widget is locked")
