package surface

import (
	"context"
	"log/slog"

	"github.com/starford/daily/internal/window"
)

// SetWidgetVisible shows or hides the widget window and records the new
// state. It is the one action whose failure reaches the caller. With a
// remote widget the window change is left to the widget process.
func (s *Surface) SetWidgetVisible(ctx context.Context, visible bool) error {
	if !s.remoteWidget {
		if err := s.windows.SetVisibility(ctx, visible); err != nil {
			return err
		}
	}
	s.store.SetWidgetVisible(visible)
	return nil
}

// ToggleWidgetVisible flips widget visibility and returns the new value.
func (s *Surface) ToggleWidgetVisible(ctx context.Context) (bool, error) {
	next := !s.store.State().WidgetVisible
	if err := s.SetWidgetVisible(ctx, next); err != nil {
		return !next, err
	}
	return next, nil
}

// SetWidgetLocked locks or unlocks the widget.
func (s *Surface) SetWidgetLocked(ctx context.Context, locked bool) {
	s.store.SetWidgetLocked(locked)
	s.applyLock(ctx, locked)
}

// ToggleWidgetLocked flips the lock and returns the new value.
func (s *Surface) ToggleWidgetLocked(ctx context.Context) bool {
	locked := s.store.ToggleWidgetLocked()
	s.applyLock(ctx, locked)
	return locked
}

// ToggleWidgetShowAllTasks flips the widget list mode. It is ignored while
// the widget is locked.
func (s *Surface) ToggleWidgetShowAllTasks() error {
	if s.store.State().WidgetLocked {
		return ErrLocked
	}
	s.store.ToggleWidgetShowAllTasks()
	return nil
}

// SetWidgetScale stores the scale and resizes the widget window, keeping its
// right edge in place. It returns the applied scale.
func (s *Surface) SetWidgetScale(ctx context.Context, scale int) (int, error) {
	scale = s.windows.Geometry().ClampScale(scale)
	if err := s.prefs.SetScale(scale); err != nil {
		s.logger.Warn("surface: save scale", slog.String("error", err.Error()))
	}
	w, ok := s.windows.Widget()
	if !ok {
		return scale, nil
	}
	if _, err := s.windows.Resize(ctx, w, scale); err != nil {
		return scale, err
	}
	return scale, nil
}

// StartDragging begins moving the widget window. Locked widgets do not move.
func (s *Surface) StartDragging(ctx context.Context) error {
	locked := s.store.State().WidgetLocked
	if locked {
		return ErrLocked
	}
	w, ok := s.windows.Widget()
	if !ok {
		return nil
	}
	return s.windows.StartDragging(ctx, w, locked)
}

// ExpandToMain brings the main window forward.
func (s *Surface) ExpandToMain(ctx context.Context) error {
	return s.windows.FocusMain(ctx)
}

// WidgetWindow returns the widget window if it exists.
func (s *Surface) WidgetWindow() (window.Window, bool) {
	return s.windows.Widget()
}

// WidgetScale returns the stored widget scale percentage.
func (s *Surface) WidgetScale() int {
	return s.prefs.Scale()
}
