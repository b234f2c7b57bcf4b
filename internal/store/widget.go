package store

import (
	"log/slog"

	"github.com/starford/daily/internal/bus"
	"github.com/starford/daily/internal/models"
)

// SetWidgetShowAllTasks sets the widget "show all" flag and syncs it.
func (s *Store) SetWidgetShowAllTasks(show bool) {
	s.mutate(func(fx *effects) {
		s.setShowAllLocked(fx, show)
	})
}

// ToggleWidgetShowAllTasks flips the widget "show all" flag.
func (s *Store) ToggleWidgetShowAllTasks() {
	s.mutate(func(fx *effects) {
		s.setShowAllLocked(fx, !s.widgetShowAll)
	})
}

func (s *Store) setShowAllLocked(fx *effects, show bool) {
	s.widgetShowAll = show
	fx.persist = true
	fx.emit(bus.TopicWidgetTaskViewUpdated, models.WidgetTaskViewSync{
		ShowAllTasks:  show,
		SourceSurface: s.publisher.Source(),
	})
}

// SetWidgetAlignMode sets the widget alignment and syncs it. Unknown modes
// are ignored.
func (s *Store) SetWidgetAlignMode(mode models.AlignMode) {
	if !mode.Valid() {
		return
	}
	s.mutate(func(fx *effects) {
		s.setAlignLocked(fx, mode)
	})
}

// ToggleWidgetAlignMode flips between left and right.
func (s *Store) ToggleWidgetAlignMode() {
	s.mutate(func(fx *effects) {
		s.setAlignLocked(fx, s.widgetAlign.Toggled())
	})
}

func (s *Store) setAlignLocked(fx *effects, mode models.AlignMode) {
	s.widgetAlign = mode
	fx.persist = true
	fx.emit(bus.TopicWidgetAlignmentUpdated, models.WidgetAlignmentSync{
		AlignMode:     mode,
		SourceSurface: s.publisher.Source(),
	})
}

// SetWidgetLocked stores the lock preference and announces it on the
// lock-state topic.
func (s *Store) SetWidgetLocked(locked bool) {
	s.mutate(func(fx *effects) {
		s.setLockedLocked(fx, locked)
	})
}

// ToggleWidgetLocked flips the lock and returns the new value.
func (s *Store) ToggleWidgetLocked() bool {
	var next bool
	s.mutate(func(fx *effects) {
		next = !s.widgetLocked
		s.setLockedLocked(fx, next)
	})
	return next
}

func (s *Store) setLockedLocked(fx *effects, locked bool) {
	s.widgetLocked = locked
	fx.locked = &locked
	fx.emit(bus.TopicWidgetLockState, locked)
}

// ApplyWidgetLocked records a lock change announced on the bus. It reports
// whether the value changed.
func (s *Store) ApplyWidgetLocked(locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.widgetLocked == locked {
		return false
	}
	s.widgetLocked = locked
	return true
}

// SetWidgetVisible records visibility, writes the config envelope at once
// and announces the change.
func (s *Store) SetWidgetVisible(visible bool) {
	s.mutate(func(fx *effects) {
		s.widgetVisible = visible
		cfg := s.configLocked(visible)
		fx.config = &cfg
		fx.emit(bus.TopicWidgetVisibilityState, visible)
	})
}

// ApplyWidgetVisible records a visibility change announced on the bus. It
// reports whether the value changed.
func (s *Store) ApplyWidgetVisible(visible bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.widgetVisible == visible {
		return false
	}
	s.widgetVisible = visible
	return true
}

// RecordWidgetPosition stores the last known widget position and rewrites
// the config envelope.
func (s *Store) RecordWidgetPosition(pos models.WidgetPosition) {
	if err := s.prefs.SetPosition(pos); err != nil {
		s.logger.Warn("store: save widget position", slog.String("error", err.Error()))
	}
	s.mutate(func(fx *effects) {
		cfg := s.configLocked(s.widgetVisible)
		fx.config = &cfg
	})
}

// WidgetPosition returns the last known widget position.
func (s *Store) WidgetPosition() (models.WidgetPosition, bool) {
	return s.prefs.Position()
}
