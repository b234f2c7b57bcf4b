package store

import (
	"github.com/starford/daily/internal/models"
)

// The ApplySynced operations ingest payloads from the other surface. They
// schedule local persistence like any mutation but never publish.

// ApplySyncedTaskStatus sets one task's status and timestamps.
func (s *Store) ApplySyncedTaskStatus(p models.TaskStatusSync) {
	if p.Status != models.TaskActive && p.Status != models.TaskCompleted {
		return
	}
	s.mutate(func(fx *effects) {
		i := s.taskIndex(p.TaskID)
		if i < 0 {
			return
		}
		t := cloneTask(s.tasks[i])
		t.Status = p.Status
		t.UpdatedAt = p.UpdatedAt
		t.ClosedAt = nil
		if p.ClosedAt != nil {
			closed := *p.ClosedAt
			t.ClosedAt = &closed
		}
		s.observeStamp(p.UpdatedAt)
		s.replaceTask(i, t)
		fx.persist = true
	})
}

// ApplySyncedTasksState replaces the task collection.
func (s *Store) ApplySyncedTasksState(p models.TasksStateSync) {
	s.mutate(func(fx *effects) {
		s.tasks = orEmpty(cloneTasks(p.Tasks))
		for _, t := range s.tasks {
			s.observeStamp(t.UpdatedAt)
		}
		fx.persist = true
	})
}

// ApplySyncedWidgetTaskView sets the widget "show all" flag.
func (s *Store) ApplySyncedWidgetTaskView(p models.WidgetTaskViewSync) {
	s.mutate(func(fx *effects) {
		s.widgetShowAll = p.ShowAllTasks
		fx.persist = true
	})
}

// ApplySyncedWidgetAlignment sets the widget alignment.
func (s *Store) ApplySyncedWidgetAlignment(p models.WidgetAlignmentSync) {
	if !p.AlignMode.Valid() {
		return
	}
	s.mutate(func(fx *effects) {
		s.widgetAlign = p.AlignMode
		fx.persist = true
	})
}
