package store

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/daily/internal/bus"
	"github.com/starford/daily/internal/models"
)

func (s *Store) reject(op string, err error) {
	s.logger.Debug("store: input rejected", slog.String("op", op), slog.String("error", err.Error()))
}

// emitTasks queues the whole task collection for the other surface.
func (s *Store) emitTasks(fx *effects) {
	fx.emit(bus.TopicTasksStateUpdated, models.TasksStateSync{
		Tasks:         cloneTasks(s.tasks),
		SourceSurface: s.publisher.Source(),
	})
}

// ToggleTask flips the task between active and completed. Unknown ids are
// ignored.
func (s *Store) ToggleTask(id string) {
	s.mutate(func(fx *effects) {
		i := s.taskIndex(id)
		if i < 0 {
			return
		}
		t := cloneTask(s.tasks[i])
		t.Status = t.Status.Toggled()
		t.UpdatedAt = s.stamp()
		t.ClosedAt = nil
		if t.Status == models.TaskCompleted {
			closed := t.UpdatedAt
			t.ClosedAt = &closed
		}
		s.replaceTask(i, t)

		fx.persist = true
		fx.emit(bus.TopicTaskStatusUpdated, models.TaskStatusSync{
			TaskID:        t.ID,
			Status:        t.Status,
			UpdatedAt:     t.UpdatedAt,
			ClosedAt:      t.ClosedAt,
			SourceSurface: s.publisher.Source(),
		})
	})
}

// replaceTask swaps in a new value without touching the previous slice, so
// earlier snapshots stay intact.
func (s *Store) replaceTask(i int, t models.Task) {
	next := slices.Clone(s.tasks)
	next[i] = t
	s.tasks = next
}

// AddTask prepends a new task. A blank title is rejected.
func (s *Store) AddTask(in TaskInput) (models.Task, bool) {
	if err := in.Validate(); err != nil {
		s.reject("add task", err)
		return models.Task{}, false
	}

	var created models.Task
	s.mutate(func(fx *effects) {
		now := s.stamp()
		status := in.Status
		if status == "" {
			status = models.TaskActive
		}
		created = models.Task{
			ID:            uuid.NewString(),
			Title:         strings.TrimSpace(in.Title),
			ExecutionDate: NormalizeDateKey(in.ExecutionDate, s.now()),
			Status:        status,
			Priority:      in.Priority,
			GlobalID:      strings.TrimSpace(in.GlobalID),
			ParentID:      strings.TrimSpace(in.ParentID),
			Tags:          NormalizeTags(in.Tags),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if status == models.TaskCompleted {
			closed := now
			created.ClosedAt = &closed
		}
		s.tasks = append([]models.Task{created}, s.tasks...)

		fx.persist = true
		s.emitTasks(fx)
	})
	return cloneTask(created), true
}

// UpdateTask applies patch. Nothing is published when nothing changed.
func (s *Store) UpdateTask(id string, patch TaskPatch) bool {
	if err := patch.Validate(); err != nil {
		s.reject("update task", err)
		return false
	}

	updated := false
	s.mutate(func(fx *effects) {
		i := s.taskIndex(id)
		if i < 0 {
			return
		}
		prev := s.tasks[i]
		t := cloneTask(prev)
		if patch.Title != nil {
			t.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.ExecutionDate != nil && strings.TrimSpace(*patch.ExecutionDate) != "" {
			t.ExecutionDate = NormalizeDateKey(*patch.ExecutionDate, s.now())
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.Tags != nil {
			t.Tags = NormalizeTags(*patch.Tags)
		} else {
			t.Tags = NormalizeTags(t.Tags)
		}

		if t.Title == prev.Title &&
			t.ExecutionDate == prev.ExecutionDate &&
			t.Status == prev.Status &&
			t.Priority == prev.Priority &&
			slices.Equal(t.Tags, NormalizeTags(prev.Tags)) {
			return
		}

		t.UpdatedAt = s.stamp()
		if t.Status != prev.Status {
			t.ClosedAt = nil
			if t.Status == models.TaskCompleted {
				closed := t.UpdatedAt
				t.ClosedAt = &closed
			}
		}
		s.replaceTask(i, t)
		updated = true

		fx.persist = true
		s.emitTasks(fx)
	})
	return updated
}

// AddTaskTag adds one tag to a task.
func (s *Store) AddTaskTag(taskID, tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	return s.retag(taskID, func(tags []string) []string {
		return NormalizeTags(append(slices.Clone(tags), tag))
	})
}

// RemoveTaskTag removes one tag from a task.
func (s *Store) RemoveTaskTag(taskID, tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	return s.retag(taskID, func(tags []string) []string {
		out := slices.DeleteFunc(slices.Clone(tags), func(t string) bool { return t == tag })
		if len(out) == 0 {
			return nil
		}
		return out
	})
}

func (s *Store) retag(taskID string, change func([]string) []string) bool {
	updated := false
	s.mutate(func(fx *effects) {
		i := s.taskIndex(taskID)
		if i < 0 {
			return
		}
		prev := NormalizeTags(s.tasks[i].Tags)
		next := change(prev)
		if slices.Equal(prev, next) {
			return
		}

		t := cloneTask(s.tasks[i])
		t.Tags = next
		t.UpdatedAt = s.stamp()
		s.replaceTask(i, t)
		updated = true

		fx.persist = true
		s.emitTasks(fx)
	})
	return updated
}
