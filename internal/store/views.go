package store

import (
	"cmp"
	"slices"
	"strings"

	"github.com/starford/daily/internal/models"
)

func statusRank(s models.TaskStatus) int {
	if s == models.TaskActive {
		return 0
	}
	return 1
}

func compareTitles(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// compareTasks orders two tasks for mode.
//
//	status:   active first, then date ascending, then title
//	date:     newest date first, then active first, then title
//	priority: highest priority first, then active first, then title
func compareTasks(a, b models.Task, mode models.SortMode) int {
	switch mode {
	case models.SortDate:
		if c := strings.Compare(b.ExecutionDate, a.ExecutionDate); c != 0 {
			return c
		}
	case models.SortPriority:
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
	default:
		if c := cmp.Compare(statusRank(a.Status), statusRank(b.Status)); c != 0 {
			return c
		}
		if c := strings.Compare(a.ExecutionDate, b.ExecutionDate); c != 0 {
			return c
		}
		return compareTitles(a.Title, b.Title)
	}
	if c := cmp.Compare(statusRank(a.Status), statusRank(b.Status)); c != 0 {
		return c
	}
	return compareTitles(a.Title, b.Title)
}

func sortTasks(tasks []models.Task, mode models.SortMode) {
	slices.SortStableFunc(tasks, func(a, b models.Task) int { return compareTasks(a, b, mode) })
}

// VisibleTasks filters tasks by status and sorts them.
func VisibleTasks(tasks []models.Task, filter models.TaskFilter, mode models.SortMode) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		switch filter {
		case models.FilterActive:
			if t.Status != models.TaskActive {
				continue
			}
		case models.FilterCompleted:
			if t.Status != models.TaskCompleted {
				continue
			}
		}
		out = append(out, cloneTask(t))
	}
	sortTasks(out, mode)
	return out
}

// WidgetTasks sorts tasks for the widget. Unless showAll is set, only the
// first limit active tasks are kept.
func WidgetTasks(tasks []models.Task, mode models.SortMode, showAll bool, limit int) []models.Task {
	if showAll {
		return VisibleTasks(tasks, models.FilterAll, mode)
	}
	out := VisibleTasks(tasks, models.FilterActive, mode)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GlobalTasks returns the tasks of a global in status order.
func GlobalTasks(tasks []models.Task, globalID string) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if globalID != "" && t.GlobalID == globalID {
			out = append(out, cloneTask(t))
		}
	}
	sortTasks(out, models.SortStatus)
	return out
}

// LogsForGlobal returns the logs of every task in a global, newest first.
func LogsForGlobal(logs []models.TaskLog, tasks []models.Task, globalID string) []models.TaskLog {
	members := make(map[string]struct{})
	for _, t := range tasks {
		if globalID != "" && t.GlobalID == globalID {
			members[t.ID] = struct{}{}
		}
	}
	var out []models.TaskLog
	for _, l := range logs {
		if _, ok := members[l.TaskID]; ok {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b models.TaskLog) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

// HasException reports whether an exception log is linked to the task.
func HasException(logs []models.TaskLog, taskID string) bool {
	return slices.ContainsFunc(logs, func(l models.TaskLog) bool {
		return l.TaskID == taskID && l.Type == models.LogException
	})
}

// VisibleTasks applies the current filter and sort mode.
func (s *Store) VisibleTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return VisibleTasks(s.tasks, s.filter, s.sortMode)
}

// WidgetTasks applies the current sort mode and widget display flag.
func (s *Store) WidgetTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return WidgetTasks(s.tasks, s.sortMode, s.widgetShowAll, s.widgetLimit)
}

// GlobalTasks returns the tasks of a global.
func (s *Store) GlobalTasks(globalID string) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return GlobalTasks(s.tasks, globalID)
}

// LogsForGlobal returns the logs of a global's tasks.
func (s *Store) LogsForGlobal(globalID string) []models.TaskLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return LogsForGlobal(s.taskLogs, s.tasks, globalID)
}

// HasException reports whether the task is flagged by an exception log.
func (s *Store) HasException(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return HasException(s.taskLogs, taskID)
}
