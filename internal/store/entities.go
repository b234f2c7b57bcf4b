package store

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/daily/internal/models"
)

// AddGlobal prepends a global and selects it. Globals stay on this surface
// until the other one reloads.
func (s *Store) AddGlobal(in GlobalInput) (models.Global, bool) {
	if err := in.Validate(); err != nil {
		s.reject("add global", err)
		return models.Global{}, false
	}

	var created models.Global
	s.mutate(func(fx *effects) {
		now := s.stamp()
		status := in.Status
		if status == "" {
			status = models.GlobalActive
		}
		created = models.Global{
			ID:          uuid.NewString(),
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			Status:      status,
			StartDate:   NormalizeDateKey(in.StartDate, s.now()),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.globals = append([]models.Global{created}, s.globals...)
		s.selectedGlobalID = created.ID
		fx.persist = true
	})
	return created, true
}

// UpdateGlobal applies patch. Status changes never touch referencing tasks
// or sparks.
func (s *Store) UpdateGlobal(id string, patch GlobalPatch) bool {
	if err := patch.Validate(); err != nil {
		s.reject("update global", err)
		return false
	}

	found := false
	s.mutate(func(fx *effects) {
		i := slices.IndexFunc(s.globals, func(g models.Global) bool { return g.ID == id })
		if i < 0 {
			return
		}
		g := s.globals[i]
		if patch.Title != nil {
			g.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			g.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Status != nil {
			g.Status = *patch.Status
		}
		if patch.StartDate != nil && strings.TrimSpace(*patch.StartDate) != "" {
			g.StartDate = NormalizeDateKey(*patch.StartDate, s.now())
		}
		g.UpdatedAt = s.stamp()

		next := slices.Clone(s.globals)
		next[i] = g
		s.globals = next
		found = true
		fx.persist = true
	})
	return found
}

// SelectGlobal sets the selected global; an empty id clears the selection.
func (s *Store) SelectGlobal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedGlobalID = id
}

// AddTaskLog prepends a log to an existing task.
func (s *Store) AddTaskLog(in LogInput) (models.TaskLog, bool) {
	s.mu.RLock()
	types := s.logTypes
	known := s.taskIndex(in.TaskID) >= 0
	s.mu.RUnlock()

	if err := in.validate(types); err != nil {
		s.reject("add log", err)
		return models.TaskLog{}, false
	}
	if !known {
		s.logger.Debug("store: log for unknown task ignored")
		return models.TaskLog{}, false
	}

	var created models.TaskLog
	s.mutate(func(fx *effects) {
		now := s.stamp()
		created = models.TaskLog{
			ID:        uuid.NewString(),
			TaskID:    in.TaskID,
			Type:      in.Type,
			Content:   strings.TrimSpace(in.Content),
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.taskLogs = append([]models.TaskLog{created}, s.taskLogs...)
		fx.persist = true
	})
	return created, true
}

func (s *Store) idSets() (globals, tasks map[string]struct{}) {
	globals = make(map[string]struct{}, len(s.globals))
	for _, g := range s.globals {
		globals[g.ID] = struct{}{}
	}
	tasks = make(map[string]struct{}, len(s.tasks))
	for _, t := range s.tasks {
		tasks[t.ID] = struct{}{}
	}
	return globals, tasks
}

// AddSpark prepends a spark, dropping references to unknown globals and
// tasks.
func (s *Store) AddSpark(in SparkInput) (models.Spark, bool) {
	if err := in.Validate(); err != nil {
		s.reject("add spark", err)
		return models.Spark{}, false
	}

	var created models.Spark
	s.mutate(func(fx *effects) {
		now := s.stamp()
		globalIDs, taskIDs := s.idSets()
		created = models.Spark{
			ID:          uuid.NewString(),
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			GlobalIDs:   normalizeIDs(in.GlobalIDs, globalIDs),
			TaskIDs:     normalizeIDs(in.TaskIDs, taskIDs),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.sparks = append([]models.Spark{created}, s.sparks...)
		fx.persist = true
	})
	return created, true
}

// UpdateSpark applies patch.
func (s *Store) UpdateSpark(id string, patch SparkPatch) bool {
	if err := patch.Validate(); err != nil {
		s.reject("update spark", err)
		return false
	}

	found := false
	s.mutate(func(fx *effects) {
		i := slices.IndexFunc(s.sparks, func(sp models.Spark) bool { return sp.ID == id })
		if i < 0 {
			return
		}
		globalIDs, taskIDs := s.idSets()
		sp := s.sparks[i]
		if patch.Title != nil {
			sp.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			sp.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.GlobalIDs != nil {
			sp.GlobalIDs = normalizeIDs(*patch.GlobalIDs, globalIDs)
		} else {
			sp.GlobalIDs = slices.Clone(sp.GlobalIDs)
		}
		if patch.TaskIDs != nil {
			sp.TaskIDs = normalizeIDs(*patch.TaskIDs, taskIDs)
		} else {
			sp.TaskIDs = slices.Clone(sp.TaskIDs)
		}
		sp.UpdatedAt = s.stamp()

		next := slices.Clone(s.sparks)
		next[i] = sp
		s.sparks = next
		found = true
		fx.persist = true
	})
	return found
}

// SetFilter sets the list filter. View state is neither persisted nor synced.
func (s *Store) SetFilter(f models.TaskFilter) {
	switch f {
	case models.FilterAll, models.FilterActive, models.FilterCompleted:
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// SetSortMode sets the list order.
func (s *Store) SetSortMode(m models.SortMode) {
	switch m {
	case models.SortStatus, models.SortDate, models.SortPriority:
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortMode = m
}
