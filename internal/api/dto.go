package api

import (
	"github.com/starford/daily/internal/models"
	"github.com/starford/daily/internal/store"
)

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	Title         string            `json:"title" example:"Pay rent" validate:"required"`
	ExecutionDate string            `json:"executionDate,omitempty" example:"2026-03-14"`
	Status        models.TaskStatus `json:"status,omitempty" example:"active"`
	Priority      models.Priority   `json:"priority,omitempty" example:"high"`
	GlobalID      string            `json:"globalId,omitempty"`
	ParentID      string            `json:"parentId,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
}

func (r CreateTaskRequest) input() store.TaskInput {
	return store.TaskInput{
		Title:         r.Title,
		ExecutionDate: r.ExecutionDate,
		Status:        r.Status,
		Priority:      r.Priority,
		GlobalID:      r.GlobalID,
		ParentID:      r.ParentID,
		Tags:          r.Tags,
	}
}

// UpdateTaskRequest changes the fields that are present.
type UpdateTaskRequest struct {
	Title         *string            `json:"title,omitempty"`
	ExecutionDate *string            `json:"executionDate,omitempty"`
	Status        *models.TaskStatus `json:"status,omitempty"`
	Priority      *models.Priority   `json:"priority,omitempty"`
	Tags          *[]string          `json:"tags,omitempty"`
}

func (r UpdateTaskRequest) patch() store.TaskPatch {
	return store.TaskPatch{
		Title:         r.Title,
		ExecutionDate: r.ExecutionDate,
		Status:        r.Status,
		Priority:      r.Priority,
		Tags:          r.Tags,
	}
}

// CreateGlobalRequest is the request body for creating a global.
type CreateGlobalRequest struct {
	Title       string              `json:"title" example:"Ship v2" validate:"required"`
	Description string              `json:"description,omitempty"`
	Status      models.GlobalStatus `json:"status,omitempty" example:"active"`
	StartDate   string              `json:"startDate,omitempty" example:"2026-03-01"`
}

// UpdateGlobalRequest changes the fields that are present. An empty
// description clears it.
type UpdateGlobalRequest struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *models.GlobalStatus `json:"status,omitempty"`
	StartDate   *string              `json:"startDate,omitempty"`
}

// SelectGlobalRequest selects a global; an empty id clears the selection.
type SelectGlobalRequest struct {
	ID string `json:"id"`
}

// CreateLogRequest is the request body for adding a task log.
type CreateLogRequest struct {
	TaskID  string `json:"taskId" validate:"required"`
	Type    string `json:"type" example:"progress" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// CreateSparkRequest is the request body for creating a spark.
type CreateSparkRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	GlobalIDs   []string `json:"globalIds,omitempty"`
	TaskIDs     []string `json:"taskIds,omitempty"`
}

// UpdateSparkRequest changes the fields that are present.
type UpdateSparkRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	GlobalIDs   *[]string `json:"globalIds,omitempty"`
	TaskIDs     *[]string `json:"taskIds,omitempty"`
}

// ViewRequest changes the list filter and sort mode.
type ViewRequest struct {
	Filter   models.TaskFilter `json:"filter,omitempty" example:"active"`
	SortMode models.SortMode   `json:"sortMode,omitempty" example:"date"`
}

// VisibleRequest shows or hides the widget.
type VisibleRequest struct {
	Visible bool `json:"visible"`
}

// LockedRequest locks or unlocks the widget.
type LockedRequest struct {
	Locked bool `json:"locked"`
}

// AlignRequest sets the widget alignment.
type AlignRequest struct {
	AlignMode models.AlignMode `json:"alignMode" example:"left" validate:"required"`
}

// ScaleRequest sets the widget scale percentage.
type ScaleRequest struct {
	Scale int `json:"scale" example:"150" validate:"required"`
}

// TaskListResponse wraps task listings.
type TaskListResponse struct {
	Tasks []models.Task `json:"tasks" validate:"required"`
	Total int           `json:"total" example:"3" validate:"required"`
}

// TaskResponse is a task together with derived flags.
type TaskResponse struct {
	models.Task
	HasException bool `json:"hasException"`
}

// LogListResponse wraps log listings.
type LogListResponse struct {
	Logs []models.TaskLog `json:"logs" validate:"required"`
}

// StateResponse mirrors the store state.
type StateResponse struct {
	Tasks              []models.Task     `json:"tasks"`
	Globals            []models.Global   `json:"globals"`
	TaskLogs           []models.TaskLog  `json:"taskLogs"`
	Sparks             []models.Spark    `json:"sparks"`
	SelectedGlobalID   string            `json:"selectedGlobalId,omitempty"`
	Filter             models.TaskFilter `json:"filter"`
	SortMode           models.SortMode   `json:"sortMode"`
	WidgetLocked       bool              `json:"widgetLocked"`
	WidgetVisible      bool              `json:"widgetVisible"`
	WidgetShowAllTasks bool              `json:"widgetShowAllTasks"`
	WidgetAlignMode    models.AlignMode  `json:"widgetAlignMode"`
	Initialized        bool              `json:"initialized"`
}

func stateResponse(st store.State) StateResponse {
	return StateResponse{
		Tasks:              st.Tasks,
		Globals:            st.Globals,
		TaskLogs:           st.TaskLogs,
		Sparks:             st.Sparks,
		SelectedGlobalID:   st.SelectedGlobalID,
		Filter:             st.Filter,
		SortMode:           st.SortMode,
		WidgetLocked:       st.WidgetLocked,
		WidgetVisible:      st.WidgetVisible,
		WidgetShowAllTasks: st.WidgetShowAllTasks,
		WidgetAlignMode:    st.WidgetAlignMode,
		Initialized:        st.Initialized,
	}
}

// WidgetResponse is everything the widget surface renders.
type WidgetResponse struct {
	Tasks        []models.Task    `json:"tasks"`
	ShowAllTasks bool             `json:"showAllTasks"`
	AlignMode    models.AlignMode `json:"alignMode"`
	Locked       bool             `json:"locked"`
	Visible      bool             `json:"visible"`
	Scale        int              `json:"scale" example:"100"`
}
