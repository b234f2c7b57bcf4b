// Package models defines the domain types shared by every surface.
package models

import "time"

// TaskStatus is the binary completion state of a task.
type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
)

// Toggled returns the opposite status.
func (s TaskStatus) Toggled() TaskStatus {
	if s == TaskCompleted {
		return TaskActive
	}
	return TaskCompleted
}

// TaskFilter selects which tasks a list view shows.
type TaskFilter string

const (
	FilterAll       TaskFilter = "all"
	FilterActive    TaskFilter = "active"
	FilterCompleted TaskFilter = "completed"
)

// SortMode orders list views.
type SortMode string

const (
	SortStatus   SortMode = "status"
	SortDate     SortMode = "date"
	SortPriority SortMode = "priority"
)

// Priority ranks a task for the priority sort mode.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of p; tasks without a priority sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// GlobalStatus is the lifecycle state of a global objective.
type GlobalStatus string

const (
	GlobalActive     GlobalStatus = "active"
	GlobalCompleted  GlobalStatus = "completed"
	GlobalTerminated GlobalStatus = "terminated"
)

// Log types shipped by default. The accepted set is configurable per store.
const (
	LogSimple     = "simple"
	LogException  = "exception"
	LogProgress   = "progress"
	LogConclusion = "conclusion"
)

// DefaultLogTypes is the log type enum used when none is configured.
var DefaultLogTypes = []string{LogSimple, LogException, LogProgress, LogConclusion}

// AlignMode is the horizontal alignment of widget rows.
type AlignMode string

const (
	AlignLeft  AlignMode = "left"
	AlignRight AlignMode = "right"
)

// Toggled returns the opposite alignment.
func (a AlignMode) Toggled() AlignMode {
	if a == AlignRight {
		return AlignLeft
	}
	return AlignRight
}

// Valid reports whether a is a known alignment.
func (a AlignMode) Valid() bool {
	return a == AlignLeft || a == AlignRight
}

// Task is a unit of work.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	ExecutionDate string     `json:"executionDate"`
	Status        TaskStatus `json:"status"`
	Priority      Priority   `json:"priority,omitempty"`
	GlobalID      string     `json:"globalId,omitempty"`
	ParentID      string     `json:"parentId,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
}

// Global is a long-running objective that tasks may reference by id.
type Global struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      GlobalStatus `json:"status"`
	StartDate   string       `json:"startDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TaskLog is a timestamped note linked to a task.
type TaskLog struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Spark is a freeform idea linked to globals and tasks.
type Spark struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	GlobalIDs   []string  `json:"globalIds,omitempty"`
	TaskIDs     []string  `json:"taskIds,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WidgetPosition is a logical screen position of the widget window.
type WidgetPosition struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}
