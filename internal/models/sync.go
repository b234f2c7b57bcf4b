package models

import "time"

// Tagged is implemented by sync payloads that carry the publishing surface.
type Tagged interface {
	Origin() *string
}

// TaskStatusSync carries a single task status change.
type TaskStatusSync struct {
	TaskID        string     `json:"taskId"`
	Status        TaskStatus `json:"status"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
	SourceSurface *string    `json:"sourceSurface"`
}

func (p TaskStatusSync) Origin() *string { return p.SourceSurface }

// TasksStateSync replaces the whole task collection at the receiver.
type TasksStateSync struct {
	Tasks         []Task  `json:"tasks"`
	SourceSurface *string `json:"sourceSurface"`
}

func (p TasksStateSync) Origin() *string { return p.SourceSurface }

// WidgetTaskViewSync carries the widget "show all tasks" flag.
type WidgetTaskViewSync struct {
	ShowAllTasks  bool    `json:"showAllTasks"`
	SourceSurface *string `json:"sourceSurface"`
}

func (p WidgetTaskViewSync) Origin() *string { return p.SourceSurface }

// WidgetAlignmentSync carries the widget alignment.
type WidgetAlignmentSync struct {
	AlignMode     AlignMode `json:"alignMode"`
	SourceSurface *string   `json:"sourceSurface"`
}

func (p WidgetAlignmentSync) Origin() *string { return p.SourceSurface }
