package store

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daily/internal/models"
)

var errBlank = validation.NewError("validation_blank", "cannot be blank")

// notBlank rejects text, or set optional text, that trims to nothing.
func notBlank(v any) error {
	switch s := v.(type) {
	case string:
		if strings.TrimSpace(s) == "" {
			return errBlank
		}
	case *string:
		if s != nil && strings.TrimSpace(*s) == "" {
			return errBlank
		}
	}
	return nil
}

var (
	taskStatuses   = []any{models.TaskActive, models.TaskCompleted}
	priorities     = []any{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	globalStatuses = []any{models.GlobalActive, models.GlobalCompleted, models.GlobalTerminated}
)

// TaskInput describes a new task. Empty optional fields take defaults.
type TaskInput struct {
	Title         string
	ExecutionDate string
	Status        models.TaskStatus
	Priority      models.Priority
	GlobalID      string
	ParentID      string
	Tags          []string
}

// Validate checks the trimmed input.
func (in TaskInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.By(notBlank)),
		validation.Field(&in.Status, validation.In(taskStatuses...)),
		validation.Field(&in.Priority, validation.In(priorities...)),
	)
}

// TaskPatch changes the non-nil fields of a task.
type TaskPatch struct {
	Title         *string
	ExecutionDate *string
	Status        *models.TaskStatus
	Priority      *models.Priority
	Tags          *[]string
}

// Validate checks the fields being changed.
func (p TaskPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.By(notBlank)),
		validation.Field(&p.Status, validation.In(taskStatuses...)),
		validation.Field(&p.Priority, validation.In(priorities...)),
	)
}

// GlobalInput describes a new global.
type GlobalInput struct {
	Title       string
	Description string
	Status      models.GlobalStatus
	StartDate   string
}

// Validate checks the trimmed input.
func (in GlobalInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.By(notBlank)),
		validation.Field(&in.Status, validation.In(globalStatuses...)),
	)
}

// GlobalPatch changes the non-nil fields of a global. A blank description
// clears it.
type GlobalPatch struct {
	Title       *string
	Description *string
	Status      *models.GlobalStatus
	StartDate   *string
}

// Validate checks the fields being changed.
func (p GlobalPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.By(notBlank)),
		validation.Field(&p.Status, validation.In(globalStatuses...)),
	)
}

// LogInput describes a new task log.
type LogInput struct {
	TaskID  string
	Type    string
	Content string
}

func (in LogInput) validate(types []string) error {
	allowed := make([]any, len(types))
	for i, t := range types {
		allowed[i] = t
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.TaskID, validation.Required),
		validation.Field(&in.Type, validation.Required, validation.In(allowed...)),
		validation.Field(&in.Content, validation.By(notBlank)),
	)
}

// SparkInput describes a new spark. Unknown ids are dropped.
type SparkInput struct {
	Title       string
	Description string
	GlobalIDs   []string
	TaskIDs     []string
}

// Validate checks the trimmed input.
func (in SparkInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.By(notBlank)),
	)
}

// SparkPatch changes the non-nil fields of a spark.
type SparkPatch struct {
	Title       *string
	Description *string
	GlobalIDs   *[]string
	TaskIDs     *[]string
}

// Validate checks the fields being changed.
func (p SparkPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.By(notBlank)),
	)
}
