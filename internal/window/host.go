// Package window manages the widget surface's native window through a Host.
package window

import (
	"context"

	"github.com/starford/daily/internal/models"
)

// Window labels.
const (
	MainLabel   = "main"
	WidgetLabel = "widget"
)

// Size is a logical window size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Options describe a window to create.
type Options struct {
	Label        string
	Title        string
	Size         Size
	Position     *models.WidgetPosition
	Visible      bool
	AlwaysOnTop  bool
	Focusable    bool
	IgnoreCursor bool
	Decorations  bool
	Transparent  bool
	SkipTaskbar  bool
}

// Host creates and finds native windows.
type Host interface {
	Lookup(label string) (Window, bool)
	// Create returns apperr.ErrAlreadyExists when a window with the label was
	// created concurrently.
	Create(ctx context.Context, opts Options) (Window, error)
}

// Window is a native window.
type Window interface {
	Label() string
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	Focus(ctx context.Context) error
	IsVisible(ctx context.Context) (bool, error)
	Position(ctx context.Context) (models.WidgetPosition, error)
	SetPosition(ctx context.Context, pos models.WidgetPosition) error
	Size(ctx context.Context) (Size, error)
	SetSize(ctx context.Context, size Size) error
	SetIgnoreCursorEvents(ctx context.Context, ignore bool) error
	SetFocusable(ctx context.Context, focusable bool) error
	SetAlwaysOnTop(ctx context.Context, onTop bool) error
	StartDragging(ctx context.Context) error
	// OnMoved registers fn for position changes made by the user or the
	// window system and returns a function that removes it.
	OnMoved(fn func(models.WidgetPosition)) func()
}
