// Package settings persists the scalar widget preferences shared by both
// surfaces in a small YAML file.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/starford/daily/internal/models"
)

// Preference ranges and defaults.
const (
	DefaultOpacity      = 20
	DefaultHoverOpacity = 38
	DefaultScale        = 100
	MinScale            = 70
	MaxScale            = 300
)

// Prefs is a snapshot of every widget preference.
type Prefs struct {
	Opacity      int                    `yaml:"opacity"`
	HoverOpacity int                    `yaml:"hover_opacity"`
	Scale        int                    `yaml:"scale"`
	Locked       bool                   `yaml:"locked"`
	Position     *models.WidgetPosition `yaml:"position,omitempty"`
}

// Defaults returns the preferences of a fresh install.
func Defaults() Prefs {
	return Prefs{
		Opacity:      DefaultOpacity,
		HoverOpacity: DefaultHoverOpacity,
		Scale:        DefaultScale,
	}
}

// fileFormat distinguishes missing keys from zero values.
type fileFormat struct {
	Opacity      *int                   `yaml:"opacity"`
	HoverOpacity *int                   `yaml:"hover_opacity"`
	Scale        *int                   `yaml:"scale"`
	Locked       bool                   `yaml:"locked"`
	Position     *models.WidgetPosition `yaml:"position"`
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// ClampScale limits a scale percentage to [MinScale, MaxScale].
func ClampScale(v int) int {
	return clamp(v, MinScale, MaxScale)
}

func decode(raw []byte) (Prefs, error) {
	p := Defaults()
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return p, err
	}
	if f.Opacity != nil {
		p.Opacity = clamp(*f.Opacity, 0, 100)
	}
	if f.HoverOpacity != nil {
		p.HoverOpacity = clamp(*f.HoverOpacity, 0, 100)
	}
	if f.Scale != nil {
		p.Scale = ClampScale(*f.Scale)
	}
	p.Locked = f.Locked
	p.Position = f.Position
	return p, nil
}

// File is a preference file. It is safe for concurrent use.
type File struct {
	path   string
	logger *slog.Logger

	mu          sync.RWMutex
	prefs       Prefs
	lastWritten []byte
}

// Open loads path, falling back to defaults when the file is missing or
// unreadable. The parent directory is created.
func Open(path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("settings: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("settings: mkdir: %w", err)
	}

	f := &File{path: abs, logger: logger, prefs: Defaults()}
	if _, err := f.Reload(); err != nil {
		logger.Warn("settings: unreadable file, using defaults",
			slog.String("path", abs),
			slog.String("error", err.Error()),
		)
	}
	return f, nil
}

// Path returns the absolute file path.
func (f *File) Path() string { return f.path }

// Reload re-reads the file and reports whether anything changed.
func (f *File) Reload() (bool, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("settings: read: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if bytes.Equal(raw, f.lastWritten) {
		return false, nil
	}
	next, err := decode(raw)
	if err != nil {
		return false, fmt.Errorf("settings: decode: %w", err)
	}
	changed := !equal(f.prefs, next)
	f.prefs = next
	return changed, nil
}

func equal(a, b Prefs) bool {
	if a.Opacity != b.Opacity || a.HoverOpacity != b.HoverOpacity || a.Scale != b.Scale || a.Locked != b.Locked {
		return false
	}
	if a.Position == nil || b.Position == nil {
		return a.Position == b.Position
	}
	return *a.Position == *b.Position
}

// Get returns a copy of the current preferences.
func (f *File) Get() Prefs {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p := f.prefs
	if p.Position != nil {
		pos := *p.Position
		p.Position = &pos
	}
	return p
}

// update applies fn and writes the file.
func (f *File) update(fn func(p *Prefs)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.prefs
	fn(&next)
	raw, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	f.prefs = next
	f.lastWritten = raw
	return nil
}

// Opacity returns the idle opacity percentage.
func (f *File) Opacity() int { return f.Get().Opacity }

// SetOpacity stores the idle opacity, clamped to 0–100.
func (f *File) SetOpacity(v int) error {
	return f.update(func(p *Prefs) { p.Opacity = clamp(v, 0, 100) })
}

// HoverOpacity returns the opacity used while the pointer is over the widget.
func (f *File) HoverOpacity() int { return f.Get().HoverOpacity }

// SetHoverOpacity stores the hover opacity, clamped to 0–100.
func (f *File) SetHoverOpacity(v int) error {
	return f.update(func(p *Prefs) { p.HoverOpacity = clamp(v, 0, 100) })
}

// Scale returns the widget scale percentage.
func (f *File) Scale() int { return f.Get().Scale }

// SetScale stores the scale percentage, clamped to the allowed range.
func (f *File) SetScale(v int) error {
	return f.update(func(p *Prefs) { p.Scale = ClampScale(v) })
}

// Locked reports whether the widget is locked.
func (f *File) Locked() bool { return f.Get().Locked }

// SetLocked stores the lock flag.
func (f *File) SetLocked(locked bool) error {
	return f.update(func(p *Prefs) { p.Locked = locked })
}

// Position returns the last stored widget position.
func (f *File) Position() (models.WidgetPosition, bool) {
	p := f.Get()
	if p.Position == nil {
		return models.WidgetPosition{}, false
	}
	return *p.Position, true
}

// SetPosition stores the last widget position.
func (f *File) SetPosition(pos models.WidgetPosition) error {
	return f.update(func(p *Prefs) { p.Position = &pos })
}
