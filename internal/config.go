package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daily/internal/models"
	"github.com/starford/daily/internal/persist"
	"github.com/starford/daily/internal/store"
	"github.com/starford/daily/internal/window"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Bus transports.
const (
	TransportLocal = "local"
	TransportHTTP  = "http"
	TransportNATS  = "nats"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Data     DataConfig        `yaml:"data"`
	Persist  PersistConfig     `yaml:"persist"`
	Bus      BusConfig         `yaml:"bus"`
	Widget   WidgetConfig      `yaml:"widget"`
	Settings SettingsConfig    `yaml:"settings"`
	Store    StoreConfig       `yaml:"store"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Persist.Validate(); err != nil {
		return err
	}
	if err := c.Bus.Validate(c.App.Surface); err != nil {
		return err
	}
	if err := c.Widget.Validate(); err != nil {
		return err
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// Surface is "main", "widget" or empty for an anonymous surface.
	Surface string `yaml:"surface"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Surface, validation.In(window.MainLabel, window.WidgetLabel)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig selects where the two envelopes live.
type DataConfig struct {
	Dir        string `yaml:"dir"`
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Backend, validation.In(BackendFile, BackendSQLite)),
		validation.Field(&c.SQLitePath, validation.When(c.Backend == BackendSQLite, validation.Required)),
	)
}

// PersistConfig tunes the write scheduler.
type PersistConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the persistence configuration.
func (c *PersistConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// BusConfig selects the cross-surface transport.
//
// Transport controls how surfaces reach each other:
//   - "local" (default): in-process broker, both surfaces in one process.
//   - "http": the main surface serves the hub, other surfaces dial HubURL.
//   - "nats": every surface connects to NATSURL.
type BusConfig struct {
	Transport     string `yaml:"transport"`
	HubURL        string `yaml:"hub_url"`
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Validate validates the bus configuration for the given surface.
func (c *BusConfig) Validate(surface string) error {
	if c.Transport == "" {
		c.Transport = TransportLocal
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Transport, validation.In(TransportLocal, TransportHTTP, TransportNATS)),
		validation.Field(&c.HubURL, validation.When(c.Transport == TransportHTTP && surface != window.MainLabel, validation.Required)),
		validation.Field(&c.NATSURL, validation.When(c.Transport == TransportNATS, validation.Required)),
	)
}

// ServesHub reports whether this process owns the broker and serves it to
// other processes.
func (c *BusConfig) ServesHub(surface string) bool {
	return c.Transport != TransportNATS && surface == window.MainLabel
}

// WidgetConfig holds widget window geometry and list limits.
type WidgetConfig struct {
	BaseWidth     int           `yaml:"base_width"`
	BaseHeight    int           `yaml:"base_height"`
	MinScale      int           `yaml:"min_scale"`
	MaxScale      int           `yaml:"max_scale"`
	CreateTimeout time.Duration `yaml:"create_timeout"`
	MaxItems      int           `yaml:"max_items"`
}

// Validate validates the widget configuration.
func (c *WidgetConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseWidth, validation.Required, validation.Min(1)),
		validation.Field(&c.BaseHeight, validation.Required, validation.Min(1)),
		validation.Field(&c.MinScale, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxScale, validation.Required, validation.Min(c.MinScale)),
		validation.Field(&c.CreateTimeout, validation.Required),
		validation.Field(&c.MaxItems, validation.Required, validation.Min(1)),
	)
}

// Geometry converts the configuration to window geometry.
func (c *WidgetConfig) Geometry() window.Geometry {
	return window.Geometry{
		BaseWidth:  c.BaseWidth,
		BaseHeight: c.BaseHeight,
		MinScale:   c.MinScale,
		MaxScale:   c.MaxScale,
	}
}

// SettingsConfig locates the widget preference file.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StoreConfig tunes the state store.
type StoreConfig struct {
	LogTypes []string `yaml:"log_types"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogTypes, validation.Each(validation.Required)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	geo := window.DefaultGeometry
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			Surface: window.MainLabel,
		},
		Data: DataConfig{
			Dir:        "./data",
			Backend:    BackendFile,
			SQLitePath: filepath.Join("data", "daily.db"),
		},
		Persist: PersistConfig{
			Debounce: persist.DefaultDelay,
		},
		Bus: BusConfig{
			Transport:     TransportLocal,
			HubURL:        "http://127.0.0.1:8080/bus",
			SubjectPrefix: "daily",
		},
		Widget: WidgetConfig{
			BaseWidth:     geo.BaseWidth,
			BaseHeight:    geo.BaseHeight,
			MinScale:      geo.MinScale,
			MaxScale:      geo.MaxScale,
			CreateTimeout: window.DefaultCreateTimeout,
			MaxItems:      store.DefaultWidgetLimit,
		},
		Settings: SettingsConfig{
			Path: filepath.Join("data", "widget.yaml"),
		},
		Store: StoreConfig{
			LogTypes: models.DefaultLogTypes,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
