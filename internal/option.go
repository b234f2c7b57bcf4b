package internal

import (
	"io"

	"github.com/starford/daily/internal/window"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	host      window.Host
	version   string
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithHost sets the native window host. Without one a headless in-memory
// host is used.
func WithHost(h window.Host) Option {
	return func(a *application) {
		a.host = h
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput redirects the JSON log stream.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
