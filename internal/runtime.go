package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/starford/daily/internal/bus"
	"github.com/starford/daily/internal/metrics"
	"github.com/starford/daily/internal/persist"
	"github.com/starford/daily/internal/settings"
	"github.com/starford/daily/internal/storage"
	"github.com/starford/daily/internal/store"
	"github.com/starford/daily/internal/surface"
	"github.com/starford/daily/internal/window"
)

const (
	hubConnectTimeout = 5 * time.Second
	shutdownFlush     = 5 * time.Second
)

// surfaceRuntime is one started surface and the pieces it owns.
type surfaceRuntime struct {
	prefs     *settings.File
	scheduler *persist.Scheduler
	bus       *bus.Bus
	surface   *surface.Surface
}

func (sr *surfaceRuntime) close(ctx context.Context, logger *slog.Logger) {
	sr.surface.Close()
	if err := sr.bus.Flush(ctx); err != nil {
		logger.Warn("bus: flush on shutdown", slog.String("error", err.Error()))
	}
	sr.bus.Close()
	if err := sr.scheduler.Flush(ctx); err != nil {
		logger.Warn("persist: flush on shutdown", slog.String("error", err.Error()))
	}
	sr.scheduler.Close()
}

// runtime holds everything one process shares between its surfaces.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	backend   storage.Backend
	adapter   *storage.Adapter
	transport bus.Transport
	// local is set when this process owns the broker.
	local *bus.Local
	host  window.Host

	surfaces []*surfaceRuntime
}

// newRuntime opens storage and the bus, then starts the configured surface.
// With the local transport a main process also runs the widget surface.
func newRuntime(ctx context.Context, app *application, logger *slog.Logger) (*runtime, error) {
	cfg := app.config
	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		host:    app.host,
	}

	backend, err := openBackend(cfg.Data)
	if err != nil {
		return nil, err
	}
	rt.backend = backend
	rt.adapter = storage.NewAdapter(backend)

	if err := rt.openTransport(); err != nil {
		rt.Close()
		return nil, err
	}

	if rt.host == nil {
		host := window.NewMemoryHost()
		host.Add(window.Options{Label: window.MainLabel, Title: "Daily", Visible: true, Focusable: true, Decorations: true})
		rt.host = host
	}

	labels := []string{cfg.App.Surface}
	if cfg.Bus.Transport == TransportLocal && cfg.App.Surface == window.MainLabel {
		labels = append(labels, window.WidgetLabel)
	}
	for _, label := range labels {
		sr, err := rt.startSurface(ctx, label)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("start %q surface: %w", label, err)
		}
		rt.surfaces = append(rt.surfaces, sr)
	}

	if ht, ok := rt.transport.(*bus.HTTPTransport); ok {
		waitCtx, cancel := context.WithTimeout(ctx, hubConnectTimeout)
		defer cancel()
		if err := ht.WaitConnected(waitCtx); err != nil {
			logger.Warn("bus: hub not reachable yet, retrying in background",
				slog.String("hub_url", cfg.Bus.HubURL),
				slog.String("error", err.Error()))
		}
	}

	return rt, nil
}

func openBackend(cfg DataConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		return db, nil
	default:
		fs, err := storage.NewFS(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		return fs, nil
	}
}

func (rt *runtime) openTransport() error {
	cfg := rt.cfg
	switch {
	case cfg.Bus.Transport == TransportNATS:
		n, err := bus.DialNATS(cfg.Bus.NATSURL, cfg.Bus.SubjectPrefix,
			nats.Name("daily-"+surfaceName(cfg.App.Surface)),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return fmt.Errorf("init bus: %w", err)
		}
		rt.transport = n
	case cfg.Bus.Transport == TransportHTTP && !cfg.Bus.ServesHub(cfg.App.Surface):
		rt.transport = bus.NewHTTPTransport(cfg.Bus.HubURL, &http.Client{}, rt.logger)
	default:
		rt.local = bus.NewLocal(rt.logger)
		rt.transport = rt.local
	}
	rt.logger.Info("bus: transport ready", slog.String("transport", cfg.Bus.Transport))
	return nil
}

func surfaceName(label string) string {
	if label == "" {
		return "anonymous"
	}
	return label
}

func (rt *runtime) startSurface(ctx context.Context, label string) (*surfaceRuntime, error) {
	cfg := rt.cfg
	logger := rt.logger.With(slog.String("surface", surfaceName(label)))

	prefs, err := settings.Open(cfg.Settings.Path, logger)
	if err != nil {
		return nil, err
	}

	sched := persist.NewScheduler(rt.adapter,
		persist.WithDelay(cfg.Persist.Debounce),
		persist.WithLogger(logger),
		persist.WithMetrics(rt.metrics),
	)
	b := bus.New(rt.transport, label,
		bus.WithLogger(logger),
		bus.WithMetrics(rt.metrics),
	)
	wm := window.NewManager(rt.host, prefs,
		window.WithGeometry(cfg.Widget.Geometry()),
		window.WithCreateTimeout(cfg.Widget.CreateTimeout),
		window.WithLogger(logger),
	)
	st := store.New(
		store.WithLogger(logger),
		store.WithLogTypes(cfg.Store.LogTypes),
		store.WithWidgetLimit(cfg.Widget.MaxItems),
		store.WithPersister(sched),
		store.WithPublisher(b),
		store.WithPrefs(prefs),
		store.WithLoader(rt.adapter),
	)

	surf := surface.New(label, st, b, wm, prefs, logger,
		surface.WithRemoteWidget(rt.widgetIsRemote(label)))
	sr := &surfaceRuntime{prefs: prefs, scheduler: sched, bus: b, surface: surf}
	if err := surf.Start(ctx); err != nil {
		b.Close()
		sched.Close()
		return nil, err
	}
	logger.Info("surface: started", slog.Int("tasks", len(st.State().Tasks)))
	return sr, nil
}

// widgetIsRemote reports whether the widget window for label lives in another
// process. Only the local transport runs both surfaces side by side.
func (rt *runtime) widgetIsRemote(label string) bool {
	if label == window.WidgetLabel {
		return false
	}
	return label == "" || rt.cfg.Bus.Transport != TransportLocal
}

// primary is the surface the outer interfaces drive.
func (rt *runtime) primary() *surface.Surface {
	return rt.surfaces[0].surface
}

// watchPrefs follows preference changes made by other processes until ctx
// is done.
func (rt *runtime) watchPrefs(ctx context.Context, sr *surfaceRuntime) error {
	err := sr.prefs.Watch(ctx, sr.surface.OnPrefsChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		rt.logger.Warn("settings: watch stopped", slog.String("error", err.Error()))
	}
	return nil
}

// Close stops the surfaces in reverse order, flushing queued publishes and
// writes, then closes the transport and storage.
func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlush)
	defer cancel()

	for i := len(rt.surfaces) - 1; i >= 0; i-- {
		rt.surfaces[i].close(ctx, rt.logger)
	}
	rt.surfaces = nil

	if rt.transport != nil {
		if err := rt.transport.Close(); err != nil {
			rt.logger.Warn("bus: close transport", slog.String("error", err.Error()))
		}
		rt.transport = nil
	}
	if rt.backend != nil {
		if err := rt.backend.Close(); err != nil {
			rt.logger.Warn("storage: close", slog.String("error", err.Error()))
		}
		rt.backend = nil
	}
}
