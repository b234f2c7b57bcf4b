// Package store holds one surface's canonical in-memory state.
//
// Mutations run to completion under the store mutex and queue their side
// effects, which are dispatched after the mutex is released but still in
// mutation order. Side effects never fail a mutation.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/daily/internal/models"
)

// DefaultWidgetLimit caps the widget list when "show all" is off.
const DefaultWidgetLimit = 8

// Persister is the durable side of a mutation.
type Persister interface {
	Schedule(snapshot models.AppData)
	SaveConfig(cfg models.AppConfig)
}

// Publisher is the cross-surface side of a mutation.
type Publisher interface {
	Source() *string
	Emit(topic string, payload any)
}

// Prefs are the widget preferences kept outside the envelopes.
type Prefs interface {
	Locked() bool
	SetLocked(locked bool) error
	Position() (models.WidgetPosition, bool)
	SetPosition(pos models.WidgetPosition) error
}

// Loader reads and seeds the envelopes during Initialize.
type Loader interface {
	LoadData(ctx context.Context) (*models.AppData, error)
	SaveData(ctx context.Context, data models.AppData) error
	LoadConfig(ctx context.Context) (*models.AppConfig, error)
	SaveConfig(ctx context.Context, cfg models.AppConfig) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogTypes sets the accepted log types.
func WithLogTypes(types []string) Option {
	return func(s *Store) {
		if len(types) > 0 {
			s.logTypes = append([]string(nil), types...)
		}
	}
}

// WithPersister sets where snapshots and config envelopes go.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithPublisher sets where sync payloads go.
func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithPrefs sets the widget preference accessor.
func WithPrefs(p Prefs) Option {
	return func(s *Store) { s.prefs = p }
}

// WithLoader sets the envelope source used by Initialize.
func WithLoader(l Loader) Option {
	return func(s *Store) { s.loader = l }
}

// WithWidgetLimit sets the capped widget list length.
func WithWidgetLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.widgetLimit = n
		}
	}
}

// Store is the state of one surface. Construct one per surface with New.
type Store struct {
	mu sync.RWMutex
	// dispatchMu is taken before mu is released, so effects leave in
	// mutation order.
	dispatchMu sync.Mutex

	logger      *slog.Logger
	now         func() time.Time
	logTypes    []string
	widgetLimit int

	persister Persister
	publisher Publisher
	prefs     Prefs
	loader    Loader

	tasks    []models.Task
	globals  []models.Global
	taskLogs []models.TaskLog
	sparks   []models.Spark

	selectedGlobalID string
	filter           models.TaskFilter
	sortMode         models.SortMode

	widgetLocked  bool
	widgetVisible bool
	widgetShowAll bool
	widgetAlign   models.AlignMode

	initialized bool
	lastStamp   time.Time
}

// New builds an empty, uninitialized store.
func New(opts ...Option) *Store {
	s := &Store{
		logger:      slog.Default(),
		now:         time.Now,
		logTypes:    models.DefaultLogTypes,
		widgetLimit: DefaultWidgetLimit,
		persister:   nopPersister{},
		publisher:   nopPublisher{},
		tasks:       []models.Task{},
		globals:     []models.Global{},
		taskLogs:    []models.TaskLog{},
		sparks:      []models.Spark{},
		filter:      models.FilterAll,
		sortMode:    models.SortStatus,
		widgetAlign: models.AlignRight,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prefs == nil {
		s.prefs = &memoryPrefs{}
	}
	s.widgetLocked = s.prefs.Locked()
	return s
}

type publish struct {
	topic   string
	payload any
}

// effects collects what a mutation wants done once the mutex is released.
type effects struct {
	persist  bool
	snapshot *models.AppData
	config   *models.AppConfig
	publish  []publish
	locked   *bool
}

func (fx *effects) emit(topic string, payload any) {
	fx.publish = append(fx.publish, publish{topic: topic, payload: payload})
}

// mutate runs fn under the write lock and then dispatches its effects.
// Readers are released before dispatch; other mutations wait for it.
func (s *Store) mutate(fn func(fx *effects)) {
	var fx effects

	s.mu.Lock()
	fn(&fx)
	if fx.persist && s.initialized {
		snap := s.dataLocked()
		fx.snapshot = &snap
	}
	s.dispatchMu.Lock()
	s.mu.Unlock()

	defer s.dispatchMu.Unlock()
	s.dispatch(fx)
}

func (s *Store) dispatch(fx effects) {
	if fx.locked != nil {
		if err := s.prefs.SetLocked(*fx.locked); err != nil {
			s.logger.Warn("store: save lock preference", slog.String("error", err.Error()))
		}
	}
	if fx.snapshot != nil {
		s.persister.Schedule(*fx.snapshot)
	}
	if fx.config != nil {
		s.persister.SaveConfig(*fx.config)
	}
	for _, p := range fx.publish {
		s.publisher.Emit(p.topic, p.payload)
	}
}

// stamp returns a timestamp strictly after every earlier one from this store.
func (s *Store) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = t
	return t
}

func (s *Store) observeStamp(t time.Time) {
	if t.After(s.lastStamp) {
		s.lastStamp = t.UTC()
	}
}

func (s *Store) today() string {
	return s.now().Format(DateLayout)
}

func (s *Store) dataLocked() models.AppData {
	return models.AppData{
		SchemaVersion:      models.DataSchemaVersion,
		Tasks:              cloneTasks(s.tasks),
		Globals:            cloneGlobals(s.globals),
		TaskLogs:           append([]models.TaskLog{}, s.taskLogs...),
		Sparks:             cloneSparks(s.sparks),
		WidgetShowAllTasks: s.widgetShowAll,
		WidgetAlignMode:    s.widgetAlign,
	}
}

// configLocked builds the config envelope with the last known position.
func (s *Store) configLocked(visible bool) models.AppConfig {
	cfg := models.AppConfig{SchemaVersion: models.ConfigSchemaVersion, WidgetVisible: visible}
	if pos, ok := s.prefs.Position(); ok {
		cfg.WidgetPosition = &pos
	}
	return cfg
}

// Initialize loads both envelopes once. It never fails: unreadable or
// incompatible data starts the store empty.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.RLock()
	done := s.initialized
	s.mu.RUnlock()
	if done {
		return
	}

	if s.loader == nil {
		s.reset(models.EmptyAppData(), false)
		return
	}

	cfg, err := s.loader.LoadConfig(ctx)
	if err != nil {
		s.logger.Warn("store: load config envelope", slog.String("error", err.Error()))
		s.reset(models.EmptyAppData(), false)
		return
	}
	visible := cfg != nil && cfg.WidgetVisible
	if _, ok := s.prefs.Position(); !ok && cfg != nil && cfg.WidgetPosition != nil {
		if err := s.prefs.SetPosition(*cfg.WidgetPosition); err != nil {
			s.logger.Warn("store: seed widget position", slog.String("error", err.Error()))
		}
	}
	if cfg == nil {
		s.mu.RLock()
		fresh := s.configLocked(visible)
		s.mu.RUnlock()
		if err := s.loader.SaveConfig(ctx, fresh); err != nil {
			s.logger.Warn("store: write default config envelope", slog.String("error", err.Error()))
		}
	}

	data, err := s.loader.LoadData(ctx)
	if err != nil {
		s.logger.Warn("store: load data envelope", slog.String("error", err.Error()))
		s.reset(models.EmptyAppData(), false)
		return
	}
	if data != nil {
		s.reset(*data, visible)
		s.logger.Info("store: initialized",
			slog.Int("tasks", len(data.Tasks)),
			slog.Int("globals", len(data.Globals)),
		)
		return
	}

	empty := models.EmptyAppData()
	s.reset(empty, visible)
	if err := s.loader.SaveData(ctx, empty); err != nil {
		s.logger.Warn("store: write empty data envelope", slog.String("error", err.Error()))
	}
	s.logger.Info("store: initialized empty")
}

func (s *Store) reset(data models.AppData, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = orEmpty(cloneTasks(data.Tasks))
	s.globals = orEmpty(cloneGlobals(data.Globals))
	s.taskLogs = orEmpty(append([]models.TaskLog(nil), data.TaskLogs...))
	s.sparks = orEmpty(cloneSparks(data.Sparks))
	s.widgetVisible = visible
	s.widgetShowAll = data.WidgetShowAllTasks
	s.widgetAlign = data.WidgetAlignMode
	if !s.widgetAlign.Valid() {
		s.widgetAlign = models.AlignRight
	}
	s.selectedGlobalID = ""
	if len(s.globals) > 0 {
		s.selectedGlobalID = s.globals[0].ID
	}
	for _, t := range s.tasks {
		s.observeStamp(t.UpdatedAt)
	}
	s.initialized = true
}

// Initialized reports whether Initialize has completed.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// State is a copy of everything a surface renders from.
type State struct {
	Tasks              []models.Task
	Globals            []models.Global
	TaskLogs           []models.TaskLog
	Sparks             []models.Spark
	SelectedGlobalID   string
	Filter             models.TaskFilter
	SortMode           models.SortMode
	WidgetLocked       bool
	WidgetVisible      bool
	WidgetShowAllTasks bool
	WidgetAlignMode    models.AlignMode
	Initialized        bool
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Tasks:              cloneTasks(s.tasks),
		Globals:            cloneGlobals(s.globals),
		TaskLogs:           append([]models.TaskLog{}, s.taskLogs...),
		Sparks:             cloneSparks(s.sparks),
		SelectedGlobalID:   s.selectedGlobalID,
		Filter:             s.filter,
		SortMode:           s.sortMode,
		WidgetLocked:       s.widgetLocked,
		WidgetVisible:      s.widgetVisible,
		WidgetShowAllTasks: s.widgetShowAll,
		WidgetAlignMode:    s.widgetAlign,
		Initialized:        s.initialized,
	}
}

// Data returns the persisted envelope for the current state.
func (s *Store) Data() models.AppData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataLocked()
}

// Task returns the task with id.
func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.taskIndex(id); i >= 0 {
		return cloneTask(s.tasks[i]), true
	}
	return models.Task{}, false
}

func (s *Store) taskIndex(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

type nopPersister struct{}

func (nopPersister) Schedule(models.AppData) {}
func (nopPersister) SaveConfig(models.AppConfig) {}

type nopPublisher struct{}

func (nopPublisher) Source() *string { return nil }
func (nopPublisher) Emit(string, any) {}

// memoryPrefs keeps preferences for a store without a settings file.
type memoryPrefs struct {
	mu       sync.Mutex
	locked   bool
	position *models.WidgetPosition
}

func (p *memoryPrefs) Locked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked
}

func (p *memoryPrefs) SetLocked(locked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = locked
	return nil
}

func (p *memoryPrefs) Position() (models.WidgetPosition, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.position == nil {
		return models.WidgetPosition{}, false
	}
	return *p.position, true
}

func (p *memoryPrefs) SetPosition(pos models.WidgetPosition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = &pos
	return nil
}
