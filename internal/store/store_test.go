package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/daily/internal/bus"
	"github.com/starford/daily/internal/models"
	"github.com/starford/daily/internal/storage"
)

func TestToggleTaskIsItsOwnInverse(t *testing.T) {
	s, _ := newTestStore(t)
	task := addTask(t, s, "Write report")

	s.ToggleTask(task.ID)
	once, _ := s.Task(task.ID)
	if once.Status != models.TaskCompleted {
		t.Fatalf("status after one toggle = %q", once.Status)
	}
	if once.ClosedAt == nil {
		t.Fatal("closedAt not set on completion")
	}
	if !once.UpdatedAt.After(task.UpdatedAt) {
		t.Errorf("updatedAt did not increase: %v -> %v", task.UpdatedAt, once.UpdatedAt)
	}

	s.ToggleTask(task.ID)
	twice, _ := s.Task(task.ID)
	if twice.Status != task.Status {
		t.Errorf("status after two toggles = %q, want %q", twice.Status, task.Status)
	}
	if twice.ClosedAt != nil {
		t.Error("closedAt not cleared on reactivation")
	}
	if !twice.UpdatedAt.After(once.UpdatedAt) {
		t.Errorf("updatedAt did not increase: %v -> %v", once.UpdatedAt, twice.UpdatedAt)
	}
}

func TestToggleTaskPublishesStatus(t *testing.T) {
	s, rec := newTestStore(t)
	task := addTask(t, s, "Pay rent")
	rec.reset()

	s.ToggleTask(task.ID)

	e := rec.lastEmit(t)
	if e.topic != bus.TopicTaskStatusUpdated {
		t.Fatalf("topic = %q", e.topic)
	}
	p, ok := e.payload.(models.TaskStatusSync)
	if !ok {
		t.Fatalf("payload type %T", e.payload)
	}
	if p.TaskID != task.ID || p.Status != models.TaskCompleted {
		t.Errorf("payload = %+v", p)
	}
	if p.SourceSurface == nil || *p.SourceSurface != "main" {
		t.Errorf("sourceSurface = %v", p.SourceSurface)
	}
	if p.ClosedAt == nil {
		t.Error("closedAt missing from payload")
	}
	if snaps, _, _ := rec.counts(); snaps != 1 {
		t.Errorf("snapshots = %d, want 1", snaps)
	}
}

func TestToggleUnknownTaskIsNoop(t *testing.T) {
	s, rec := newTestStore(t)
	addTask(t, s, "Only")
	rec.reset()

	s.ToggleTask("missing")

	if snaps, cfgs, emits := rec.counts(); snaps+cfgs+emits != 0 {
		t.Errorf("effects = %d/%d/%d, want none", snaps, cfgs, emits)
	}
}

func TestAddTaskRejectsBlankTitle(t *testing.T) {
	s, rec := newTestStore(t)
	addTask(t, s, "Existing")
	before := s.State().Tasks
	rec.reset()

	for _, title := range []string{"", " ", "\t\n  "} {
		if _, ok := s.AddTask(TaskInput{Title: title}); ok {
			t.Errorf("AddTask(%q) accepted", title)
		}
	}

	if diff := cmp.Diff(before, s.State().Tasks); diff != "" {
		t.Errorf("tasks changed (-want +got):\n%s", diff)
	}
	if snaps, cfgs, emits := rec.counts(); snaps+cfgs+emits != 0 {
		t.Errorf("effects = %d/%d/%d, want none", snaps, cfgs, emits)
	}
}

func TestAddTaskScenario(t *testing.T) {
	s, rec := newTestStore(t)

	task, ok := s.AddTask(TaskInput{Title: "  Pay rent  ", Tags: []string{" home", "home", ""}})
	if !ok {
		t.Fatal("rejected")
	}
	if task.Title != "Pay rent" {
		t.Errorf("title = %q", task.Title)
	}
	if task.ExecutionDate != "2026-03-14" {
		t.Errorf("executionDate = %q, want today", task.ExecutionDate)
	}
	if diff := cmp.Diff([]string{"home"}, task.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}

	s.SetFilter(models.FilterActive)
	if got := s.VisibleTasks(); len(got) != 1 || got[0].ID != task.ID {
		t.Errorf("active view = %+v", got)
	}
	s.SetFilter(models.FilterCompleted)
	if got := s.VisibleTasks(); len(got) != 0 {
		t.Errorf("completed view = %+v", got)
	}

	e := rec.lastEmit(t)
	p, ok := e.payload.(models.TasksStateSync)
	if e.topic != bus.TopicTasksStateUpdated || !ok {
		t.Fatalf("emit = %s %T", e.topic, e.payload)
	}
	if len(p.Tasks) != 1 || p.Tasks[0].ID != task.ID {
		t.Errorf("payload tasks = %+v", p.Tasks)
	}
}

func TestAddTaskPrependsAndKeepsExplicitDate(t *testing.T) {
	s, _ := newTestStore(t)
	first := addTask(t, s, "First")
	second, _ := s.AddTask(TaskInput{Title: "Second", ExecutionDate: "2026-05-01T08:00:00Z"})

	tasks := s.State().Tasks
	if tasks[0].ID != second.ID || tasks[1].ID != first.ID {
		t.Errorf("order = %s, %s", tasks[0].Title, tasks[1].Title)
	}
	if second.ExecutionDate != "2026-05-01" {
		t.Errorf("executionDate = %q", second.ExecutionDate)
	}
}

func TestUpdateTask(t *testing.T) {
	s, rec := newTestStore(t)
	task := addTask(t, s, "Draft")
	rec.reset()

	same := "Draft"
	if s.UpdateTask(task.ID, TaskPatch{Title: &same}) {
		t.Error("unchanged update reported a change")
	}
	if _, _, emits := rec.counts(); emits != 0 {
		t.Errorf("emits after no-op = %d", emits)
	}

	blank := "   "
	if s.UpdateTask(task.ID, TaskPatch{Title: &blank}) {
		t.Error("blank title accepted")
	}

	title := "Final"
	done := models.TaskCompleted
	tags := []string{"b", "a", "b"}
	if !s.UpdateTask(task.ID, TaskPatch{Title: &title, Status: &done, Tags: &tags}) {
		t.Fatal("update rejected")
	}
	got, _ := s.Task(task.ID)
	if got.Title != "Final" || got.Status != models.TaskCompleted || got.ClosedAt == nil {
		t.Errorf("task = %+v", got)
	}
	if diff := cmp.Diff([]string{"b", "a"}, got.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if e := rec.lastEmit(t); e.topic != bus.TopicTasksStateUpdated {
		t.Errorf("topic = %q", e.topic)
	}
}

func TestTaskTags(t *testing.T) {
	s, rec := newTestStore(t)
	task := addTask(t, s, "Tagged")
	rec.reset()

	if !s.AddTaskTag(task.ID, " urgent ") {
		t.Fatal("AddTaskTag rejected")
	}
	if s.AddTaskTag(task.ID, "urgent") {
		t.Error("duplicate tag reported a change")
	}
	if s.AddTaskTag(task.ID, "  ") {
		t.Error("blank tag accepted")
	}
	if s.RemoveTaskTag(task.ID, "missing") {
		t.Error("removing an absent tag reported a change")
	}
	if !s.RemoveTaskTag(task.ID, "urgent") {
		t.Error("RemoveTaskTag rejected")
	}

	got, _ := s.Task(task.ID)
	if got.Tags != nil {
		t.Errorf("tags = %v, want nil", got.Tags)
	}
	if _, _, emits := rec.counts(); emits != 2 {
		t.Errorf("emits = %d, want 2", emits)
	}
}

func TestPersistenceWaitsForInitialize(t *testing.T) {
	rec := &recorder{}
	s := New(WithPersister(rec), WithPublisher(rec))

	s.AddTask(TaskInput{Title: "early"})
	if snaps, _, _ := rec.counts(); snaps != 0 {
		t.Fatalf("snapshot scheduled before initialize")
	}

	s.Initialize(context.Background())
	s.AddTask(TaskInput{Title: "late"})
	if snaps, _, _ := rec.counts(); snaps != 1 {
		t.Errorf("snapshots = %d, want 1", snaps)
	}
}

func TestApplySyncedNeverPublishes(t *testing.T) {
	s, rec := newTestStore(t)
	task := addTask(t, s, "Remote")
	rec.reset()

	closed := fixedNow.Add(time.Hour).UTC()
	s.ApplySyncedTaskStatus(models.TaskStatusSync{TaskID: task.ID, Status: models.TaskCompleted, UpdatedAt: closed, ClosedAt: &closed})
	s.ApplySyncedTasksState(models.TasksStateSync{Tasks: []models.Task{{ID: "x", Title: "From widget", Status: models.TaskActive}}})
	s.ApplySyncedWidgetTaskView(models.WidgetTaskViewSync{ShowAllTasks: true})
	s.ApplySyncedWidgetAlignment(models.WidgetAlignmentSync{AlignMode: models.AlignLeft})

	snaps, _, emits := rec.counts()
	if emits != 0 {
		t.Errorf("emits = %d, want 0", emits)
	}
	if snaps != 4 {
		t.Errorf("snapshots = %d, want 4", snaps)
	}

	st := s.State()
	if len(st.Tasks) != 1 || st.Tasks[0].ID != "x" {
		t.Errorf("tasks = %+v", st.Tasks)
	}
	if !st.WidgetShowAllTasks || st.WidgetAlignMode != models.AlignLeft {
		t.Errorf("widget flags = %v %q", st.WidgetShowAllTasks, st.WidgetAlignMode)
	}
}

func TestApplySyncedTaskStatusKeepsStampsMonotonic(t *testing.T) {
	s, _ := newTestStore(t)
	task := addTask(t, s, "Race")

	remote := fixedNow.Add(time.Hour).UTC()
	s.ApplySyncedTaskStatus(models.TaskStatusSync{TaskID: task.ID, Status: models.TaskCompleted, UpdatedAt: remote})
	s.ToggleTask(task.ID)

	got, _ := s.Task(task.ID)
	if !got.UpdatedAt.After(remote) {
		t.Errorf("local stamp %v not after remote %v", got.UpdatedAt, remote)
	}
}

func TestApplySyncedIgnoresInvalidValues(t *testing.T) {
	s, rec := newTestStore(t)
	task := addTask(t, s, "Keep")
	rec.reset()

	s.ApplySyncedTaskStatus(models.TaskStatusSync{TaskID: task.ID, Status: "archived"})
	s.ApplySyncedWidgetAlignment(models.WidgetAlignmentSync{AlignMode: "center"})

	if snaps, _, _ := rec.counts(); snaps != 0 {
		t.Errorf("snapshots = %d", snaps)
	}
	if got, _ := s.Task(task.ID); got.Status != models.TaskActive {
		t.Errorf("status = %q", got.Status)
	}
}

func TestGlobals(t *testing.T) {
	s, rec := newTestStore(t)
	task := addTask(t, s, "Member")

	g, ok := s.AddGlobal(GlobalInput{Title: "Launch", Description: "  ", StartDate: "bogus"})
	if !ok {
		t.Fatal("AddGlobal rejected")
	}
	if g.Status != models.GlobalActive || g.StartDate != "2026-03-14" || g.Description != "" {
		t.Errorf("global = %+v", g)
	}
	if s.State().SelectedGlobalID != g.ID {
		t.Error("new global not selected")
	}
	if _, ok := s.AddGlobal(GlobalInput{Title: " "}); ok {
		t.Error("blank global accepted")
	}

	gid := g.ID
	tasks := []models.Task{task}
	tasks[0].GlobalID = gid
	s.ApplySyncedTasksState(models.TasksStateSync{Tasks: tasks})
	s.AddSpark(SparkInput{Title: "Idea", GlobalIDs: []string{gid}})
	rec.reset()

	terminated := models.GlobalTerminated
	if !s.UpdateGlobal(gid, GlobalPatch{Status: &terminated}) {
		t.Fatal("UpdateGlobal rejected")
	}
	if _, _, emits := rec.counts(); emits != 0 {
		t.Errorf("global update published %d messages", emits)
	}

	// Terminating a global leaves its tasks and sparks untouched.
	st := s.State()
	if st.Tasks[0].GlobalID != gid || st.Tasks[0].Status != models.TaskActive {
		t.Errorf("task changed: %+v", st.Tasks[0])
	}
	if diff := cmp.Diff([]string{gid}, st.Sparks[0].GlobalIDs); diff != "" {
		t.Errorf("spark globals (-want +got):\n%s", diff)
	}
	if got := s.GlobalTasks(gid); len(got) != 1 {
		t.Errorf("GlobalTasks = %d", len(got))
	}

	s.SelectGlobal("")
	if s.State().SelectedGlobalID != "" {
		t.Error("selection not cleared")
	}
}

func TestTaskLogs(t *testing.T) {
	s, _ := newTestStore(t, WithLogTypes([]string{"note", models.LogException}))
	task := addTask(t, s, "Fragile")

	cases := []struct {
		name string
		in   LogInput
		ok   bool
	}{
		{"unknown task", LogInput{TaskID: "nope", Type: "note", Content: "x"}, false},
		{"unknown type", LogInput{TaskID: task.ID, Type: models.LogProgress, Content: "x"}, false},
		{"blank content", LogInput{TaskID: task.ID, Type: "note", Content: "  "}, false},
		{"note", LogInput{TaskID: task.ID, Type: "note", Content: " fine "}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := s.AddTaskLog(tc.in); ok != tc.ok {
				t.Errorf("ok = %v, want %v", ok, tc.ok)
			}
		})
	}

	if s.HasException(task.ID) {
		t.Fatal("flagged before any exception log")
	}
	s.AddTaskLog(LogInput{TaskID: task.ID, Type: models.LogException, Content: "broke"})
	if !s.HasException(task.ID) {
		t.Error("exception log did not flag the task")
	}
}

func TestSparksDropUnknownIDs(t *testing.T) {
	s, _ := newTestStore(t)
	task := addTask(t, s, "Known")
	g, _ := s.AddGlobal(GlobalInput{Title: "Known global"})

	sp, ok := s.AddSpark(SparkInput{
		Title:     "Spark",
		GlobalIDs: []string{g.ID, "ghost", g.ID},
		TaskIDs:   []string{"ghost", task.ID},
	})
	if !ok {
		t.Fatal("AddSpark rejected")
	}
	if diff := cmp.Diff([]string{g.ID}, sp.GlobalIDs); diff != "" {
		t.Errorf("globalIds (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{task.ID}, sp.TaskIDs); diff != "" {
		t.Errorf("taskIds (-want +got):\n%s", diff)
	}

	none := []string{"ghost"}
	empty := ""
	if !s.UpdateSpark(sp.ID, SparkPatch{TaskIDs: &none, Description: &empty}) {
		t.Fatal("UpdateSpark rejected")
	}
	got := s.State().Sparks[0]
	if got.TaskIDs != nil || len(got.GlobalIDs) != 1 {
		t.Errorf("spark = %+v", got)
	}
	if s.UpdateSpark("missing", SparkPatch{}) {
		t.Error("unknown spark updated")
	}
}

func TestWidgetFlags(t *testing.T) {
	s, rec := newTestStore(t)

	s.ToggleWidgetShowAllTasks()
	e := rec.lastEmit(t)
	if p, ok := e.payload.(models.WidgetTaskViewSync); e.topic != bus.TopicWidgetTaskViewUpdated || !ok || !p.ShowAllTasks {
		t.Errorf("show-all emit = %s %+v", e.topic, e.payload)
	}

	s.ToggleWidgetAlignMode()
	e = rec.lastEmit(t)
	if p, ok := e.payload.(models.WidgetAlignmentSync); e.topic != bus.TopicWidgetAlignmentUpdated || !ok || p.AlignMode != models.AlignLeft {
		t.Errorf("align emit = %s %+v", e.topic, e.payload)
	}

	snap := rec.lastSnapshot(t)
	if !snap.WidgetShowAllTasks || snap.WidgetAlignMode != models.AlignLeft {
		t.Errorf("snapshot flags = %v %q", snap.WidgetShowAllTasks, snap.WidgetAlignMode)
	}
}

func TestWidgetLockAndVisibility(t *testing.T) {
	s, rec := newTestStore(t)
	s.RecordWidgetPosition(models.WidgetPosition{X: 40, Y: 60})
	rec.reset()

	if !s.ToggleWidgetLocked() {
		t.Fatal("toggle returned false")
	}
	if e := rec.lastEmit(t); e.topic != bus.TopicWidgetLockState || e.payload != true {
		t.Errorf("lock emit = %s %v", e.topic, e.payload)
	}
	if snaps, cfgs, _ := rec.counts(); snaps+cfgs != 0 {
		t.Error("lock touched the envelopes")
	}
	if s.ApplyWidgetLocked(true) {
		t.Error("re-applying the same lock reported a change")
	}

	s.SetWidgetVisible(true)
	rec.mu.Lock()
	cfg := rec.configs[len(rec.configs)-1]
	rec.mu.Unlock()
	want := models.AppConfig{SchemaVersion: models.ConfigSchemaVersion, WidgetVisible: true, WidgetPosition: &models.WidgetPosition{X: 40, Y: 60}}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if e := rec.lastEmit(t); e.topic != bus.TopicWidgetVisibilityState || e.payload != true {
		t.Errorf("visibility emit = %s %v", e.topic, e.payload)
	}
	if s.ApplyWidgetVisible(true) {
		t.Error("re-applying visibility reported a change")
	}
	if !s.ApplyWidgetVisible(false) {
		t.Error("visibility change not reported")
	}
}

func newAdapter(t *testing.T) (*storage.Adapter, *storage.FS) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return storage.NewAdapter(fs), fs
}

func TestInitializeDiscardsUnknownSchema(t *testing.T) {
	adapter, fs := newAdapter(t)
	ctx := context.Background()
	raw := `{"schemaVersion":999,"tasks":[{"id":"t1","title":"old"}],"globals":[],"taskLogs":[],"sparks":[]}`
	if err := fs.Put(ctx, storage.KeyAppData, []byte(raw)); err != nil {
		t.Fatal(err)
	}

	s := New(WithLoader(adapter))
	s.Initialize(ctx)

	st := s.State()
	if !st.Initialized {
		t.Fatal("not initialized")
	}
	if len(st.Tasks)+len(st.Globals)+len(st.TaskLogs)+len(st.Sparks) != 0 {
		t.Errorf("state not empty: %+v", st)
	}

	data, err := adapter.LoadData(ctx)
	if err != nil || data == nil {
		t.Fatalf("empty envelope not written: %v %v", data, err)
	}
	if diff := cmp.Diff(models.EmptyAppData(), *data); diff != "" {
		t.Errorf("rewritten envelope (-want +got):\n%s", diff)
	}
}

func TestInitializeRoundTrip(t *testing.T) {
	adapter, _ := newAdapter(t)
	ctx := context.Background()

	src, _ := newTestStore(t)
	task := addTask(t, src, "Persist me")
	g, _ := src.AddGlobal(GlobalInput{Title: "Goal"})
	src.AddTaskLog(LogInput{TaskID: task.ID, Type: models.LogSimple, Content: "note"})
	src.AddSpark(SparkInput{Title: "Spark", TaskIDs: []string{task.ID}})
	src.ToggleTask(task.ID)
	src.SetWidgetAlignMode(models.AlignLeft)
	if err := adapter.SaveData(ctx, src.Data()); err != nil {
		t.Fatal(err)
	}

	dst := New(WithLoader(adapter))
	dst.Initialize(ctx)

	want, got := src.State(), dst.State()
	if diff := cmp.Diff(want.Tasks, got.Tasks); diff != "" {
		t.Errorf("tasks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Globals, got.Globals); diff != "" {
		t.Errorf("globals (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.TaskLogs, got.TaskLogs); diff != "" {
		t.Errorf("logs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Sparks, got.Sparks); diff != "" {
		t.Errorf("sparks (-want +got):\n%s", diff)
	}
	if got.WidgetAlignMode != models.AlignLeft {
		t.Errorf("align = %q", got.WidgetAlignMode)
	}
	if got.SelectedGlobalID != g.ID {
		t.Errorf("selected = %q, want first global", got.SelectedGlobalID)
	}
}

func TestInitializeConfigEnvelope(t *testing.T) {
	t.Run("absent config is written with defaults", func(t *testing.T) {
		adapter, _ := newAdapter(t)
		ctx := context.Background()

		s := New(WithLoader(adapter))
		s.Initialize(ctx)

		cfg, err := adapter.LoadConfig(ctx)
		if err != nil || cfg == nil {
			t.Fatalf("config not written: %v %v", cfg, err)
		}
		if cfg.WidgetVisible || cfg.WidgetPosition != nil {
			t.Errorf("config = %+v", cfg)
		}
		if s.State().WidgetVisible {
			t.Error("widget visible by default")
		}
	})

	t.Run("stored position seeds preferences", func(t *testing.T) {
		adapter, _ := newAdapter(t)
		ctx := context.Background()
		pos := models.WidgetPosition{X: 900, Y: 24}
		if err := adapter.SaveConfig(ctx, models.AppConfig{WidgetVisible: true, WidgetPosition: &pos}); err != nil {
			t.Fatal(err)
		}

		s := New(WithLoader(adapter))
		s.Initialize(ctx)

		if !s.State().WidgetVisible {
			t.Error("visibility not restored")
		}
		got, ok := s.WidgetPosition()
		if !ok || got != pos {
			t.Errorf("position = %+v %v", got, ok)
		}
	})
}

func TestInitializeRunsOnce(t *testing.T) {
	adapter, _ := newAdapter(t)
	ctx := context.Background()

	s := New(WithLoader(adapter))
	s.Initialize(ctx)
	task, _ := s.AddTask(TaskInput{Title: "kept"})
	s.Initialize(ctx)

	if _, ok := s.Task(task.ID); !ok {
		t.Error("second Initialize reset the state")
	}
}
