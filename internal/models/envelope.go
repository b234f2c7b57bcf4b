package models

// Schema versions of the two persisted envelopes. Anything else on disk is
// discarded on load.
const (
	DataSchemaVersion   = 2
	ConfigSchemaVersion = 1
)

// AppData is the bulk data envelope.
type AppData struct {
	SchemaVersion      int       `json:"schemaVersion"`
	Tasks              []Task    `json:"tasks"`
	Globals            []Global  `json:"globals"`
	TaskLogs           []TaskLog `json:"taskLogs"`
	Sparks             []Spark   `json:"sparks"`
	WidgetShowAllTasks bool      `json:"widgetShowAllTasks"`
	WidgetAlignMode    AlignMode `json:"widgetAlignMode,omitempty"`
}

// EmptyAppData returns the envelope written when nothing usable was stored.
func EmptyAppData() AppData {
	return AppData{
		SchemaVersion:   DataSchemaVersion,
		Tasks:           []Task{},
		Globals:         []Global{},
		TaskLogs:        []TaskLog{},
		Sparks:          []Spark{},
		WidgetAlignMode: AlignRight,
	}
}

// AppConfig is the small cross-session window configuration envelope.
type AppConfig struct {
	SchemaVersion  int             `json:"schemaVersion"`
	WidgetVisible  bool            `json:"widgetVisible"`
	WidgetPosition *WidgetPosition `json:"widgetPosition,omitempty"`
}
