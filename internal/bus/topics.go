package bus

// Cross-surface topics.
const (
	TopicTaskStatusUpdated      = "task-status-updated"
	TopicTasksStateUpdated      = "tasks-state-updated"
	TopicWidgetTaskViewUpdated  = "widget-task-view-updated"
	TopicWidgetAlignmentUpdated = "widget-alignment-updated"
	TopicWidgetLockState        = "widget-lock-state"
	TopicWidgetVisibilityState  = "widget-visibility-state"
	TopicWidgetMoved            = "widget-moved"
	TopicWidgetForceUnlock      = "widget-force-unlock"
)

// AllTopics subscribes a handler to every topic.
const AllTopics = "*"
