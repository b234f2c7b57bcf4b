// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the to-do store for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/daily/internal/models"
	"github.com/starford/daily/internal/store"
	"github.com/starford/daily/internal/surface"
)

const stateURI = "daily://state"

// Server wraps the MCP server with the task tools.
type Server struct {
	mcp   *server.MCPServer
	surf  *surface.Surface
	store *store.Store
}

// New creates a new MCP server with all tools registered.
func New(surf *surface.Surface, version string) *Server {
	s := &Server{surf: surf, store: surf.Store()}

	s.mcp = server.NewMCPServer(
		"Daily",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, active first, then by execution date."),
		mcp.WithString("filter", mcp.Description("Which tasks to list"), mcp.Enum("all", "active", "completed")),
		mcp.WithString("sort", mcp.Description("Sort mode"), mcp.Enum("status", "date", "priority")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Create a task. The execution date defaults to today."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("execution_date", mcp.Description("Date key YYYY-MM-DD")),
		mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum("high", "medium", "low")),
		mcp.WithString("global_id", mcp.Description("Id of the global this task belongs to")),
		mcp.WithString("tags", mcp.Description("Comma separated tags")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Flip a task between active and completed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
	), s.toggleTask)

	s.mcp.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Change the title, date or priority of a task. Omitted fields stay as they are."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("execution_date", mcp.Description("New date key YYYY-MM-DD")),
		mcp.WithString("priority", mcp.Description("New priority"), mcp.Enum("high", "medium", "low")),
	), s.updateTask)

	s.mcp.AddTool(mcp.NewTool("add_task_log",
		mcp.WithDescription("Attach a log entry to a task."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Log type, e.g. simple, exception, progress, conclusion")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Log text")),
	), s.addTaskLog)

	s.mcp.AddTool(mcp.NewTool("list_globals",
		mcp.WithDescription("List global objectives."),
	), s.listGlobals)

	s.mcp.AddTool(mcp.NewTool("widget_tasks",
		mcp.WithDescription("The tasks the desktop widget currently shows."),
	), s.widgetTasks)

	s.mcp.AddTool(mcp.NewTool("set_widget_visible",
		mcp.WithDescription("Show or hide the desktop widget."),
		mcp.WithBoolean("visible", mcp.Required(), mcp.Description("true to show, false to hide")),
	), s.setWidgetVisible)

	s.mcp.AddResource(
		mcp.NewResource(stateURI, "Store state",
			mcp.WithResourceDescription("Tasks, globals, logs, sparks and widget flags as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStateResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.store.State()
	filter := models.TaskFilter(req.GetString("filter", string(models.FilterAll)))
	mode := models.SortMode(req.GetString("sort", string(st.SortMode)))
	return jsonResult(store.VisibleTasks(st.Tasks, filter, mode))
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := store.TaskInput{
		Title:         title,
		ExecutionDate: req.GetString("execution_date", ""),
		Priority:      models.Priority(req.GetString("priority", "")),
		GlobalID:      req.GetString("global_id", ""),
		Tags:          splitTags(req.GetString("tags", "")),
	}
	if err := in.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, ok := s.store.AddTask(in)
	if !ok {
		return mcp.NewToolResultError("task rejected"), nil
	}
	return jsonResult(t)
}

func (s *Server) toggleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.store.Task(id); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	s.store.ToggleTask(id)
	t, _ := s.store.Task(id)
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", t.Title, t.Status)), nil
}

func (s *Server) updateTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.store.Task(id); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}

	var patch store.TaskPatch
	args := req.GetArguments()
	if _, ok := args["title"]; ok {
		v := req.GetString("title", "")
		patch.Title = &v
	}
	if _, ok := args["execution_date"]; ok {
		v := req.GetString("execution_date", "")
		patch.ExecutionDate = &v
	}
	if _, ok := args["priority"]; ok {
		v := models.Priority(req.GetString("priority", ""))
		patch.Priority = &v
	}
	if err := patch.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.store.UpdateTask(id, patch) {
		return mcp.NewToolResultText("unchanged"), nil
	}
	t, _ := s.store.Task(id)
	return jsonResult(t)
}

func (s *Server) addTaskLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	logType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.store.Task(taskID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", taskID)), nil
	}
	l, ok := s.store.AddTaskLog(store.LogInput{TaskID: taskID, Type: logType, Content: content})
	if !ok {
		return mcp.NewToolResultError("log rejected"), nil
	}
	return jsonResult(l)
}

func (s *Server) listGlobals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	globals := s.store.State().Globals
	if len(globals) == 0 {
		return mcp.NewToolResultText("no globals"), nil
	}
	return jsonResult(globals)
}

func (s *Server) widgetTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.WidgetTasks())
}

func (s *Server) setWidgetVisible(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	visible, err := req.RequireBool("visible")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.surf.SetWidgetVisible(ctx, visible); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if visible {
		return mcp.NewToolResultText("widget shown"), nil
	}
	return mcp.NewToolResultText("widget hidden"), nil
}

func (s *Server) readStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.Marshal(s.store.Data())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      stateURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
