package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/daily/internal/surface"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(surf *surface.Surface, authEnabled bool, token string) chi.Router {
	h := NewHandler(surf)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/state", h.State)
	r.Put("/view", h.SetView)

	// Tasks.
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks", h.CreateTask)
	r.Get("/tasks/{id}", h.GetTask)
	r.Patch("/tasks/{id}", h.UpdateTask)
	r.Post("/tasks/{id}/toggle", h.ToggleTask)
	r.Put("/tasks/{id}/tags/{tag}", h.AddTaskTag)
	r.Delete("/tasks/{id}/tags/{tag}", h.RemoveTaskTag)

	// Globals, logs and sparks stay local to this surface.
	r.Get("/globals", h.ListGlobals)
	r.Post("/globals", h.CreateGlobal)
	r.Put("/globals/selected", h.SelectGlobal)
	r.Patch("/globals/{id}", h.UpdateGlobal)
	r.Get("/globals/{id}/logs", h.GlobalLogs)
	r.Post("/logs", h.CreateLog)
	r.Get("/sparks", h.ListSparks)
	r.Post("/sparks", h.CreateSpark)
	r.Patch("/sparks/{id}", h.UpdateSpark)

	// Widget.
	r.Get("/widget", h.Widget)
	r.Put("/widget/visible", h.SetWidgetVisible)
	r.Post("/widget/visible/toggle", h.ToggleWidgetVisible)
	r.Put("/widget/locked", h.SetWidgetLocked)
	r.Post("/widget/locked/toggle", h.ToggleWidgetLocked)
	r.Post("/widget/show-all/toggle", h.ToggleWidgetShowAll)
	r.Put("/widget/align", h.SetWidgetAlign)
	r.Post("/widget/align/toggle", h.ToggleWidgetAlign)
	r.Put("/widget/scale", h.SetWidgetScale)
	r.Post("/widget/drag", h.StartDragging)
	r.Post("/widget/expand", h.ExpandToMain)

	return r
}
