package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/starford/daily/internal/checksum"
	"github.com/starford/daily/internal/models"
	"github.com/starford/daily/internal/store"
	"github.com/starford/daily/internal/surface"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	surf  *surface.Surface
	store *store.Store
}

// NewHandler creates a new Handler.
func NewHandler(surf *surface.Surface) *Handler {
	return &Handler{surf: surf, store: surf.Store()}
}

// decodeBody reads a JSON body into v, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func (h *Handler) task(w http.ResponseWriter, id string) (models.Task, bool) {
	t, ok := h.store.Task(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	}
	return t, ok
}

func (h *Handler) taskResponse(t models.Task) TaskResponse {
	return TaskResponse{Task: t, HasException: h.store.HasException(t.ID)}
}

// State handles GET /api/state. Pollers send If-None-Match to skip
// unchanged state.
//
//	@Summary		Full store state of this surface
//	@Tags			state
//	@Produce		json
//	@Param			If-None-Match	header	string	false	"ETag of the last response"
//	@Success		200	{object}	StateResponse
//	@Success		304
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(stateResponse(h.store.State()))
	if err != nil {
		slog.Error("encode state failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	etag := checksum.ETag(body)
	w.Header().Set("ETag", etag)
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// SetView handles PUT /api/view.
//
//	@Summary		Change list filter and sort mode
//	@Tags			state
//	@Accept			json
//	@Param			body	body	ViewRequest	true	"Filter and sort mode"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/view [put]
func (h *Handler) SetView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Filter != "" {
		h.store.SetFilter(req.Filter)
	}
	if req.SortMode != "" {
		h.store.SetSortMode(req.SortMode)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		List tasks with the current filter and sort mode
//	@Tags			tasks
//	@Produce		json
//	@Param			globalId	query		string	false	"Only tasks of this global"
//	@Success		200			{object}	TaskListResponse
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []models.Task
	if id := r.URL.Query().Get("globalId"); id != "" {
		tasks = h.store.GlobalTasks(id)
	} else {
		tasks = h.store.VisibleTasks()
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks, Total: len(tasks)})
}

// GetTask handles GET /api/tasks/{id}.
//
//	@Summary		Get a single task
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		string	true	"Task id"
//	@Success		200	{object}	TaskResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id} [get]
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := h.task(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.taskResponse(t))
}

// CreateTask handles POST /api/tasks.
//
//	@Summary		Create a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTaskRequest	true	"Task to create"
//	@Success		201		{object}	TaskResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	t, ok := h.store.AddTask(in)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid task"))
		return
	}
	writeJSON(w, http.StatusCreated, h.taskResponse(t))
}

// UpdateTask handles PATCH /api/tasks/{id}.
//
//	@Summary		Update the given fields of a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Task id"
//	@Param			body	body		UpdateTaskRequest	true	"Fields to change"
//	@Success		200		{object}	TaskResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id} [patch]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	patch := req.patch()
	if err := patch.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, ok := h.task(w, id); !ok {
		return
	}
	h.store.UpdateTask(id, patch)
	t, ok := h.task(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.taskResponse(t))
}

// ToggleTask handles POST /api/tasks/{id}/toggle.
//
//	@Summary		Flip a task between active and completed
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		string	true	"Task id"
//	@Success		200	{object}	TaskResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id}/toggle [post]
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.task(w, id); !ok {
		return
	}
	h.store.ToggleTask(id)
	t, ok := h.task(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.taskResponse(t))
}

// AddTaskTag handles PUT /api/tasks/{id}/tags/{tag}.
//
//	@Summary		Add a tag to a task
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		string	true	"Task id"
//	@Param			tag	path		string	true	"Tag"
//	@Success		200	{object}	TaskResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id}/tags/{tag} [put]
func (h *Handler) AddTaskTag(w http.ResponseWriter, r *http.Request) {
	h.retag(w, r, h.store.AddTaskTag)
}

// RemoveTaskTag handles DELETE /api/tasks/{id}/tags/{tag}.
//
//	@Summary		Remove a tag from a task
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		string	true	"Task id"
//	@Param			tag	path		string	true	"Tag"
//	@Success		200	{object}	TaskResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id}/tags/{tag} [delete]
func (h *Handler) RemoveTaskTag(w http.ResponseWriter, r *http.Request) {
	h.retag(w, r, h.store.RemoveTaskTag)
}

func (h *Handler) retag(w http.ResponseWriter, r *http.Request, change func(id, tag string) bool) {
	id := chi.URLParam(r, "id")
	if _, ok := h.task(w, id); !ok {
		return
	}
	change(id, chi.URLParam(r, "tag"))
	t, ok := h.task(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.taskResponse(t))
}

// ListGlobals handles GET /api/globals.
//
//	@Summary		List globals
//	@Tags			globals
//	@Produce		json
//	@Success		200	{array}	models.Global
//	@Security		BearerAuth
//	@Router			/globals [get]
func (h *Handler) ListGlobals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State().Globals)
}

// CreateGlobal handles POST /api/globals. The new global becomes selected.
//
//	@Summary		Create a global
//	@Tags			globals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateGlobalRequest	true	"Global to create"
//	@Success		201		{object}	models.Global
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/globals [post]
func (h *Handler) CreateGlobal(w http.ResponseWriter, r *http.Request) {
	var req CreateGlobalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := store.GlobalInput(req)
	if err := in.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	g, ok := h.store.AddGlobal(in)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid global"))
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// UpdateGlobal handles PATCH /api/globals/{id}. Referencing tasks and sparks
// are left untouched.
//
//	@Summary		Update the given fields of a global
//	@Tags			globals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Global id"
//	@Param			body	body		UpdateGlobalRequest	true	"Fields to change"
//	@Success		200		{object}	models.Global
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/globals/{id} [patch]
func (h *Handler) UpdateGlobal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateGlobalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	patch := store.GlobalPatch(req)
	if err := patch.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if !h.store.UpdateGlobal(id, patch) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	globals := h.store.State().Globals
	i := slices.IndexFunc(globals, func(g models.Global) bool { return g.ID == id })
	if i < 0 {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, globals[i])
}

// SelectGlobal handles PUT /api/globals/selected.
//
//	@Summary		Select a global, or clear the selection
//	@Tags			globals
//	@Accept			json
//	@Param			body	body	SelectGlobalRequest	true	"Global id"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/globals/selected [put]
func (h *Handler) SelectGlobal(w http.ResponseWriter, r *http.Request) {
	var req SelectGlobalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.store.SelectGlobal(req.ID)
	w.WriteHeader(http.StatusNoContent)
}

// GlobalLogs handles GET /api/globals/{id}/logs.
//
//	@Summary		Logs of the tasks belonging to a global, newest first
//	@Tags			globals
//	@Produce		json
//	@Param			id	path		string	true	"Global id"
//	@Success		200	{object}	LogListResponse
//	@Security		BearerAuth
//	@Router			/globals/{id}/logs [get]
func (h *Handler) GlobalLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LogListResponse{Logs: h.store.LogsForGlobal(chi.URLParam(r, "id"))})
}

// CreateLog handles POST /api/logs.
//
//	@Summary		Add a log to a task
//	@Tags			logs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateLogRequest	true	"Log to add"
//	@Success		201		{object}	models.TaskLog
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/logs [post]
func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) {
	var req CreateLogRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, ok := h.task(w, req.TaskID); !ok {
		return
	}
	l, ok := h.store.AddTaskLog(store.LogInput(req))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid log"))
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// ListSparks handles GET /api/sparks.
//
//	@Summary		List sparks
//	@Tags			sparks
//	@Produce		json
//	@Success		200	{array}	models.Spark
//	@Security		BearerAuth
//	@Router			/sparks [get]
func (h *Handler) ListSparks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State().Sparks)
}

// CreateSpark handles POST /api/sparks.
//
//	@Summary		Create a spark
//	@Tags			sparks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSparkRequest	true	"Spark to create"
//	@Success		201		{object}	models.Spark
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sparks [post]
func (h *Handler) CreateSpark(w http.ResponseWriter, r *http.Request) {
	var req CreateSparkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := store.SparkInput(req)
	if err := in.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	sp, ok := h.store.AddSpark(in)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid spark"))
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

// UpdateSpark handles PATCH /api/sparks/{id}.
//
//	@Summary		Update the given fields of a spark
//	@Tags			sparks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Spark id"
//	@Param			body	body		UpdateSparkRequest	true	"Fields to change"
//	@Success		200		{object}	models.Spark
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sparks/{id} [patch]
func (h *Handler) UpdateSpark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateSparkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	patch := store.SparkPatch(req)
	if err := patch.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if !h.store.UpdateSpark(id, patch) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	sparks := h.store.State().Sparks
	i := slices.IndexFunc(sparks, func(sp models.Spark) bool { return sp.ID == id })
	if i < 0 {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, sparks[i])
}
