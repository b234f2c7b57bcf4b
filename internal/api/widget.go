package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/daily/internal/apperr"
	"github.com/starford/daily/internal/surface"
)

func (h *Handler) widgetResponse() WidgetResponse {
	st := h.store.State()
	return WidgetResponse{
		Tasks:        h.store.WidgetTasks(),
		ShowAllTasks: st.WidgetShowAllTasks,
		AlignMode:    st.WidgetAlignMode,
		Locked:       st.WidgetLocked,
		Visible:      st.WidgetVisible,
		Scale:        h.surf.WidgetScale(),
	}
}

// writeWindowError maps window host failures to responses.
func writeWindowError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, surface.ErrLocked):
		writeJSON(w, http.StatusConflict, errorBody("widget is locked"))
	case errors.Is(err, apperr.ErrTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrCreateFailed):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		slog.Error("widget action failed", slog.String("op", op), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Widget handles GET /api/widget.
//
//	@Summary		Widget task view and flags
//	@Tags			widget
//	@Produce		json
//	@Success		200	{object}	WidgetResponse
//	@Security		BearerAuth
//	@Router			/widget [get]
func (h *Handler) Widget(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// SetWidgetVisible handles PUT /api/widget/visible.
//
//	@Summary		Show or hide the widget window
//	@Tags			widget
//	@Accept			json
//	@Produce		json
//	@Param			body	body		VisibleRequest	true	"Visibility"
//	@Success		200		{object}	WidgetResponse
//	@Failure		502		{object}	errResponse
//	@Failure		504		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/widget/visible [put]
func (h *Handler) SetWidgetVisible(w http.ResponseWriter, r *http.Request) {
	var req VisibleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.surf.SetWidgetVisible(r.Context(), req.Visible); err != nil {
		writeWindowError(w, "visible", err)
		return
	}
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// ToggleWidgetVisible handles POST /api/widget/visible/toggle.
//
//	@Summary		Toggle widget visibility
//	@Tags			widget
//	@Produce		json
//	@Success		200	{object}	WidgetResponse
//	@Failure		502	{object}	errResponse
//	@Failure		504	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/widget/visible/toggle [post]
func (h *Handler) ToggleWidgetVisible(w http.ResponseWriter, r *http.Request) {
	if _, err := h.surf.ToggleWidgetVisible(r.Context()); err != nil {
		writeWindowError(w, "toggle visible", err)
		return
	}
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// SetWidgetLocked handles PUT /api/widget/locked.
//
//	@Summary		Lock or unlock the widget
//	@Tags			widget
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LockedRequest	true	"Lock state"
//	@Success		200		{object}	WidgetResponse
//	@Security		BearerAuth
//	@Router			/widget/locked [put]
func (h *Handler) SetWidgetLocked(w http.ResponseWriter, r *http.Request) {
	var req LockedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.surf.SetWidgetLocked(r.Context(), req.Locked)
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// ToggleWidgetLocked handles POST /api/widget/locked/toggle.
//
//	@Summary		Toggle the widget lock
//	@Tags			widget
//	@Produce		json
//	@Success		200	{object}	WidgetResponse
//	@Security		BearerAuth
//	@Router			/widget/locked/toggle [post]
func (h *Handler) ToggleWidgetLocked(w http.ResponseWriter, r *http.Request) {
	h.surf.ToggleWidgetLocked(r.Context())
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// ToggleWidgetShowAll handles POST /api/widget/show-all/toggle.
//
//	@Summary		Toggle between the capped and the full widget list
//	@Tags			widget
//	@Produce		json
//	@Success		200	{object}	WidgetResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/widget/show-all/toggle [post]
func (h *Handler) ToggleWidgetShowAll(w http.ResponseWriter, _ *http.Request) {
	if err := h.surf.ToggleWidgetShowAllTasks(); err != nil {
		writeWindowError(w, "show all", err)
		return
	}
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// SetWidgetAlign handles PUT /api/widget/align.
//
//	@Summary		Set widget row alignment
//	@Tags			widget
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AlignRequest	true	"Alignment"
//	@Success		200		{object}	WidgetResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/widget/align [put]
func (h *Handler) SetWidgetAlign(w http.ResponseWriter, r *http.Request) {
	var req AlignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.AlignMode.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("alignMode must be left or right"))
		return
	}
	h.store.SetWidgetAlignMode(req.AlignMode)
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// ToggleWidgetAlign handles POST /api/widget/align/toggle.
//
//	@Summary		Toggle widget row alignment
//	@Tags			widget
//	@Produce		json
//	@Success		200	{object}	WidgetResponse
//	@Security		BearerAuth
//	@Router			/widget/align/toggle [post]
func (h *Handler) ToggleWidgetAlign(w http.ResponseWriter, _ *http.Request) {
	h.store.ToggleWidgetAlignMode()
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// SetWidgetScale handles PUT /api/widget/scale. Out of range values are
// clamped.
//
//	@Summary		Resize the widget window
//	@Tags			widget
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScaleRequest	true	"Scale percentage"
//	@Success		200		{object}	WidgetResponse
//	@Security		BearerAuth
//	@Router			/widget/scale [put]
func (h *Handler) SetWidgetScale(w http.ResponseWriter, r *http.Request) {
	var req ScaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := h.surf.SetWidgetScale(r.Context(), req.Scale); err != nil {
		writeWindowError(w, "scale", err)
		return
	}
	writeJSON(w, http.StatusOK, h.widgetResponse())
}

// StartDragging handles POST /api/widget/drag.
//
//	@Summary		Begin moving the widget window
//	@Tags			widget
//	@Success		204
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/widget/drag [post]
func (h *Handler) StartDragging(w http.ResponseWriter, r *http.Request) {
	if err := h.surf.StartDragging(r.Context()); err != nil {
		writeWindowError(w, "drag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExpandToMain handles POST /api/widget/expand.
//
//	@Summary		Bring the main window forward
//	@Tags			widget
//	@Success		204
//	@Security		BearerAuth
//	@Router			/widget/expand [post]
func (h *Handler) ExpandToMain(w http.ResponseWriter, r *http.Request) {
	if err := h.surf.ExpandToMain(r.Context()); err != nil {
		writeWindowError(w, "expand", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
