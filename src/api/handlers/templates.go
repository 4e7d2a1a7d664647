package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"royaltyhub/src/schemas"
	"royaltyhub/src/utils"
)

func (h *Handler) GetAllTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	filters := schemas.TemplateListFilters{
		Type: r.URL.Query().Get("type"),
	}
	if raw := r.URL.Query().Get("is_system"); raw != "" {
		isSystem, err := strconv.ParseBool(raw)
		if err != nil {
			utils.WriteError(w, utils.BadRequest("invalid is_system parameter"))
			return
		}
		filters.IsSystem = &isSystem
	}

	templates, err := h.Templates.List(ctx, filters)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, templates, http.StatusOK)
}

func (h *Handler) GetTemplateByID(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	id, err := idParam(r)
	if err != nil {
		utils.WriteError(w, utils.BadRequest("invalid id URL parameter"))
		return
	}

	template, err := h.Templates.GetByID(ctx, id)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, template, http.StatusOK)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	var req schemas.CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, utils.BadRequest("invalid request body"))
		return
	}

	template, err := h.Templates.Create(ctx, &req)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, template, http.StatusCreated)
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	id, err := idParam(r)
	if err != nil {
		utils.WriteError(w, utils.BadRequest("invalid id URL parameter"))
		return
	}

	var patch schemas.UpdateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.WriteError(w, utils.BadRequest("invalid request body"))
		return
	}

	template, err := h.Templates.Update(ctx, id, &patch)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, template, http.StatusOK)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	id, err := idParam(r)
	if err != nil {
		utils.WriteError(w, utils.BadRequest("invalid id URL parameter"))
		return
	}

	if err := h.Templates.Delete(ctx, id); err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewTemplate renders the template on demand with filter overrides
// taken from the query string.
func (h *Handler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	ctx = utils.WithLogger(ctx, h.Logger)

	id, err := idParam(r)
	if err != nil {
		utils.WriteError(w, utils.BadRequest("invalid id URL parameter"))
		return
	}

	overrides, err := filtersFromQuery(r.URL.Query())
	if err != nil {
		utils.WriteError(w, utils.BadRequest(err.Error()))
		return
	}

	document, err := h.Preview.Preview(ctx, id, overrides)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, document, http.StatusOK)
}
