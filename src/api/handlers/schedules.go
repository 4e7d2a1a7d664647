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

func (h *Handler) GetAllScheduledReports(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	filters := schemas.ScheduleListFilters{
		Type: r.URL.Query().Get("type"),
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		isActive, err := strconv.ParseBool(raw)
		if err != nil {
			utils.WriteError(w, utils.BadRequest("invalid is_active parameter"))
			return
		}
		filters.IsActive = &isActive
	}

	reports, err := h.Schedules.List(ctx, filters)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, reports, http.StatusOK)
}

func (h *Handler) GetScheduledReportByID(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	id, err := idParam(r)
	if err != nil {
		utils.WriteError(w, utils.BadRequest("invalid id URL parameter"))
		return
	}

	report, err := h.Schedules.GetByID(ctx, id)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, report, http.StatusOK)
}

func (h *Handler) CreateScheduledReport(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	var req schemas.CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, utils.BadRequest("invalid request body"))
		return
	}

	report, err := h.Schedules.Create(ctx, &req)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, report, http.StatusCreated)
}

func (h *Handler) UpdateScheduledReport(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	id, err := idParam(r)
	if err != nil {
		utils.WriteError(w, utils.BadRequest("invalid id URL parameter"))
		return
	}

	var patch schemas.UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.WriteError(w, utils.BadRequest("invalid request body"))
		return
	}

	report, err := h.Schedules.Update(ctx, id, &patch)
	if err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, report, http.StatusOK)
}

func (h *Handler) DeleteScheduledReport(w http.ResponseWriter, r *http.Request) {
	ctx := utils.WithLogger(r.Context(), h.Logger)

	id, err := idParam(r)
	if err != nil {
		utils.WriteError(w, utils.BadRequest("invalid id URL parameter"))
		return
	}

	if err := h.Schedules.Delete(ctx, id); err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExecuteScheduledReport triggers an immediate render/export/deliver run
// without touching the record's next_run_at.
func (h *Handler) ExecuteScheduledReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	ctx = utils.WithLogger(ctx, h.Logger)

	id, err := idParam(r)
	if err != nil {
		utils.WriteError(w, utils.BadRequest("invalid id URL parameter"))
		return
	}

	if err := h.Executor.ExecuteNow(ctx, id); err != nil {
		h.Logger.Warning(err)
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, map[string]string{"status": "executed"}, http.StatusOK)
}
