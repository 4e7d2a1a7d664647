package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"royaltyhub/src/models"
	"royaltyhub/src/repositories"
	"royaltyhub/src/services"
	"royaltyhub/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Executor triggers an on-demand run of a scheduled report.
type Executor interface {
	ExecuteNow(ctx context.Context, id uint) error
}

type Handler struct {
	Templates services.TemplateServiceI
	Schedules services.ScheduleServiceI
	Preview   services.PreviewServiceI
	Executor  Executor
	Logger    *logrus.Logger
}

func NewHandler(templates services.TemplateServiceI, schedules services.ScheduleServiceI, preview services.PreviewServiceI, executor Executor, logger *logrus.Logger) *Handler {
	return &Handler{
		Templates: templates,
		Schedules: schedules,
		Preview:   preview,
		Executor:  executor,
		Logger:    logger,
	}
}

func Healthcheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) respond(w http.ResponseWriter, _ *http.Request, data interface{}, status int) {
	res, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(res)
}

// HandleErrors maps domain errors onto HTTP responses.
func (h *Handler) HandleErrors(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		utils.WriteError(w, utils.NotFound(err.Error()))
	case errors.Is(err, repositories.ErrSystemTemplate):
		utils.WriteError(w, utils.Forbidden(err.Error()))
	case errors.Is(err, services.ErrValidation):
		utils.WriteError(w, utils.BadRequest(err.Error()))
	case errors.Is(err, services.ErrInvalidScheduleExpression):
		utils.WriteError(w, utils.UnprocessableEntity(err.Error()))
	case errors.Is(err, services.ErrDataSource):
		utils.WriteError(w, utils.BadGateway(err.Error()))
	default:
		utils.WriteError(w, utils.InternalServerError(err.Error()))
	}
}

func idParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func filtersFromQuery(query url.Values) (models.FilterSet, error) {
	filters := models.FilterSet{
		Period:   query.Get("period"),
		Category: query.Get("category"),
		Status:   query.Get("status"),
		Creator:  query.Get("creator"),
	}
	if raw := query.Get("minAmount"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filters, err
		}
		filters.MinAmount = &value
	}
	return filters, filters.Validate()
}
