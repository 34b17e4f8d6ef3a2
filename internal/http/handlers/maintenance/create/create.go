// Package create реализует HTTP-обработчик создания задачи обслуживания.
package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator"

	"github.com/marlinkeeper/aquatrack/internal/http/middlewarectx"
	"github.com/marlinkeeper/aquatrack/internal/http/response"
	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	"github.com/marlinkeeper/aquatrack/internal/models"
	maintenanceservice "github.com/marlinkeeper/aquatrack/internal/services/maintenance"
)

// Handler обрабатывает запросы на создание задач обслуживания.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики задач обслуживания.
type Service interface {
	Create(ctx context.Context, userUID string, req models.DummyMaintenanceTask) (int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Создать задачу обслуживания
// @Description Создает задачу обслуживания аквариума. Количество открытых задач ограничено тарифом.
// @Tags Maintenance
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummyMaintenanceTask true "Задача обслуживания"
// @Success 200 {object} map[string]any "ID созданной задачи"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Лимит задач или чужой аквариум"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /maintenance [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.maintenance.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyMaintenanceTask
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var validateErr validator.ValidationErrors
		errors.As(err, &validateErr)
		log.Error("invalid request", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(validateErr))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, err := h.service.Create(r.Context(), userUID, req)
	if err != nil {
		switch {
		case errors.Is(err, maintenanceservice.ErrTaskLimitReached):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("open task limit reached for current plan"))
		case errors.Is(err, maintenanceservice.ErrNotOwner):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("tank belongs to another user"))
		case errors.Is(err, maintenanceservice.ErrPastDueDate):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("due date is in the past"))
		case errors.Is(err, maintenanceservice.ErrBadDueDate):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("due date must be in 02-01-2006 format"))
		default:
			log.Error("failed to create task", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create task"))
		}
		return
	}

	log.Info("maintenance task created", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"last_added_id": id}))
}
