// Package health реализует HTTP-обработчик оценки здоровья аквариума.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/marlinkeeper/aquatrack/internal/http/middlewarectx"
	"github.com/marlinkeeper/aquatrack/internal/http/response"
	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	tankservice "github.com/marlinkeeper/aquatrack/internal/services/tank"
)

// Handler обрабатывает запросы оценки здоровья аквариума.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики оценки здоровья.
type Service interface {
	Health(ctx context.Context, userUID, role string, id int) (*tankservice.HealthReport, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Оценка здоровья аквариума
// @Description Возвращает оценку 0-100 по последнему измерению параметров воды.
// @Tags Tanks
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID аквариума"
// @Success 200 {object} map[string]any "Оценка здоровья"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Аквариум принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Нет ни одного измерения"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /tanks/{id}/health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tank.health"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("invalid tank id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid tank id"))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	role, _ := r.Context().Value(middlewarectx.Role).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	report, err := h.service.Health(r.Context(), userUID, role, id)
	if err != nil {
		switch {
		case errors.Is(err, tankservice.ErrNotOwner):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("tank belongs to another user"))
		case errors.Is(err, tankservice.ErrNoMeasurements):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("tank has no measurements yet"))
		default:
			log.Error("failed to score tank health", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not score tank health"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(report))
}
