// Package list реализует HTTP-обработчик каталога видов рыб.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/marlinkeeper/aquatrack/internal/http/response"
	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	"github.com/marlinkeeper/aquatrack/internal/models"
)

// Handler обрабатывает запросы каталога видов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики каталога.
type Service interface {
	List(ctx context.Context, waterType string, limit, offset int) ([]*models.Species, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Каталог видов
// @Description Возвращает справочник видов рыб, опционально только для пресной или солёной воды.
// @Tags Species
// @Security BearerAuth
// @Produce  json
// @Param water_type query string false "Тип воды: freshwater или saltwater"
// @Param limit query int false "Размер страницы (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Список видов"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /species [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.species.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	waterType := r.URL.Query().Get("water_type")
	if waterType != "" && waterType != "freshwater" && waterType != "saltwater" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("water_type must be freshwater or saltwater"))
		return
	}

	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	species, err := h.service.List(r.Context(), waterType, limit, offset)
	if err != nil {
		log.Error("failed to list species", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list species"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"species": species,
		"count":   len(species),
	}))
}
