// Package health реализует проверку работоспособности сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/marlinkeeper/aquatrack/internal/http/response"
	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
)

// Handler отвечает на запросы проверки работоспособности.
type Handler struct {
	log   *slog.Logger
	check func() error
}

// New создает новый Handler. check проверяет готовность базы данных.
func New(log *slog.Logger, check func() error) *Handler {
	return &Handler{log: log, check: check}
}

// ServeHTTP godoc
// @Summary Проверка работоспособности
// @Description Возвращает ok, если сервис и база данных доступны.
// @Tags Health
// @Produce  json
// @Success 200 {object} map[string]any "Сервис работает"
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if err := h.check(); err != nil {
		h.log.Error("database is not ready", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database is not ready"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{"status": "ok"}))
}
