// Package create реализует HTTP-обработчик создания аквариума.
//
// Создание проходит через проверку лимита тарифа: отказ возвращается
// со статусом 403 и подробностями — текущим числом аквариумов,
// лимитом и эффективным тарифом.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/marlinkeeper/aquatrack/internal/http/middlewarectx"
	"github.com/marlinkeeper/aquatrack/internal/http/response"
	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	"github.com/marlinkeeper/aquatrack/internal/models"
	"github.com/marlinkeeper/aquatrack/internal/services/entitlement"
	"github.com/marlinkeeper/aquatrack/internal/storage/repository"
)

// Handler управляет HTTP-запросами на создание аквариумов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания аквариума.
type Service interface {
	Create(ctx context.Context, userUID string, req models.DummyTank) (int, *entitlement.Result, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать аквариум
// @Description Создает аквариум, если лимит тарифа это позволяет. Возвращает ID созданной записи.
// @Tags Tanks
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummyTank true "Данные нового аквариума"
// @Success 200 {object} map[string]any "Успешное создание аквариума"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.Response "Лимит аквариумов тарифа исчерпан"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /tanks [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tank.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyTank
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, check, err := h.service.Create(r.Context(), userUID, req)
	if err != nil {
		if errors.Is(err, repository.ErrTankLimitReached) {
			// гонку параллельных созданий поймало хранилище
			log.Info("tank limit reached in storage", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("tank limit reached"))
			return
		}
		log.Error("failed to create tank", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create tank"))
		return
	}
	if !check.Allowed {
		log.Info("tank limit reached", slog.String("user_uid", userUID),
			slog.Int("count", check.CurrentCount), slog.Int("limit", check.Limit))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  check.Message,
			Data:   check,
		})
		return
	}

	log.Info("tank created", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"last_added_id": id,
	}))
}
