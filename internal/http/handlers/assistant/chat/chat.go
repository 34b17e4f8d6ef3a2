// Package chat реализует HTTP-обработчик чата с ИИ-ассистентом.
package chat

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
	assistantservice "github.com/marlinkeeper/aquatrack/internal/services/assistant"
	"github.com/marlinkeeper/aquatrack/internal/services/entitlement"
)

// Request — вопрос ассистенту. TankID необязателен: если указан,
// ассистент получит контекст аквариума и последние измерения.
type Request struct {
	TankID   int    `json:"tank_id" validate:"gte=0"`
	Question string `json:"question" validate:"required,max=2000"`
}

// Handler обрабатывает запросы чата с ассистентом.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики ассистента.
type Service interface {
	Chat(ctx context.Context, userUID, role string, tankID int, question string) (*assistantservice.Reply, *entitlement.Result, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Чат с ИИ-ассистентом
// @Description Отвечает на вопрос об аквариумистике. Дневной лимит сообщений зависит от тарифа.
// @Tags Assistant
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Вопрос ассистенту"
// @Success 200 {object} map[string]any "Ответ ассистента"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.Response "Лимит исчерпан или чужой аквариум"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /assistant/chat [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assistant.chat"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
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
	role, _ := r.Context().Value(middlewarectx.Role).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	reply, check, err := h.service.Chat(r.Context(), userUID, role, req.TankID, req.Question)
	if err != nil {
		if errors.Is(err, assistantservice.ErrNotOwner) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("tank belongs to another user"))
			return
		}
		log.Error("assistant request failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("assistant is unavailable"))
		return
	}
	if !check.Allowed {
		log.Info("chat denied by quota",
			slog.Int("count", check.CurrentCount), slog.Int("limit", check.Limit))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  check.Message,
			Data:   check,
		})
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"answer": reply.Answer,
		"quota":  check,
	}))
}
