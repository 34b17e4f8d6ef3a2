// Package webhook реализует приём вебхуков платёжного провайдера.
//
// Протокол ответов:
//   - подпись не сошлась или тело нечитаемо — 400, событие не наше;
//   - журнал событий недоступен — 500, провайдер передоставит событие;
//   - всё остальное, включая ошибки обработчиков — 200, событие принято
//     и зафиксировано, повторная доставка ничего не изменит.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/marlinkeeper/aquatrack/internal/http/response"
	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	billingservice "github.com/marlinkeeper/aquatrack/internal/services/billing"
)

// maxBodyBytes ограничивает размер тела вебхука, как рекомендует Stripe.
const maxBodyBytes = int64(65536)

// Handler обрабатывает входящие вебхуки Stripe.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  string
}

// Service описывает интерфейс обработки платёжных событий.
type Service interface {
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

// New создает новый Handler с переданными логгером, сервисом и
// секретом подписи вебхуков.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{log: log, service: service, secret: secret}
}

// ServeHTTP godoc
// @Summary Вебхук платёжного провайдера
// @Description Принимает события Stripe. Подпись проверяется, события обрабатываются идемпотентно.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]any "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Failure 500 {object} response.ErrorResponse "Журнал событий недоступен"
// @Router /api/webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read body"))
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		log.Error("webhook signature verification failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	if err := h.service.ProcessEvent(r.Context(), event); err != nil {
		if errors.Is(err, billingservice.ErrLedger) {
			log.Error("event ledger unavailable", sl.Err(err),
				slog.String("event_id", event.ID))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("event ledger unavailable"))
			return
		}
		log.Error("failed to process event", sl.Err(err),
			slog.String("event_id", event.ID))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process event"))
		return
	}

	log.Info("webhook accepted",
		slog.String("event_id", event.ID), slog.String("type", string(event.Type)))
	render.JSON(w, r, map[string]any{"received": true})
}
