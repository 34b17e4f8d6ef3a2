// Package read реализует HTTP-обработчик сводки по подписке.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/marlinkeeper/aquatrack/internal/http/middlewarectx"
	"github.com/marlinkeeper/aquatrack/internal/http/response"
	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	"github.com/marlinkeeper/aquatrack/internal/models"
	"github.com/marlinkeeper/aquatrack/internal/services/entitlement"
)

// Handler обрабатывает запросы сводки по подписке и лимитам.
type Handler struct {
	log  *slog.Logger
	subs SubscriptionReader
	ents Entitlements
}

// SubscriptionReader читает подписку пользователя из хранилища.
type SubscriptionReader interface {
	GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.Subscription, error)
}

// Entitlements вычисляет эффективный тариф и остатки лимитов.
type Entitlements interface {
	ResolveTier(ctx context.Context, userUID string) (models.Tier, error)
	CheckFeatureUsage(ctx context.Context, userUID string, feature models.Feature) (*entitlement.Result, error)
	CanCreateTank(ctx context.Context, userUID string) (*entitlement.Result, error)
}

// New создает новый Handler с переданными зависимостями.
func New(log *slog.Logger, subs SubscriptionReader, ents Entitlements) *Handler {
	return &Handler{log: log, subs: subs, ents: ents}
}

// ServeHTTP godoc
// @Summary Сводка по подписке
// @Description Возвращает подписку пользователя, эффективный тариф и остатки дневных лимитов.
// @Tags Subscription
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} map[string]any "Подписка и лимиты"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	sub, err := h.subs.GetSubscriptionByUserUID(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	tier, err := h.ents.ResolveTier(r.Context(), userUID)
	if err != nil {
		log.Error("failed to resolve tier", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not resolve tier"))
		return
	}

	quotas := make(map[string]*entitlement.Result, 4)
	for _, feature := range []models.Feature{
		models.FeatureAIMessages,
		models.FeaturePhotoDiagnosis,
		models.FeatureEquipmentRecs,
	} {
		check, err := h.ents.CheckFeatureUsage(r.Context(), userUID, feature)
		if err != nil {
			log.Error("failed to check feature usage", sl.Err(err),
				slog.String("feature", string(feature)))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not check limits"))
			return
		}
		quotas[string(feature)] = check
	}
	tanks, err := h.ents.CanCreateTank(r.Context(), userUID)
	if err != nil {
		log.Error("failed to check tank limit", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check limits"))
		return
	}
	quotas["tanks"] = tanks

	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": map[string]any{
			"tier":                 sub.Tier,
			"status":               sub.Status,
			"trial_ends_at":        sub.TrialEndsAt,
			"current_period_end":   sub.CurrentPeriodEnd,
			"cancel_at_period_end": sub.CancelAtPeriodEnd,
		},
		"effective_tier": tier,
		"limits":         models.LimitsFor(tier),
		"quotas":         quotas,
	}))
}
