// Package entitlement содержит резолвер эффективного тарифа и проверки
// лимитов функций. Каждая tier-gated операция приложения проходит через
// этот сервис; заявленный клиентом тариф никогда не используется.
//
// Любая ошибка чтения трактуется как отказ в доступе: сервис возвращает
// ошибку, не предполагая тариф по умолчанию.
package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	"github.com/marlinkeeper/aquatrack/internal/metrics"
	"github.com/marlinkeeper/aquatrack/internal/models"
)

// UserRepository определяет чтение пользователей из хранилища.
type UserRepository interface {
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
}

// SubscriptionRepository определяет чтение подписок из хранилища.
type SubscriptionRepository interface {
	GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.Subscription, error)
}

// UsageRepository определяет работу с суточными счётчиками.
// IncrementUsageIfBelow обязан выполнять проверку и инкремент атомарно
// на стороне хранилища.
type UsageRepository interface {
	IncrementUsageIfBelow(ctx context.Context, userUID string, feature models.Feature, limit int) (int, bool, error)
	GetUsageCount(ctx context.Context, userUID string, feature models.Feature) (int, error)
	AddTokenUsage(ctx context.Context, userUID string, feature models.Feature, inputTokens, outputTokens int) error
}

// TankCounter определяет подсчёт активных аквариумов.
type TankCounter interface {
	CountActiveTanks(ctx context.Context, userUID string) (int, error)
}

// Result — ответ на вопрос "разрешено ли действие сейчас".
type Result struct {
	Allowed      bool        `json:"allowed"`
	CurrentCount int         `json:"current_count"`
	Limit        int         `json:"limit"`
	Tier         models.Tier `json:"tier"`
	Message      string      `json:"message,omitempty"`
}

// Service реализует резолвер тарифа и проверки лимитов.
type Service struct {
	users UserRepository
	subs  SubscriptionRepository
	usage UsageRepository
	tanks TankCounter
	log   *slog.Logger
	now   func() time.Time
}

// New создает новый экземпляр Service.
func New(users UserRepository, subs SubscriptionRepository, usage UsageRepository, tanks TankCounter, log *slog.Logger) *Service {
	return &Service{
		users: users,
		subs:  subs,
		usage: usage,
		tanks: tanks,
		log:   log,
		now:   time.Now,
	}
}

// ResolveTier возвращает эффективный тариф пользователя. Каждый вызов
// читает актуальные строки, кеширования между запросами нет.
func (s *Service) ResolveTier(ctx context.Context, userUID string) (models.Tier, error) {
	const op = "entitlement.ResolveTier"

	user, err := s.users.GetUserByUID(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.subs.GetSubscriptionByUserUID(ctx, userUID)
	if err != nil {
		// Отсутствие строки подписки означает free, любая другая
		// ошибка чтения — отказ.
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		sub = nil
	}

	return ResolveFromRecords(user, sub, s.now().UTC()), nil
}

// Consume проверяет суточный лимит функции и занимает один слот.
// Проверка и инкремент — одна атомарная операция хранилища: при
// конкурентных запросах суммарное число разрешённых действий никогда
// не превышает лимит.
func (s *Service) Consume(ctx context.Context, userUID string, feature models.Feature) (*Result, error) {
	const op = "entitlement.Consume"

	tier, err := s.ResolveTier(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	limit := models.LimitsFor(tier).DailyLimit(feature)

	if limit == 0 {
		// Функция на тарифе не предлагается вовсе. Это не "лимит
		// исчерпан": сообщения различаются и не должны смешиваться.
		count, err := s.usage.GetUsageCount(ctx, userUID, feature)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		metrics.EntitlementDenials.WithLabelValues(string(feature), "tier_unavailable").Inc()
		return &Result{
			Allowed:      false,
			CurrentCount: count,
			Limit:        0,
			Tier:         tier,
			Message:      fmt.Sprintf("%s is not available on the %s plan, upgrade to unlock it", featureLabel(feature), tier),
		}, nil
	}

	count, allowed, err := s.usage.IncrementUsageIfBelow(ctx, userUID, feature, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := &Result{
		Allowed:      allowed,
		CurrentCount: count,
		Limit:        limit,
		Tier:         tier,
	}
	if !allowed {
		metrics.EntitlementDenials.WithLabelValues(string(feature), "daily_limit").Inc()
		result.Message = fmt.Sprintf("daily limit of %d %s reached, the counter resets at midnight UTC", limit, featureLabel(feature))
		s.log.Info("daily limit reached",
			slog.String("user_uid", userUID),
			slog.String("feature", string(feature)),
			slog.Int("limit", limit))
	}
	return result, nil
}

// CheckFeatureUsage возвращает текущее потребление функции без занятия
// слота. Используется сводкой по подписке.
func (s *Service) CheckFeatureUsage(ctx context.Context, userUID string, feature models.Feature) (*Result, error) {
	const op = "entitlement.CheckFeatureUsage"

	tier, err := s.ResolveTier(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	limit := models.LimitsFor(tier).DailyLimit(feature)

	count, err := s.usage.GetUsageCount(ctx, userUID, feature)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &Result{
		Allowed:      limit > 0 && count < limit,
		CurrentCount: count,
		Limit:        limit,
		Tier:         tier,
	}
	if limit == 0 {
		result.Message = fmt.Sprintf("%s is not available on the %s plan, upgrade to unlock it", featureLabel(feature), tier)
	} else if count >= limit {
		result.Message = fmt.Sprintf("daily limit of %d %s reached, the counter resets at midnight UTC", limit, featureLabel(feature))
	}
	return result, nil
}

// CanCreateTank проверяет лимит аквариумов тарифа. Счётчиком служит
// число активных аквариумов, а не суточная строка.
func (s *Service) CanCreateTank(ctx context.Context, userUID string) (*Result, error) {
	const op = "entitlement.CanCreateTank"

	tier, err := s.ResolveTier(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	limit := models.LimitsFor(tier).Tanks

	count, err := s.tanks.CountActiveTanks(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &Result{
		Allowed:      count < limit,
		CurrentCount: count,
		Limit:        limit,
		Tier:         tier,
	}
	if !result.Allowed {
		metrics.EntitlementDenials.WithLabelValues("tanks", "tank_limit").Inc()
		result.Message = fmt.Sprintf("the %s plan allows up to %d tanks, upgrade to add more", tier, limit)
	}
	return result, nil
}

// RecordTokens добавляет использованные токены LLM к сегодняшнему
// счётчику функции.
func (s *Service) RecordTokens(ctx context.Context, userUID string, feature models.Feature, inputTokens, outputTokens int) {
	if err := s.usage.AddTokenUsage(ctx, userUID, feature, inputTokens, outputTokens); err != nil {
		// Потеря статистики токенов не должна ронять запрос.
		s.log.Error("failed to record token usage", sl.Err(err),
			slog.String("user_uid", userUID), slog.String("feature", string(feature)))
	}
}

func featureLabel(feature models.Feature) string {
	switch feature {
	case models.FeatureAIMessages:
		return "AI messages"
	case models.FeaturePhotoDiagnosis:
		return "photo diagnosis"
	case models.FeatureEquipmentRecs:
		return "equipment recommendations"
	default:
		return string(feature)
	}
}
