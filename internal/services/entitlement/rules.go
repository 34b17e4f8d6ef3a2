package entitlement

import (
	"time"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// rule — одно правило определения эффективного тарифа. Правила
// проверяются строго по порядку, срабатывает первое подходящее.
type rule struct {
	name  string
	apply func(user *models.User, sub *models.Subscription, now time.Time) (models.Tier, bool)
}

// tierRules — цепочка правил в порядке приоритета:
//  1. администратор всегда получает pro;
//  2. непросроченный ручной оверрайд возвращает назначенный тариф,
//     даже поверх активной подписки;
//  3. действующий триал даёт pro независимо от номинального тарифа;
//  4. активная подписка возвращает номинальный тариф;
//  5. иначе free.
//
// Порядок существенен: оверрайд не должен перебиваться просроченным
// триалом, всё ещё записанным в строке, а триал — номинальным тарифом.
var tierRules = []rule{
	{
		name: "admin",
		apply: func(user *models.User, _ *models.Subscription, _ time.Time) (models.Tier, bool) {
			if user != nil && user.IsAdmin() {
				return models.TierPro, true
			}
			return "", false
		},
	},
	{
		name: "override",
		apply: func(_ *models.User, sub *models.Subscription, now time.Time) (models.Tier, bool) {
			if sub == nil || sub.TierOverride == nil {
				return "", false
			}
			if sub.OverrideExpiresAt != nil && !sub.OverrideExpiresAt.After(now) {
				return "", false
			}
			return *sub.TierOverride, true
		},
	},
	{
		name: "trial",
		apply: func(_ *models.User, sub *models.Subscription, now time.Time) (models.Tier, bool) {
			if sub == nil || sub.Status != models.StatusTrialing {
				return "", false
			}
			if sub.TrialEndsAt == nil || !sub.TrialEndsAt.After(now) {
				return "", false
			}
			return models.TierPro, true
		},
	},
	{
		name: "active",
		apply: func(_ *models.User, sub *models.Subscription, _ time.Time) (models.Tier, bool) {
			if sub != nil && sub.Status == models.StatusActive {
				return sub.Tier, true
			}
			return "", false
		},
	},
}

// ResolveFromRecords вычисляет эффективный тариф по записям пользователя
// и подписки. Чистая функция без обращений к хранилищу.
func ResolveFromRecords(user *models.User, sub *models.Subscription, now time.Time) models.Tier {
	for _, r := range tierRules {
		if tier, ok := r.apply(user, sub, now); ok {
			return tier
		}
	}
	return models.TierFree
}
