package models

import "time"

// SubscriptionStatus представляет статус подписки в биллинге.
// Статусы повторяют жизненный цикл подписки у платёжного провайдера.
type SubscriptionStatus string

const (
	// StatusIncomplete — оформление начато, но оплата не завершена.
	StatusIncomplete SubscriptionStatus = "incomplete"
	// StatusTrialing — действует пробный период.
	StatusTrialing SubscriptionStatus = "trialing"
	// StatusActive — подписка оплачена и активна.
	StatusActive SubscriptionStatus = "active"
	// StatusPastDue — очередной платёж не прошёл, доступ под риском.
	StatusPastDue SubscriptionStatus = "past_due"
	// StatusCanceled — подписка отменена.
	StatusCanceled SubscriptionStatus = "canceled"
)

// Subscription представляет запись подписки пользователя. Ровно одна на
// пользователя, создаётся при регистрации и никогда не удаляется физически.
//
// Поле Tier хранит номинальный тариф и само по себе не даёт доступа:
// эффективный тариф вычисляется резолвером с учётом статуса, триала
// и ручного оверрайда. При отмене подписки Tier сохраняется как история.
type Subscription struct {
	ID                   int
	UserUID              string             // Владелец подписки
	Tier                 Tier               // Номинальный тариф
	Status               SubscriptionStatus // Текущий статус
	TrialEndsAt          *time.Time         // Окончание триала (nil, если триала не было)
	TierOverride         *Tier              // Ручной оверрайд тарифа от администратора
	OverrideExpiresAt    *time.Time         // Срок действия оверрайда (nil — бессрочно)
	CurrentPeriodEnd     *time.Time         // Конец оплаченного периода
	CancelAtPeriodEnd    bool               // Отмена запланирована на конец периода
	StripeCustomerID     string             // Идентификатор покупателя у провайдера
	StripeSubscriptionID string             // Идентификатор подписки у провайдера
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SubscriptionUpdate содержит канонический снимок полей подписки от
// платёжного провайдера. Применяется целиком при событии
// customer.subscription.updated.
type SubscriptionUpdate struct {
	Tier              Tier
	Status            SubscriptionStatus
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
}
