package billing

import "github.com/marlinkeeper/aquatrack/internal/models"

// transitions — явная таблица допустимых переходов статуса подписки.
// Переход, которого нет в таблице, считается следствием потерянного или
// переставленного события провайдера: обработчик фиксирует его в журнале
// как ошибку, а не применяет молча.
//
// canceled — терминальный статус: после него допустима только отмена
// повторно (идемпотентность повторной доставки customer.subscription.deleted).
var transitions = map[models.SubscriptionStatus]map[models.SubscriptionStatus]bool{
	models.StatusIncomplete: {
		models.StatusTrialing: true,
		models.StatusActive:   true,
		models.StatusCanceled: true,
	},
	models.StatusTrialing: {
		models.StatusTrialing: true,
		models.StatusActive:   true,
		models.StatusPastDue:  true,
		models.StatusCanceled: true,
	},
	models.StatusActive: {
		models.StatusActive:   true,
		models.StatusPastDue:  true,
		models.StatusCanceled: true,
	},
	models.StatusPastDue: {
		models.StatusActive:   true,
		models.StatusPastDue:  true,
		models.StatusCanceled: true,
	},
	models.StatusCanceled: {
		models.StatusCanceled: true,
	},
}

// validTransition сообщает, допустим ли переход статуса from -> to.
func validTransition(from, to models.SubscriptionStatus) bool {
	return transitions[from][to]
}
