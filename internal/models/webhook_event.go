package models

import "time"

// WebhookEvent представляет запись журнала обработанных событий платёжного
// провайдера. Уникальность EventID обеспечивает обработку каждого события
// не более одного раза при повторных доставках. Журнал только пополняется.
type WebhookEvent struct {
	ID        int
	EventID   string // Идентификатор события у провайдера, уникальный
	EventType string // Тип события
	Payload   []byte // Сырой JSON события
	Error     string // Текст ошибки обработчика, пустой при успехе
	CreatedAt time.Time
}
