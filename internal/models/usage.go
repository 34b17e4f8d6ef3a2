package models

import "time"

// UsageCounter представляет суточный счётчик потребления функции.
// Одна строка на (пользователь, день, функция), создаётся лениво при
// первом использовании. Счётчик в течение дня только растёт; сброс
// происходит неявно сменой даты — новой строкой, а не обнулением.
type UsageCounter struct {
	ID           int
	UserUID      string
	Day          time.Time // Дата по UTC
	Feature      Feature
	MessageCount int // Количество использований за день
	InputTokens  int // Входные токены LLM за день
	OutputTokens int // Выходные токены LLM за день
}
