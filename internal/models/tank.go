package models

import "time"

// Tank представляет аквариум пользователя. Удаление мягкое: строка
// помечается IsDeleted и перестаёт учитываться в лимите тарифа.
type Tank struct {
	ID           int
	UserUID      string    // Владелец аквариума
	Name         string    // Название
	VolumeLiters int       // Объём в литрах
	WaterType    string    // Тип воды: freshwater или saltwater
	Description  string    // Произвольное описание
	IsDeleted    bool      // Признак мягкого удаления
	CreatedAt    time.Time // Дата создания
}

// DummyTank используется для приёма данных аквариума из JSON-запроса
// до их валидации.
type DummyTank struct {
	Name         string `json:"name" validate:"required"`                              // Название аквариума
	VolumeLiters int    `json:"volume_liters" validate:"required,gt=0"`                // Объём (>0)
	WaterType    string `json:"water_type" validate:"required,oneof=freshwater saltwater"` // Тип воды
	Description  string `json:"description,omitempty" validate:"omitempty,max=1000"`   // Описание (опционально)
}
