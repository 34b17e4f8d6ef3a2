package models

import "time"

// WaterParameters представляет одно измерение параметров воды аквариума.
// По последнему измерению вычисляется оценка здоровья аквариума.
type WaterParameters struct {
	ID          int
	TankID      int
	PH          float64   // Кислотность
	Temperature float64   // Температура, °C
	Ammonia     float64   // Аммиак NH3, мг/л
	Nitrite     float64   // Нитриты NO2, мг/л
	Nitrate     float64   // Нитраты NO3, мг/л
	MeasuredAt  time.Time // Время измерения
}

// DummyWaterParameters используется для приёма измерения из JSON-запроса.
type DummyWaterParameters struct {
	PH          float64 `json:"ph" validate:"required,gte=0,lte=14"`
	Temperature float64 `json:"temperature" validate:"required,gte=0,lte=40"`
	Ammonia     float64 `json:"ammonia" validate:"gte=0"`
	Nitrite     float64 `json:"nitrite" validate:"gte=0"`
	Nitrate     float64 `json:"nitrate" validate:"gte=0"`
}
