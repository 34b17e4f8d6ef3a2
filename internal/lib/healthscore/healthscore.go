// Package healthscore вычисляет оценку здоровья аквариума 0–100 по
// последнему измерению параметров воды. Формула с фиксированными весами:
// каждый параметр оценивается по отклонению от идеального диапазона,
// итог — взвешенная сумма.
package healthscore

import "github.com/marlinkeeper/aquatrack/internal/models"

// Веса параметров в итоговой оценке. Сумма равна 1.
const (
	weightPH          = 0.20
	weightTemperature = 0.15
	weightAmmonia     = 0.30
	weightNitrite     = 0.20
	weightNitrate     = 0.15
)

// ideals задаёт идеальные диапазоны для типа воды.
type ideals struct {
	phMin, phMax     float64
	tempMin, tempMax float64
}

var idealsByWaterType = map[string]ideals{
	"freshwater": {phMin: 6.5, phMax: 7.5, tempMin: 22, tempMax: 27},
	"saltwater":  {phMin: 8.0, phMax: 8.4, tempMin: 24, tempMax: 27},
}

// Score возвращает оценку здоровья аквариума от 0 до 100.
// Неизвестный тип воды оценивается по пресноводным диапазонам.
func Score(p *models.WaterParameters, waterType string) int {
	ideal, ok := idealsByWaterType[waterType]
	if !ok {
		ideal = idealsByWaterType["freshwater"]
	}

	score := weightPH*rangeScore(p.PH, ideal.phMin, ideal.phMax, 1.0) +
		weightTemperature*rangeScore(p.Temperature, ideal.tempMin, ideal.tempMax, 3.0) +
		weightAmmonia*toxinScore(p.Ammonia, 0.25) +
		weightNitrite*toxinScore(p.Nitrite, 0.5) +
		weightNitrate*toxinScore(p.Nitrate, 40)

	return int(score*100 + 0.5)
}

// Label возвращает словесную характеристику оценки.
func Label(score int) string {
	switch {
	case score >= 85:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 50:
		return "fair"
	default:
		return "poor"
	}
}

// rangeScore даёт 1.0 внутри идеального диапазона и линейно убывает до 0
// на расстоянии tolerance от его границы.
func rangeScore(value, min, max, tolerance float64) float64 {
	if value >= min && value <= max {
		return 1.0
	}
	var dist float64
	if value < min {
		dist = min - value
	} else {
		dist = value - max
	}
	if dist >= tolerance {
		return 0
	}
	return 1.0 - dist/tolerance
}

// toxinScore даёт 1.0 при нулевой концентрации и линейно убывает до 0
// на пороге danger.
func toxinScore(value, danger float64) float64 {
	if value <= 0 {
		return 1.0
	}
	if value >= danger {
		return 0
	}
	return 1.0 - value/danger
}
