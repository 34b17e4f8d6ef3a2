package models

// Tier представляет тариф подписки. Порядок тарифов строгий:
// free < starter < plus < pro.
type Tier string

const (
	// TierFree — бесплатный тариф, назначается по умолчанию.
	TierFree Tier = "free"
	// TierStarter — начальный платный тариф.
	TierStarter Tier = "starter"
	// TierPlus — расширенный тариф.
	TierPlus Tier = "plus"
	// TierPro — максимальный тариф.
	TierPro Tier = "pro"
)

// Feature представляет функцию с суточным лимитом использования.
type Feature string

const (
	// FeatureAIMessages — сообщения AI-консультанту.
	FeatureAIMessages Feature = "ai_messages"
	// FeaturePhotoDiagnosis — диагностика по фото.
	FeaturePhotoDiagnosis Feature = "photo_diagnosis"
	// FeatureEquipmentRecs — подбор оборудования.
	FeatureEquipmentRecs Feature = "equipment_recs"
)

// TierLimits описывает лимиты одного тарифа. Tanks и MaintenanceTasks —
// лимиты общего количества, остальные — суточные, сбрасываются в полночь
// UTC. Ноль означает, что функция на тарифе недоступна.
type TierLimits struct {
	Tanks            int
	AIMessages       int
	MaintenanceTasks int
	PhotoDiagnosis   int
	EquipmentRecs    int
}

// Limits — таблица лимитов всех тарифов. Лимиты фиксированы в коде:
// изменение таблицы — изменение продукта и проходит через релиз.
var Limits = map[Tier]TierLimits{
	TierFree:    {Tanks: 1, AIMessages: 0, MaintenanceTasks: 10, PhotoDiagnosis: 0, EquipmentRecs: 0},
	TierStarter: {Tanks: 3, AIMessages: 10, MaintenanceTasks: 30, PhotoDiagnosis: 2, EquipmentRecs: 2},
	TierPlus:    {Tanks: 10, AIMessages: 50, MaintenanceTasks: 100, PhotoDiagnosis: 10, EquipmentRecs: 10},
	TierPro:     {Tanks: 25, AIMessages: 200, MaintenanceTasks: 500, PhotoDiagnosis: 30, EquipmentRecs: 30},
}

// LimitsFor возвращает лимиты тарифа. Незнакомый тариф получает лимиты
// free: при сомнении доступ ограничивается, а не расширяется.
func LimitsFor(tier Tier) TierLimits {
	if limits, ok := Limits[tier]; ok {
		return limits
	}
	return Limits[TierFree]
}

// DailyLimit возвращает суточный лимит функции.
func (l TierLimits) DailyLimit(feature Feature) int {
	switch feature {
	case FeatureAIMessages:
		return l.AIMessages
	case FeaturePhotoDiagnosis:
		return l.PhotoDiagnosis
	case FeatureEquipmentRecs:
		return l.EquipmentRecs
	}
	return 0
}

// ValidFeature сообщает, известна ли функция.
func ValidFeature(feature Feature) bool {
	switch feature {
	case FeatureAIMessages, FeaturePhotoDiagnosis, FeatureEquipmentRecs:
		return true
	}
	return false
}
