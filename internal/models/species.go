package models

// Species представляет вид из справочника обитателей аквариума.
// Справочник только для чтения, наполняется миграциями.
type Species struct {
	ID             int    `json:"id"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
	WaterType      string `json:"water_type"`      // freshwater или saltwater
	MinTankLiters  int    `json:"min_tank_liters"` // Минимальный объём аквариума
	Temperament    string `json:"temperament"`     // peaceful, semi-aggressive, aggressive
	Description    string `json:"description"`
}
