package repository

import (
	"context"
	"fmt"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// ListSpecies возвращает виды из справочника, опционально по типу воды.
func (s *Storage) ListSpecies(ctx context.Context, waterType string, limit, offset int) ([]*models.Species, error) {
	const op = "storage.ListSpecies"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, common_name, scientific_name, water_type, min_tank_liters, temperament, description
			  FROM species
			  WHERE ($1 = '' OR water_type = $1)
			  ORDER BY common_name
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, waterType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Species
	for rows.Next() {
		var sp models.Species
		if err := rows.Scan(&sp.ID, &sp.CommonName, &sp.ScientificName,
			&sp.WaterType, &sp.MinTankLiters, &sp.Temperament, &sp.Description); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReadSpecies возвращает вид по ID.
func (s *Storage) ReadSpecies(ctx context.Context, id int) (*models.Species, error) {
	const op = "storage.ReadSpecies"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, common_name, scientific_name, water_type, min_tank_liters, temperament, description
			  FROM species WHERE id = $1`
	var sp models.Species
	row := s.DB.QueryRowContext(ctx, query, id)
	if err := row.Scan(&sp.ID, &sp.CommonName, &sp.ScientificName,
		&sp.WaterType, &sp.MinTankLiters, &sp.Temperament, &sp.Description); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sp, nil
}
