package repository

import (
	"context"
	"fmt"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// CreateParameters сохраняет измерение параметров воды и возвращает его ID.
func (s *Storage) CreateParameters(ctx context.Context, p models.WaterParameters) (int, error) {
	const op = "storage.CreateParameters"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO water_parameters (tank_id, ph, temperature, ammonia, nitrite, nitrate, measured_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		p.TankID, p.PH, p.Temperature, p.Ammonia, p.Nitrite, p.Nitrate, p.MeasuredAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListParameters возвращает измерения аквариума, свежие первыми.
func (s *Storage) ListParameters(ctx context.Context, tankID, limit, offset int) ([]*models.WaterParameters, error) {
	const op = "storage.ListParameters"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, tank_id, ph, temperature, ammonia, nitrite, nitrate, measured_at
			  FROM water_parameters
			  WHERE tank_id = $1
			  ORDER BY measured_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, tankID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.WaterParameters
	for rows.Next() {
		var p models.WaterParameters
		if err := rows.Scan(&p.ID, &p.TankID, &p.PH, &p.Temperature,
			&p.Ammonia, &p.Nitrite, &p.Nitrate, &p.MeasuredAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetLatestParameters возвращает последнее измерение аквариума.
func (s *Storage) GetLatestParameters(ctx context.Context, tankID int) (*models.WaterParameters, error) {
	const op = "storage.GetLatestParameters"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, tank_id, ph, temperature, ammonia, nitrite, nitrate, measured_at
			  FROM water_parameters
			  WHERE tank_id = $1
			  ORDER BY measured_at DESC
			  LIMIT 1`
	var p models.WaterParameters
	row := s.DB.QueryRowContext(ctx, query, tankID)
	if err := row.Scan(&p.ID, &p.TankID, &p.PH, &p.Temperature,
		&p.Ammonia, &p.Nitrite, &p.Nitrate, &p.MeasuredAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}
