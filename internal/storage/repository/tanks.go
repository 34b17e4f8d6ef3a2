package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// ErrTankLimitReached возвращается, когда количество активных аквариумов
// пользователя уже достигло лимита тарифа.
var ErrTankLimitReached = errors.New("tank limit reached")

// CreateTankIfBelowLimit создаёт аквариум, если число активных аквариумов
// пользователя меньше лимита. Подсчёт и вставка выполняются в одной
// транзакции под блокировкой строки подписки пользователя, чтобы два
// одновременных запроса не создали лишний аквариум.
func (s *Storage) CreateTankIfBelowLimit(ctx context.Context, tank models.Tank, limit int) (int, error) {
	const op = "storage.CreateTankIfBelowLimit"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	// Строка подписки служит мьютексом на создание аквариумов пользователя.
	var subID int
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM subscriptions WHERE user_uid = $1 FOR UPDATE`, tank.UserUID).Scan(&subID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tanks WHERE user_uid = $1 AND is_deleted = FALSE`, tank.UserUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if count >= limit {
		return 0, fmt.Errorf("%s: %w", op, ErrTankLimitReached)
	}

	var newID int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO tanks (user_uid, name, volume_liters, water_type, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		tank.UserUID, tank.Name, tank.VolumeLiters, tank.WaterType, tank.Description).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// CountActiveTanks возвращает число активных (не удалённых) аквариумов.
func (s *Storage) CountActiveTanks(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountActiveTanks"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tanks WHERE user_uid = $1 AND is_deleted = FALSE`, userUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ReadTank возвращает аквариум по ID.
func (s *Storage) ReadTank(ctx context.Context, id int) (*models.Tank, error) {
	const op = "storage.ReadTank"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, volume_liters, water_type, description, is_deleted, created_at
			  FROM tanks WHERE id = $1 AND is_deleted = FALSE`
	var tank models.Tank
	row := s.DB.QueryRowContext(ctx, query, id)
	if err := row.Scan(&tank.ID, &tank.UserUID, &tank.Name, &tank.VolumeLiters,
		&tank.WaterType, &tank.Description, &tank.IsDeleted, &tank.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &tank, nil
}

// ListTanks возвращает активные аквариумы пользователя.
func (s *Storage) ListTanks(ctx context.Context, userUID string) ([]*models.Tank, error) {
	const op = "storage.ListTanks"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, volume_liters, water_type, description, is_deleted, created_at
			  FROM tanks
			  WHERE user_uid = $1 AND is_deleted = FALSE
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Tank
	for rows.Next() {
		var tank models.Tank
		if err := rows.Scan(&tank.ID, &tank.UserUID, &tank.Name, &tank.VolumeLiters,
			&tank.WaterType, &tank.Description, &tank.IsDeleted, &tank.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &tank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateTank обновляет данные аквариума и возвращает количество
// изменённых строк.
func (s *Storage) UpdateTank(ctx context.Context, tank models.Tank, id int) (int, error) {
	const op = "storage.UpdateTank"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE tanks
			  SET name = $1, volume_liters = $2, water_type = $3, description = $4
			  WHERE id = $5 AND is_deleted = FALSE`
	result, err := s.DB.ExecContext(ctx, query,
		tank.Name, tank.VolumeLiters, tank.WaterType, tank.Description, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SoftDeleteTank помечает аквариум удалённым. Строка сохраняется,
// но перестаёт учитываться в лимите тарифа.
func (s *Storage) SoftDeleteTank(ctx context.Context, id int) (int, error) {
	const op = "storage.SoftDeleteTank"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE tanks SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
