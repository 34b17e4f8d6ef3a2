package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// IncrementUsageIfBelow атомарно инкрементирует суточный счётчик функции,
// если текущее значение меньше лимита. Проверка и инкремент выполняются
// одним условным upsert на стороне базы: два конкурентных запроса не могут
// оба пройти через последний оставшийся слот лимита.
//
// Возвращает значение счётчика после инкремента и признак allowed.
// При исчерпанном лимите счётчик не меняется и возвращается его
// текущее значение.
func (s *Storage) IncrementUsageIfBelow(ctx context.Context, userUID string, feature models.Feature, limit int) (int, bool, error) {
	const op = "storage.IncrementUsageIfBelow"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO usage_counters (user_uid, day, feature, message_count)
			  VALUES ($1, (now() AT TIME ZONE 'utc')::date, $2, 1)
			  ON CONFLICT (user_uid, day, feature)
			  DO UPDATE SET message_count = usage_counters.message_count + 1
			  WHERE usage_counters.message_count < $3
			  RETURNING message_count`
	var count int
	err := s.DB.QueryRowContext(ctx, query, userUID, feature, limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		// Условие WHERE не прошло: лимит исчерпан, строка не изменилась.
		current, err := s.GetUsageCount(ctx, userUID, feature)
		if err != nil {
			return 0, false, fmt.Errorf("%s: %w", op, err)
		}
		return current, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return count, true, nil
}

// GetUsageCount возвращает значение суточного счётчика функции за сегодня.
// Отсутствие строки означает, что функция сегодня ещё не использовалась.
func (s *Storage) GetUsageCount(ctx context.Context, userUID string, feature models.Feature) (int, error) {
	const op = "storage.GetUsageCount"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT message_count FROM usage_counters
			  WHERE user_uid = $1 AND day = (now() AT TIME ZONE 'utc')::date AND feature = $2`
	var count int
	err := s.DB.QueryRowContext(ctx, query, userUID, feature).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// AddTokenUsage добавляет использованные токены LLM в сегодняшний счётчик.
func (s *Storage) AddTokenUsage(ctx context.Context, userUID string, feature models.Feature, inputTokens, outputTokens int) error {
	const op = "storage.AddTokenUsage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_counters
			  SET input_tokens = input_tokens + $1, output_tokens = output_tokens + $2
			  WHERE user_uid = $3 AND day = (now() AT TIME ZONE 'utc')::date AND feature = $4`
	if _, err := s.DB.ExecContext(ctx, query, inputTokens, outputTokens, userUID, feature); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
