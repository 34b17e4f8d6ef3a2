package repository

import (
	"context"
	"fmt"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// InsertEventIfNew вставляет запись журнала webhook-событий.
// Возвращает false без ошибки, если событие с таким event_id уже
// обрабатывалось: уникальный индекс служит сигналом дубликата, отдельной
// проверки существования нет, поэтому гонка двух одновременных доставок
// одного события исключена на уровне базы.
func (s *Storage) InsertEventIfNew(ctx context.Context, event models.WebhookEvent) (bool, error) {
	const op = "storage.InsertEventIfNew"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO webhook_events (event_id, event_type, payload)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (event_id) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query, event.EventID, event.EventType, event.Payload)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// SetEventError записывает текст ошибки обработчика в журнал события.
// Ошибка сохраняется для разбора оператором, событие провайдеру
// при этом подтверждается.
func (s *Storage) SetEventError(ctx context.Context, eventID, errMsg string) error {
	const op = "storage.SetEventError"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE webhook_events SET error = $1 WHERE event_id = $2`
	if _, err := s.DB.ExecContext(ctx, query, errMsg, eventID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetEvent возвращает запись журнала по event_id.
func (s *Storage) GetEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	const op = "storage.GetEvent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, event_id, event_type, payload, COALESCE(error, ''), created_at
			  FROM webhook_events WHERE event_id = $1`
	var event models.WebhookEvent
	row := s.DB.QueryRowContext(ctx, query, eventID)
	if err := row.Scan(&event.ID, &event.EventID, &event.EventType,
		&event.Payload, &event.Error, &event.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &event, nil
}
