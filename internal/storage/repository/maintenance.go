package repository

import (
	"context"
	"fmt"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// CreateTask вставляет задачу обслуживания и возвращает её ID.
func (s *Storage) CreateTask(ctx context.Context, task models.MaintenanceTask) (int, error) {
	const op = "storage.CreateTask"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO maintenance_tasks (tank_id, user_uid, title, task_type, due_date)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		task.TankID, task.UserUID, task.Title, task.TaskType, task.DueDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// CountOpenTasks возвращает число невыполненных задач пользователя.
func (s *Storage) CountOpenTasks(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountOpenTasks"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_tasks WHERE user_uid = $1 AND is_done = FALSE`,
		userUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListTasks возвращает задачи пользователя, ближайшие сроки первыми.
func (s *Storage) ListTasks(ctx context.Context, userUID string, limit, offset int) ([]*models.MaintenanceTask, error) {
	const op = "storage.ListTasks"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, tank_id, user_uid, title, task_type, due_date, is_done, created_at
			  FROM maintenance_tasks
			  WHERE user_uid = $1
			  ORDER BY is_done, due_date
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.MaintenanceTask
	for rows.Next() {
		var task models.MaintenanceTask
		if err := rows.Scan(&task.ID, &task.TankID, &task.UserUID, &task.Title,
			&task.TaskType, &task.DueDate, &task.IsDone, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CompleteTask помечает задачу пользователя выполненной и возвращает
// количество изменённых строк.
func (s *Storage) CompleteTask(ctx context.Context, id int, userUID string) (int, error) {
	const op = "storage.CompleteTask"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE maintenance_tasks SET is_done = TRUE
			  WHERE id = $1 AND user_uid = $2 AND is_done = FALSE`
	result, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindTasksDueTomorrow возвращает информацию о задачах, срок которых
// наступает завтра. Используется планировщиком напоминаний.
func (s *Storage) FindTasksDueTomorrow(ctx context.Context) ([]*models.ReminderInfo, error) {
	const op = "storage.FindTasksDueTomorrow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, u.username, t.name, m.title, m.task_type, m.due_date
			  FROM maintenance_tasks m
			  JOIN users u ON u.uid = m.user_uid
			  JOIN tanks t ON t.id = m.tank_id
			  WHERE m.is_done = FALSE
			    AND m.due_date = (now() AT TIME ZONE 'utc')::date + 1`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.ReminderInfo
	for rows.Next() {
		var info models.ReminderInfo
		if err := rows.Scan(&info.Email, &info.Username, &info.TankName,
			&info.Title, &info.TaskType, &info.DueDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
