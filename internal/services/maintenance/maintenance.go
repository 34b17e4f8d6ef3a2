// Package services содержит бизнес-логику задач обслуживания аквариумов.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// ErrNotOwner возвращается при попытке завести задачу на чужой аквариум.
var ErrNotOwner = errors.New("tank belongs to another user")

// ErrTaskLimitReached возвращается, когда открытых задач уже столько,
// сколько позволяет тариф.
var ErrTaskLimitReached = errors.New("open task limit reached")

// ErrBadDueDate возвращается, если срок задачи не в формате 02-01-2006.
var ErrBadDueDate = errors.New("due date must be in 02-01-2006 format")

// ErrPastDueDate возвращается, если срок задачи уже прошёл.
var ErrPastDueDate = errors.New("due date is in the past")

// MaintenanceRepository определяет методы для работы с задачами в хранилище.
type MaintenanceRepository interface {
	// CreateTask сохраняет задачу и возвращает её ID.
	CreateTask(ctx context.Context, task models.MaintenanceTask) (int, error)
	// CountOpenTasks возвращает число невыполненных задач пользователя.
	CountOpenTasks(ctx context.Context, userUID string) (int, error)
	// ListTasks возвращает задачи пользователя с пагинацией.
	ListTasks(ctx context.Context, userUID string, limit, offset int) ([]*models.MaintenanceTask, error)
	// CompleteTask помечает задачу выполненной, только для её владельца.
	CompleteTask(ctx context.Context, id int, userUID string) (int, error)
}

// TankReader читает аквариум для проверки владельца.
type TankReader interface {
	ReadTank(ctx context.Context, id int) (*models.Tank, error)
}

// TierResolver возвращает эффективный тариф пользователя.
type TierResolver interface {
	ResolveTier(ctx context.Context, userUID string) (models.Tier, error)
}

// MaintenanceService реализует бизнес-логику задач обслуживания.
type MaintenanceService struct {
	repo  MaintenanceRepository
	tanks TankReader
	tiers TierResolver
	log   *slog.Logger
	now   func() time.Time
}

// NewMaintenanceService создает новый экземпляр MaintenanceService.
func NewMaintenanceService(repo MaintenanceRepository, tanks TankReader, tiers TierResolver, log *slog.Logger) *MaintenanceService {
	return &MaintenanceService{
		repo:  repo,
		tanks: tanks,
		tiers: tiers,
		log:   log,
		now:   time.Now,
	}
}

// Create создает задачу обслуживания. Лимит тарифа ограничивает число
// одновременно открытых задач, а не созданных за всё время: выполненные
// задачи место освобождают.
func (s *MaintenanceService) Create(ctx context.Context, userUID string, req models.DummyMaintenanceTask) (int, error) {
	dueDate, err := time.Parse("02-01-2006", req.DueDate)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadDueDate, err)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if dueDate.Before(today) {
		return 0, ErrPastDueDate
	}

	tank, err := s.tanks.ReadTank(ctx, req.TankID)
	if err != nil {
		return 0, err
	}
	if tank.UserUID != userUID {
		return 0, ErrNotOwner
	}

	tier, err := s.tiers.ResolveTier(ctx, userUID)
	if err != nil {
		return 0, err
	}
	limit := models.LimitsFor(tier).MaintenanceTasks
	open, err := s.repo.CountOpenTasks(ctx, userUID)
	if err != nil {
		return 0, err
	}
	if open >= limit {
		return 0, ErrTaskLimitReached
	}

	task := models.MaintenanceTask{
		TankID:   req.TankID,
		UserUID:  userUID,
		Title:    req.Title,
		TaskType: req.TaskType,
		DueDate:  dueDate,
	}
	id, err := s.repo.CreateTask(ctx, task)
	if err != nil {
		return 0, err
	}

	s.log.Info("created maintenance task", slog.Int("id", id), slog.Int("tank_id", req.TankID))
	return id, nil
}

// List возвращает задачи пользователя с пагинацией.
func (s *MaintenanceService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.MaintenanceTask, error) {
	return s.repo.ListTasks(ctx, userUID, limit, offset)
}

// Complete помечает задачу выполненной. Возвращает число затронутых
// строк: ноль означает, что задачи нет или она принадлежит другому
// пользователю.
func (s *MaintenanceService) Complete(ctx context.Context, userUID string, id int) (int, error) {
	return s.repo.CompleteTask(ctx, id, userUID)
}
