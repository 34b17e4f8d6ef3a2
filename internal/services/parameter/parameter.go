// Package services содержит бизнес-логику для измерений параметров воды.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// ErrNotOwner возвращается при попытке писать измерения в чужой аквариум.
var ErrNotOwner = errors.New("tank belongs to another user")

// ParameterRepository определяет методы для работы с измерениями в хранилище.
type ParameterRepository interface {
	// CreateParameters сохраняет измерение и возвращает его ID.
	CreateParameters(ctx context.Context, p models.WaterParameters) (int, error)
	// ListParameters возвращает измерения аквариума с пагинацией,
	// новые первыми.
	ListParameters(ctx context.Context, tankID, limit, offset int) ([]*models.WaterParameters, error)
	// GetLatestParameters возвращает последнее измерение аквариума.
	GetLatestParameters(ctx context.Context, tankID int) (*models.WaterParameters, error)
}

// TankReader читает аквариум для проверки владельца.
type TankReader interface {
	ReadTank(ctx context.Context, id int) (*models.Tank, error)
}

// ParameterService реализует бизнес-логику измерений параметров воды.
type ParameterService struct {
	repo  ParameterRepository
	tanks TankReader
	log   *slog.Logger
	now   func() time.Time
}

// NewParameterService создает новый экземпляр ParameterService.
func NewParameterService(repo ParameterRepository, tanks TankReader, log *slog.Logger) *ParameterService {
	return &ParameterService{
		repo:  repo,
		tanks: tanks,
		log:   log,
		now:   time.Now,
	}
}

// Create сохраняет измерение параметров воды для аквариума пользователя.
func (s *ParameterService) Create(ctx context.Context, userUID, role string, tankID int, req models.DummyWaterParameters) (int, error) {
	if err := s.checkOwner(ctx, userUID, role, tankID); err != nil {
		return 0, err
	}

	p := models.WaterParameters{
		TankID:      tankID,
		PH:          req.PH,
		Temperature: req.Temperature,
		Ammonia:     req.Ammonia,
		Nitrite:     req.Nitrite,
		Nitrate:     req.Nitrate,
		MeasuredAt:  s.now().UTC(),
	}
	id, err := s.repo.CreateParameters(ctx, p)
	if err != nil {
		return 0, err
	}

	s.log.Info("recorded water parameters", slog.Int("id", id), slog.Int("tank_id", tankID))
	return id, nil
}

// List возвращает измерения аквариума с пагинацией, новые первыми.
func (s *ParameterService) List(ctx context.Context, userUID, role string, tankID, limit, offset int) ([]*models.WaterParameters, error) {
	if err := s.checkOwner(ctx, userUID, role, tankID); err != nil {
		return nil, err
	}
	return s.repo.ListParameters(ctx, tankID, limit, offset)
}

func (s *ParameterService) checkOwner(ctx context.Context, userUID, role string, tankID int) error {
	tank, err := s.tanks.ReadTank(ctx, tankID)
	if err != nil {
		return err
	}
	if tank.UserUID != userUID && role != "admin" {
		return ErrNotOwner
	}
	return nil
}
