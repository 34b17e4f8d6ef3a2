// Package services содержит бизнес-логику для управления аквариумами.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marlinkeeper/aquatrack/internal/lib/healthscore"
	"github.com/marlinkeeper/aquatrack/internal/models"
	"github.com/marlinkeeper/aquatrack/internal/services/entitlement"
)

// ErrNotOwner возвращается при попытке работать с чужим аквариумом.
var ErrNotOwner = errors.New("tank belongs to another user")

// ErrNoMeasurements возвращается, когда у аквариума нет ни одного
// измерения и оценку здоровья считать не из чего.
var ErrNoMeasurements = errors.New("tank has no measurements")

// TankRepository определяет методы для работы с аквариумами в хранилище.
type TankRepository interface {
	// CreateTankIfBelowLimit атомарно проверяет лимит и создаёт аквариум.
	CreateTankIfBelowLimit(ctx context.Context, tank models.Tank, limit int) (int, error)
	// ReadTank возвращает аквариум по ID.
	ReadTank(ctx context.Context, id int) (*models.Tank, error)
	// ListTanks возвращает активные аквариумы пользователя.
	ListTanks(ctx context.Context, userUID string) ([]*models.Tank, error)
	// UpdateTank обновляет данные аквариума по ID.
	UpdateTank(ctx context.Context, tank models.Tank, id int) (int, error)
	// SoftDeleteTank помечает аквариум удалённым.
	SoftDeleteTank(ctx context.Context, id int) (int, error)
}

// ParameterReader читает последнее измерение параметров воды.
type ParameterReader interface {
	GetLatestParameters(ctx context.Context, tankID int) (*models.WaterParameters, error)
}

// Entitlements проверяет лимит аквариумов тарифа.
type Entitlements interface {
	CanCreateTank(ctx context.Context, userUID string) (*entitlement.Result, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// HealthReport — оценка здоровья аквариума по последнему измерению.
type HealthReport struct {
	TankID     int       `json:"tank_id"`
	Score      int       `json:"score"`
	Label      string    `json:"label"`
	MeasuredAt time.Time `json:"measured_at"`
}

// TankService реализует бизнес-логику работы с аквариумами.
type TankService struct {
	repo   TankRepository
	params ParameterReader
	ents   Entitlements
	cache  Cache
	log    *slog.Logger
}

// NewTankService создает новый экземпляр TankService.
func NewTankService(repo TankRepository, params ParameterReader, ents Entitlements, cache Cache, log *slog.Logger) *TankService {
	return &TankService{
		repo:   repo,
		params: params,
		ents:   ents,
		cache:  cache,
		log:    log,
	}
}

// Create создает аквариум, если тариф пользователя это позволяет.
// Проверка лимита двухуровневая: сначала быстрый отказ по резолверу,
// затем атомарная проверка в хранилище, закрывающая гонку параллельных
// создании.
func (s *TankService) Create(ctx context.Context, userUID string, req models.DummyTank) (int, *entitlement.Result, error) {
	check, err := s.ents.CanCreateTank(ctx, userUID)
	if err != nil {
		return 0, nil, err
	}
	if !check.Allowed {
		return 0, check, nil
	}

	tank := models.Tank{
		UserUID:      userUID,
		Name:         req.Name,
		VolumeLiters: req.VolumeLiters,
		WaterType:    req.WaterType,
		Description:  req.Description,
	}
	id, err := s.repo.CreateTankIfBelowLimit(ctx, tank, check.Limit)
	if err != nil {
		return 0, nil, err
	}

	s.log.Info("created new tank", slog.Int("id", id), slog.String("user_uid", userUID))
	return id, check, nil
}

// Read возвращает аквариум по ID, используя кеш или репозиторий.
// Чужой аквариум доступен только администратору.
func (s *TankService) Read(ctx context.Context, userUID, role string, id int) (*models.Tank, error) {
	var tank *models.Tank
	cacheKey := fmt.Sprintf("tank:%d", id)
	found, err := s.cache.Get(cacheKey, &tank)
	if err != nil {
		s.log.Warn("failed to read tank from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if !found {
		tank, err = s.repo.ReadTank(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(cacheKey, tank, time.Hour); err != nil {
			s.log.Warn("failed to cache tank", slog.String("key", cacheKey), slog.Any("err", err))
		}
	}

	if tank.UserUID != userUID && role != "admin" {
		return nil, ErrNotOwner
	}
	return tank, nil
}

// List возвращает активные аквариумы пользователя.
func (s *TankService) List(ctx context.Context, userUID string) ([]*models.Tank, error) {
	return s.repo.ListTanks(ctx, userUID)
}

// Update обновляет аквариум и инвалидирует кеш.
func (s *TankService) Update(ctx context.Context, userUID, role string, id int, req models.DummyTank) (int, error) {
	if _, err := s.Read(ctx, userUID, role, id); err != nil {
		return 0, err
	}

	tank := models.Tank{
		Name:         req.Name,
		VolumeLiters: req.VolumeLiters,
		WaterType:    req.WaterType,
		Description:  req.Description,
	}
	count, err := s.repo.UpdateTank(ctx, tank, id)
	if err != nil {
		return 0, err
	}

	cacheKey := fmt.Sprintf("tank:%d", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove tank from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return count, nil
}

// Remove помечает аквариум удалённым. Аквариум перестаёт учитываться
// в лимите тарифа, его измерения и задачи сохраняются.
func (s *TankService) Remove(ctx context.Context, userUID, role string, id int) (int, error) {
	if _, err := s.Read(ctx, userUID, role, id); err != nil {
		return 0, err
	}

	count, err := s.repo.SoftDeleteTank(ctx, id)
	if err != nil {
		return 0, err
	}

	cacheKey := fmt.Sprintf("tank:%d", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove tank from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return count, nil
}

// Health возвращает оценку здоровья аквариума по последнему измерению.
func (s *TankService) Health(ctx context.Context, userUID, role string, id int) (*HealthReport, error) {
	tank, err := s.Read(ctx, userUID, role, id)
	if err != nil {
		return nil, err
	}

	latest, err := s.params.GetLatestParameters(ctx, id)
	if err != nil {
		return nil, ErrNoMeasurements
	}

	score := healthscore.Score(latest, tank.WaterType)
	return &HealthReport{
		TankID:     id,
		Score:      score,
		Label:      healthscore.Label(score),
		MeasuredAt: latest.MeasuredAt,
	}, nil
}
