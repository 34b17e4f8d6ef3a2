// Package services содержит бизнес-логику справочника видов.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// cacheTTL — время жизни кеша справочника. Справочник меняется только
// миграциями, поэтому TTL длинный.
const cacheTTL = 12 * time.Hour

// SpeciesRepository определяет чтение справочника видов из хранилища.
type SpeciesRepository interface {
	// ListSpecies возвращает виды с фильтром по типу воды и пагинацией.
	ListSpecies(ctx context.Context, waterType string, limit, offset int) ([]*models.Species, error)
	// ReadSpecies возвращает вид по ID.
	ReadSpecies(ctx context.Context, id int) (*models.Species, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// SpeciesService реализует бизнес-логику справочника видов с кешированием.
type SpeciesService struct {
	repo  SpeciesRepository
	cache Cache
	log   *slog.Logger
}

// NewSpeciesService создает новый экземпляр SpeciesService.
func NewSpeciesService(repo SpeciesRepository, cache Cache, log *slog.Logger) *SpeciesService {
	return &SpeciesService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// List возвращает виды с фильтром по типу воды, используя кеш или репозиторий.
func (s *SpeciesService) List(ctx context.Context, waterType string, limit, offset int) ([]*models.Species, error) {
	var result []*models.Species
	cacheKey := fmt.Sprintf("species:list:%s:%d:%d", waterType, limit, offset)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read species from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return result, nil
	}

	result, err = s.repo.ListSpecies(ctx, waterType, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, cacheTTL); err != nil {
		s.log.Warn("failed to cache species list", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return result, nil
}

// Read возвращает вид по ID, используя кеш или репозиторий.
func (s *SpeciesService) Read(ctx context.Context, id int) (*models.Species, error) {
	var result *models.Species
	cacheKey := fmt.Sprintf("species:%d", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read species from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return result, nil
	}

	result, err = s.repo.ReadSpecies(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, cacheTTL); err != nil {
		s.log.Warn("failed to cache species", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return result, nil
}
