package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marlinkeeper/aquatrack/internal/models"
	"github.com/marlinkeeper/aquatrack/internal/services/entitlement"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateTankIfBelowLimit(ctx context.Context, tank models.Tank, limit int) (int, error) {
	args := m.Called(ctx, tank, limit)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) ReadTank(ctx context.Context, id int) (*models.Tank, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tank), args.Error(1)
}
func (m *RepoMock) ListTanks(ctx context.Context, userUID string) ([]*models.Tank, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tank), args.Error(1)
}
func (m *RepoMock) UpdateTank(ctx context.Context, tank models.Tank, id int) (int, error) {
	args := m.Called(ctx, tank, id)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) SoftDeleteTank(ctx context.Context, id int) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type ParamsMock struct{ mock.Mock }

func (m *ParamsMock) GetLatestParameters(ctx context.Context, tankID int) (*models.WaterParameters, error) {
	args := m.Called(ctx, tankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaterParameters), args.Error(1)
}

type EntsMock struct{ mock.Mock }

func (m *EntsMock) CanCreateTank(ctx context.Context, userUID string) (*entitlement.Result, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entitlement.Result), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// missCache настраивает кеш на сплошные промахи.
func missCache(cache *CacheMock) {
	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cache.On("Invalidate", mock.Anything).Return(nil)
}

const uid = "4e9a1c8e-0000-0000-0000-000000000001"

func TestCreate_AllowedPassesLimitToStorage(t *testing.T) {
	repo := new(RepoMock)
	ents := new(EntsMock)
	cache := new(CacheMock)
	missCache(cache)
	ents.On("CanCreateTank", mock.Anything, uid).Return(&entitlement.Result{
		Allowed: true, CurrentCount: 2, Limit: 3, Tier: models.TierStarter,
	}, nil)
	repo.On("CreateTankIfBelowLimit", mock.Anything, mock.MatchedBy(func(tank models.Tank) bool {
		return tank.UserUID == uid && tank.Name == "Reef" && tank.WaterType == "saltwater"
	}), 3).Return(7, nil)

	svc := NewTankService(repo, new(ParamsMock), ents, cache, newNoopLogger())
	id, check, err := svc.Create(context.Background(), uid, models.DummyTank{
		Name: "Reef", VolumeLiters: 200, WaterType: "saltwater",
	})

	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.True(t, check.Allowed)
	repo.AssertExpectations(t)
}

func TestCreate_DeniedByTierDoesNotTouchStorage(t *testing.T) {
	repo := new(RepoMock)
	ents := new(EntsMock)
	ents.On("CanCreateTank", mock.Anything, uid).Return(&entitlement.Result{
		Allowed: false, CurrentCount: 1, Limit: 1, Tier: models.TierFree,
		Message: "the free plan allows up to 1 tanks, upgrade to add more",
	}, nil)

	svc := NewTankService(repo, new(ParamsMock), ents, new(CacheMock), newNoopLogger())
	id, check, err := svc.Create(context.Background(), uid, models.DummyTank{
		Name: "Second", VolumeLiters: 60, WaterType: "freshwater",
	})

	require.NoError(t, err)
	assert.Zero(t, id)
	assert.False(t, check.Allowed)
	repo.AssertNotCalled(t, "CreateTankIfBelowLimit", mock.Anything, mock.Anything, mock.Anything)
}

func TestRead_OwnershipEnforced(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	missCache(cache)
	repo.On("ReadTank", mock.Anything, 7).Return(&models.Tank{
		ID: 7, UserUID: "someone-else", Name: "Reef",
	}, nil)

	svc := NewTankService(repo, new(ParamsMock), new(EntsMock), cache, newNoopLogger())

	_, err := svc.Read(context.Background(), uid, "user", 7)
	assert.ErrorIs(t, err, ErrNotOwner)

	// администратор видит чужой аквариум
	tank, err := svc.Read(context.Background(), uid, "admin", 7)
	require.NoError(t, err)
	assert.Equal(t, "Reef", tank.Name)
}

func TestRemove_InvalidatesCache(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	missCache(cache)
	repo.On("ReadTank", mock.Anything, 7).Return(&models.Tank{ID: 7, UserUID: uid}, nil)
	repo.On("SoftDeleteTank", mock.Anything, 7).Return(1, nil)

	svc := NewTankService(repo, new(ParamsMock), new(EntsMock), cache, newNoopLogger())
	count, err := svc.Remove(context.Background(), uid, "user", 7)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	cache.AssertCalled(t, "Invalidate", "tank:7")
}

func TestHealth_ScoresLatestMeasurement(t *testing.T) {
	repo := new(RepoMock)
	params := new(ParamsMock)
	cache := new(CacheMock)
	missCache(cache)
	repo.On("ReadTank", mock.Anything, 7).Return(&models.Tank{
		ID: 7, UserUID: uid, WaterType: "freshwater",
	}, nil)
	measuredAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	params.On("GetLatestParameters", mock.Anything, 7).Return(&models.WaterParameters{
		TankID: 7, PH: 7.0, Temperature: 25, Ammonia: 0, Nitrite: 0, Nitrate: 10,
		MeasuredAt: measuredAt,
	}, nil)

	svc := NewTankService(repo, params, new(EntsMock), cache, newNoopLogger())
	report, err := svc.Health(context.Background(), uid, "user", 7)

	require.NoError(t, err)
	assert.Equal(t, 7, report.TankID)
	assert.Greater(t, report.Score, 80)
	assert.Equal(t, measuredAt, report.MeasuredAt)
}

func TestHealth_NoMeasurements(t *testing.T) {
	repo := new(RepoMock)
	params := new(ParamsMock)
	cache := new(CacheMock)
	missCache(cache)
	repo.On("ReadTank", mock.Anything, 7).Return(&models.Tank{ID: 7, UserUID: uid}, nil)
	params.On("GetLatestParameters", mock.Anything, 7).Return(nil, assert.AnError)

	svc := NewTankService(repo, params, new(EntsMock), cache, newNoopLogger())
	_, err := svc.Health(context.Background(), uid, "user", 7)
	assert.ErrorIs(t, err, ErrNoMeasurements)
}
