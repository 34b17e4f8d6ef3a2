package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) GetUserByUID(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type SubsMock struct{ mock.Mock }

func (m *SubsMock) GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type UsageMock struct{ mock.Mock }

func (m *UsageMock) IncrementUsageIfBelow(ctx context.Context, userUID string, feature models.Feature, limit int) (int, bool, error) {
	args := m.Called(ctx, userUID, feature, limit)
	return args.Int(0), args.Bool(1), args.Error(2)
}
func (m *UsageMock) GetUsageCount(ctx context.Context, userUID string, feature models.Feature) (int, error) {
	args := m.Called(ctx, userUID, feature)
	return args.Int(0), args.Error(1)
}
func (m *UsageMock) AddTokenUsage(ctx context.Context, userUID string, feature models.Feature, inputTokens, outputTokens int) error {
	return m.Called(ctx, userUID, feature, inputTokens, outputTokens).Error(0)
}

type TanksMock struct{ mock.Mock }

func (m *TanksMock) CountActiveTanks(ctx context.Context, userUID string) (int, error) {
	args := m.Called(ctx, userUID)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(users *UsersMock, subs *SubsMock, usage *UsageMock, tanks *TanksMock) *Service {
	return New(users, subs, usage, tanks, newNoopLogger())
}

const uid = "4e9a1c8e-0000-0000-0000-000000000001"

func proUser() (*UsersMock, *SubsMock) {
	users := new(UsersMock)
	subs := new(SubsMock)
	users.On("GetUserByUID", mock.Anything, uid).Return(&models.User{UID: uid, Role: "user"}, nil)
	subs.On("GetSubscriptionByUserUID", mock.Anything, uid).Return(&models.Subscription{
		UserUID: uid,
		Tier:    models.TierPro,
		Status:  models.StatusActive,
	}, nil)
	return users, subs
}

func TestResolveTier_MissingSubscriptionIsFree(t *testing.T) {
	users := new(UsersMock)
	subs := new(SubsMock)
	users.On("GetUserByUID", mock.Anything, uid).Return(&models.User{UID: uid, Role: "user"}, nil)
	subs.On("GetSubscriptionByUserUID", mock.Anything, uid).Return(nil, sql.ErrNoRows)

	svc := newService(users, subs, new(UsageMock), new(TanksMock))
	tier, err := svc.ResolveTier(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, tier)
}

func TestResolveTier_ReadErrorFailsClosed(t *testing.T) {
	users := new(UsersMock)
	subs := new(SubsMock)
	users.On("GetUserByUID", mock.Anything, uid).Return(&models.User{UID: uid, Role: "user"}, nil)
	subs.On("GetSubscriptionByUserUID", mock.Anything, uid).Return(nil, errors.New("connection reset"))

	svc := newService(users, subs, new(UsageMock), new(TanksMock))
	_, err := svc.ResolveTier(context.Background(), uid)
	assert.Error(t, err)
}

func TestConsume_FeatureUnavailableOnTier(t *testing.T) {
	// free-тариф, ai_messages с лимитом 0: отказ на первой же попытке
	// с сообщением про тариф, а не про исчерпанный лимит.
	users := new(UsersMock)
	subs := new(SubsMock)
	users.On("GetUserByUID", mock.Anything, uid).Return(&models.User{UID: uid, Role: "user"}, nil)
	subs.On("GetSubscriptionByUserUID", mock.Anything, uid).Return(nil, sql.ErrNoRows)
	usage := new(UsageMock)
	usage.On("GetUsageCount", mock.Anything, uid, models.FeatureAIMessages).Return(0, nil)

	svc := newService(users, subs, usage, new(TanksMock))
	res, err := svc.Consume(context.Background(), uid, models.FeatureAIMessages)
	require.NoError(t, err)

	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Limit)
	assert.Equal(t, models.TierFree, res.Tier)
	assert.Contains(t, res.Message, "not available on the free plan")
	assert.NotContains(t, res.Message, "daily limit")
	usage.AssertNotCalled(t, "IncrementUsageIfBelow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConsume_AllowedBelowLimit(t *testing.T) {
	users, subs := proUser()
	usage := new(UsageMock)
	// 29 использований, лимит 30: тридцатый вызов проходит.
	usage.On("IncrementUsageIfBelow", mock.Anything, uid, models.FeaturePhotoDiagnosis, 30).
		Return(30, true, nil).Once()

	svc := newService(users, subs, usage, new(TanksMock))
	res, err := svc.Consume(context.Background(), uid, models.FeaturePhotoDiagnosis)
	require.NoError(t, err)

	assert.True(t, res.Allowed)
	assert.Equal(t, 30, res.CurrentCount)
	assert.Equal(t, 30, res.Limit)
	assert.Empty(t, res.Message)
}

func TestConsume_DeniedAtLimit(t *testing.T) {
	users, subs := proUser()
	usage := new(UsageMock)
	usage.On("IncrementUsageIfBelow", mock.Anything, uid, models.FeaturePhotoDiagnosis, 30).
		Return(30, false, nil).Once()

	svc := newService(users, subs, usage, new(TanksMock))
	res, err := svc.Consume(context.Background(), uid, models.FeaturePhotoDiagnosis)
	require.NoError(t, err)

	assert.False(t, res.Allowed)
	assert.Equal(t, 30, res.CurrentCount)
	assert.Contains(t, res.Message, "daily limit of 30")
	assert.Contains(t, res.Message, "midnight UTC")
}

func TestConsume_StorageErrorFailsClosed(t *testing.T) {
	users, subs := proUser()
	usage := new(UsageMock)
	usage.On("IncrementUsageIfBelow", mock.Anything, uid, models.FeatureAIMessages, 200).
		Return(0, false, errors.New("timeout")).Once()

	svc := newService(users, subs, usage, new(TanksMock))
	res, err := svc.Consume(context.Background(), uid, models.FeatureAIMessages)
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestCheckFeatureUsage_Boundaries(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		wantAllowed bool
	}{
		{name: "count below limit", count: 29, wantAllowed: true},
		{name: "count at limit", count: 30, wantAllowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, subs := proUser()
			usage := new(UsageMock)
			usage.On("GetUsageCount", mock.Anything, uid, models.FeaturePhotoDiagnosis).
				Return(tt.count, nil).Once()

			svc := newService(users, subs, usage, new(TanksMock))
			res, err := svc.CheckFeatureUsage(context.Background(), uid, models.FeaturePhotoDiagnosis)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, res.Allowed)
			assert.Equal(t, tt.count, res.CurrentCount)
		})
	}
}

func TestCanCreateTank(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		wantAllowed bool
	}{
		{name: "below tank limit", count: 24, wantAllowed: true},
		{name: "at tank limit", count: 25, wantAllowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, subs := proUser()
			tanks := new(TanksMock)
			tanks.On("CountActiveTanks", mock.Anything, uid).Return(tt.count, nil).Once()

			svc := newService(users, subs, new(UsageMock), tanks)
			res, err := svc.CanCreateTank(context.Background(), uid)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, res.Allowed)
			if !tt.wantAllowed {
				assert.Contains(t, res.Message, "up to 25 tanks")
			}
		})
	}
}

func TestResolveTier_AdminAlwaysPro(t *testing.T) {
	users := new(UsersMock)
	subs := new(SubsMock)
	users.On("GetUserByUID", mock.Anything, uid).Return(&models.User{UID: uid, Role: "admin"}, nil)
	subs.On("GetSubscriptionByUserUID", mock.Anything, uid).Return(&models.Subscription{
		UserUID: uid,
		Tier:    models.TierFree,
		Status:  models.StatusCanceled,
	}, nil)

	svc := newService(users, subs, new(UsageMock), new(TanksMock))
	tier, err := svc.ResolveTier(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, tier)
}

func TestResolveTier_TrialExpiryBoundary(t *testing.T) {
	users := new(UsersMock)
	subs := new(SubsMock)
	trialEnd := time.Now().Add(-time.Minute).UTC()
	users.On("GetUserByUID", mock.Anything, uid).Return(&models.User{UID: uid, Role: "user"}, nil)
	subs.On("GetSubscriptionByUserUID", mock.Anything, uid).Return(&models.Subscription{
		UserUID:     uid,
		Tier:        models.TierStarter,
		Status:      models.StatusTrialing,
		TrialEndsAt: &trialEnd,
	}, nil)

	svc := newService(users, subs, new(UsageMock), new(TanksMock))
	tier, err := svc.ResolveTier(context.Background(), uid)
	require.NoError(t, err)
	// Триал истёк: trialing без будущей даты проваливается к free.
	assert.Equal(t, models.TierFree, tier)
}
