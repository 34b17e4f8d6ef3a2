package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

func TestResolveFromRecords(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)
	plus := models.TierPlus

	tests := []struct {
		name string
		user *models.User
		sub  *models.Subscription
		want models.Tier
	}{
		{
			name: "admin wins over everything",
			user: &models.User{Role: "admin"},
			sub: &models.Subscription{
				Tier:   models.TierFree,
				Status: models.StatusCanceled,
			},
			want: models.TierPro,
		},
		{
			name: "override beats active subscription with different tier",
			user: &models.User{Role: "user"},
			sub: &models.Subscription{
				Tier:         models.TierStarter,
				Status:       models.StatusActive,
				TierOverride: &plus,
			},
			want: models.TierPlus,
		},
		{
			name: "override with future expiry applies",
			user: &models.User{Role: "user"},
			sub: &models.Subscription{
				Tier:              models.TierFree,
				Status:            models.StatusCanceled,
				TierOverride:      &plus,
				OverrideExpiresAt: &future,
			},
			want: models.TierPlus,
		},
		{
			name: "expired override is skipped",
			user: &models.User{Role: "user"},
			sub: &models.Subscription{
				Tier:              models.TierStarter,
				Status:            models.StatusActive,
				TierOverride:      &plus,
				OverrideExpiresAt: &past,
			},
			want: models.TierStarter,
		},
		{
			name: "trialing grants pro regardless of nominal tier",
			user: &models.User{Role: "user"},
			sub: &models.Subscription{
				Tier:        models.TierFree,
				Status:      models.StatusTrialing,
				TrialEndsAt: &future,
			},
			want: models.TierPro,
		},
		{
			name: "expired trial falls through to free",
			user: &models.User{Role: "user"},
			sub: &models.Subscription{
				Tier:        models.TierFree,
				Status:      models.StatusTrialing,
				TrialEndsAt: &past,
			},
			want: models.TierFree,
		},
		{
			name: "active subscription returns nominal tier",
			user: &models.User{Role: "user"},
			sub: &models.Subscription{
				Tier:   models.TierPlus,
				Status: models.StatusActive,
			},
			want: models.TierPlus,
		},
		{
			name: "past_due gates access even if tier field still says pro",
			user: &models.User{Role: "user"},
			sub: &models.Subscription{
				Tier:   models.TierPro,
				Status: models.StatusPastDue,
			},
			want: models.TierFree,
		},
		{
			name: "canceled subscription keeps tier history but resolves free",
			user: &models.User{Role: "user"},
			sub: &models.Subscription{
				Tier:   models.TierPro,
				Status: models.StatusCanceled,
			},
			want: models.TierFree,
		},
		{
			name: "no subscription row resolves free",
			user: &models.User{Role: "user"},
			sub:  nil,
			want: models.TierFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFromRecords(tt.user, tt.sub, now)
			assert.Equal(t, tt.want, got)
		})
	}
}
