package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marlinkeeper/aquatrack/internal/models"
	"github.com/marlinkeeper/aquatrack/internal/rabbitmq"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) FindTasksDueTomorrow(ctx context.Context) ([]*models.ReminderInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReminderInfo), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRun_PublishesEachReminder(t *testing.T) {
	repo := new(RepoMock)
	repo.On("FindTasksDueTomorrow", mock.Anything).Return([]*models.ReminderInfo{
		{Email: "neon@example.com", Username: "neon", TankName: "Reef", Title: "Water change"},
		{Email: "coral@example.com", Username: "coral", TankName: "Nano", Title: "Filter clean"},
	}, nil)

	var published []*models.ReminderInfo
	svc := NewSchedulerService(repo, newNoopLogger())
	svc.publish = func(_ *amqp.Channel, exchange, routingKey string, message any) error {
		assert.Equal(t, rabbitmq.ReminderExchange, exchange)
		assert.Equal(t, "maintenance", routingKey)
		published = append(published, message.(*models.ReminderInfo))
		return nil
	}

	svc.runFindTasksDueTomorrow(context.Background(), nil)
	assert.Len(t, published, 2)
	assert.Equal(t, "neon@example.com", published[0].Email)
}

func TestRun_RepositoryErrorPublishesNothing(t *testing.T) {
	repo := new(RepoMock)
	repo.On("FindTasksDueTomorrow", mock.Anything).Return(nil, errors.New("connection reset"))

	calls := 0
	svc := NewSchedulerService(repo, newNoopLogger())
	svc.publish = func(_ *amqp.Channel, _, _ string, _ any) error {
		calls++
		return nil
	}

	svc.runFindTasksDueTomorrow(context.Background(), nil)
	assert.Zero(t, calls)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := new(RepoMock)
	repo.On("FindTasksDueTomorrow", mock.Anything).Return([]*models.ReminderInfo{}, nil)

	svc := NewSchedulerService(repo, newNoopLogger())
	svc.publish = func(_ *amqp.Channel, _, _ string, _ any) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}
