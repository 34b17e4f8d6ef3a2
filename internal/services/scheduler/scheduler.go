// Package services содержит планировщик напоминаний об обслуживании.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	"github.com/marlinkeeper/aquatrack/internal/models"
	"github.com/marlinkeeper/aquatrack/internal/rabbitmq"
)

// MaintenanceRepository ищет задачи, о которых пора напомнить.
type MaintenanceRepository interface {
	FindTasksDueTomorrow(ctx context.Context) ([]*models.ReminderInfo, error)
}

// SchedulerService раз в сутки публикует напоминания о задачах
// обслуживания со сроком на завтра.
type SchedulerService struct {
	repo    MaintenanceRepository
	log     *slog.Logger
	publish func(ch *amqp.Channel, exchange, routingKey string, message any) error
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo MaintenanceRepository, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:    repo,
		log:     log,
		publish: rabbitmq.PublishMessage,
	}
}

// Run запускает цикл планировщика: первый проход сразу, затем раз в сутки.
// Блокируется до отмены контекста.
func (s *SchedulerService) Run(ctx context.Context, channel *amqp.Channel) {
	s.runFindTasksDueTomorrow(ctx, channel)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFindTasksDueTomorrow(ctx, channel)
		}
	}
}

func (s *SchedulerService) runFindTasksDueTomorrow(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting service to find maintenance tasks due tomorrow")
	reminders, err := s.repo.FindTasksDueTomorrow(ctx)
	if err != nil {
		s.log.Error("failed to find tasks", sl.Err(err))
		return
	}
	if len(reminders) == 0 {
		s.log.Info("no upcoming maintenance tasks found")
		return
	}
	s.log.Info("found upcoming maintenance tasks", "count", len(reminders))
	for _, reminder := range reminders {
		err = s.publish(channel, rabbitmq.ReminderExchange, "maintenance", reminder)
		if err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
