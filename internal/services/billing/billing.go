// Package billing содержит реконсилиатор webhook-событий платёжного
// провайдера и создание checkout-сессий.
//
// Провайдер — единственный источник истины о платежах: приложение никогда
// не меняет статус подписки само, только применяет события. Доставка
// событий at-least-once, поэтому перед обработкой каждое событие
// регистрируется в журнале webhook_events, и дубликаты подтверждаются
// без повторных мутаций.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/marlinkeeper/aquatrack/internal/lib/sl"
	"github.com/marlinkeeper/aquatrack/internal/metrics"
	"github.com/marlinkeeper/aquatrack/internal/models"
)

// ErrLedger означает, что событие не удалось зарегистрировать в журнале.
// Единственный случай, когда провайдеру возвращается серверная ошибка:
// событие ещё не обработано, и повторная доставка безопасна.
var ErrLedger = errors.New("webhook ledger unavailable")

// SubscriptionRepository определяет мутации подписок, которые выполняют
// обработчики событий.
type SubscriptionRepository interface {
	GetSubscriptionByStripeID(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	AttachCheckout(ctx context.Context, userUID string, tier models.Tier,
		status models.SubscriptionStatus, customerID, subscriptionID string, trialEndsAt *time.Time) (int, error)
	MarkInvoicePaid(ctx context.Context, subscriptionID string, periodEnd time.Time) (int, error)
	SetStatusByStripeID(ctx context.Context, subscriptionID string, status models.SubscriptionStatus) (int, error)
	ApplySnapshot(ctx context.Context, subscriptionID string, upd models.SubscriptionUpdate) (int, error)
}

// EventLedger определяет журнал обработанных webhook-событий.
type EventLedger interface {
	InsertEventIfNew(ctx context.Context, event models.WebhookEvent) (bool, error)
	SetEventError(ctx context.Context, eventID, errMsg string) error
}

// Service реализует реконсилиатор биллинговых событий.
type Service struct {
	subs   SubscriptionRepository
	ledger EventLedger
	prices PriceTable
	log    *slog.Logger
	now    func() time.Time
}

// New создает новый экземпляр Service.
func New(subs SubscriptionRepository, ledger EventLedger, prices PriceTable, log *slog.Logger) *Service {
	return &Service{
		subs:   subs,
		ledger: ledger,
		prices: prices,
		log:    log,
		now:    time.Now,
	}
}

// ProcessEvent обрабатывает одно событие провайдера (подпись уже проверена
// транспортом). Протокол подтверждения:
//
//   - журнал недоступен — ErrLedger, провайдер передоставит событие;
//   - дубликат, незнакомый тип, ошибка обработчика — nil: событие
//     подтверждается, ошибка обработчика сохраняется в журнале для
//     разбора оператором, бесконечных повторов одного события нет.
func (s *Service) ProcessEvent(ctx context.Context, event stripe.Event) error {
	const op = "billing.ProcessEvent"
	eventType := string(event.Type)

	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", event.ID),
		slog.String("event_type", eventType),
	)

	inserted, err := s.ledger.InsertEventIfNew(ctx, models.WebhookEvent{
		EventID:   event.ID,
		EventType: eventType,
		Payload:   event.Data.Raw,
	})
	if err != nil {
		log.Error("failed to record webhook event", sl.Err(err))
		return fmt.Errorf("%s: %w", op, ErrLedger)
	}
	if !inserted {
		metrics.WebhookEvents.WithLabelValues(eventType, "duplicate").Inc()
		log.Info("duplicate webhook event acknowledged")
		return nil
	}

	handler, ok := s.handlerFor(event.Type)
	if !ok {
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		log.Info("unhandled webhook event type acknowledged")
		return nil
	}

	if err := handler(ctx, event); err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, "failed").Inc()
		log.Error("webhook handler failed", sl.Err(err))
		if recErr := s.ledger.SetEventError(ctx, event.ID, err.Error()); recErr != nil {
			log.Error("failed to record handler error", sl.Err(recErr))
		}
		return nil
	}

	metrics.WebhookEvents.WithLabelValues(eventType, "processed").Inc()
	log.Info("webhook event processed")
	return nil
}

func (s *Service) handlerFor(eventType stripe.EventType) (func(context.Context, stripe.Event) error, bool) {
	switch eventType {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted, true
	case "invoice.paid":
		return s.handleInvoicePaid, true
	case "invoice.payment_failed":
		return s.handleInvoicePaymentFailed, true
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated, true
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted, true
	}
	return nil, false
}

// handleCheckoutCompleted привязывает к подписке пользователя идентификаторы
// провайдера и купленный тариф. Пользователь берётся из client_reference_id,
// тариф — из метаданных сессии, заполненных при её создании.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	const op = "billing.handleCheckoutCompleted"

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if session.ClientReferenceID == "" {
		return fmt.Errorf("%s: checkout session %s has no client_reference_id", op, session.ID)
	}
	if session.Customer == nil || session.Subscription == nil {
		return fmt.Errorf("%s: checkout session %s has no customer or subscription", op, session.ID)
	}

	tier := models.Tier(session.Metadata["tier"])
	if _, ok := models.Limits[tier]; !ok {
		return fmt.Errorf("%s: checkout session %s has unknown tier %q", op, session.ID, session.Metadata["tier"])
	}

	status := models.StatusActive
	var trialEndsAt *time.Time
	if days, err := strconv.Atoi(session.Metadata["trial_days"]); err == nil && days > 0 {
		status = models.StatusTrialing
		t := s.now().UTC().AddDate(0, 0, days)
		trialEndsAt = &t
	}

	rows, err := s.subs.AttachCheckout(ctx, session.ClientReferenceID, tier, status,
		session.Customer.ID, session.Subscription.ID, trialEndsAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: no subscription row for user %s", op, session.ClientReferenceID)
	}
	return nil
}

// handleInvoicePaid активирует подписку и продлевает оплаченный период.
// Покрывает и первичную оплату, и продление, и восстановление после
// past_due.
func (s *Service) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	const op = "billing.handleInvoicePaid"

	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if invoice.Subscription == nil {
		// разовый счёт, подписки не касается
		return nil
	}

	sub, err := s.subs.GetSubscriptionByStripeID(ctx, invoice.Subscription.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !validTransition(sub.Status, models.StatusActive) {
		return fmt.Errorf("%s: transition %s -> %s is not allowed for subscription %s",
			op, sub.Status, models.StatusActive, invoice.Subscription.ID)
	}

	periodEnd := s.now().UTC()
	switch {
	case invoice.Lines != nil && len(invoice.Lines.Data) > 0 && invoice.Lines.Data[0].Period != nil:
		periodEnd = time.Unix(invoice.Lines.Data[0].Period.End, 0).UTC()
	case invoice.PeriodEnd > 0:
		periodEnd = time.Unix(invoice.PeriodEnd, 0).UTC()
	}

	if _, err := s.subs.MarkInvoicePaid(ctx, invoice.Subscription.ID, periodEnd); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// handleInvoicePaymentFailed переводит подписку в past_due. Тариф в записи
// не меняется: понижение доступа выполняет резолвер по статусу.
func (s *Service) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	const op = "billing.handleInvoicePaymentFailed"

	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if invoice.Subscription == nil {
		return nil
	}

	sub, err := s.subs.GetSubscriptionByStripeID(ctx, invoice.Subscription.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !validTransition(sub.Status, models.StatusPastDue) {
		return fmt.Errorf("%s: transition %s -> %s is not allowed for subscription %s",
			op, sub.Status, models.StatusPastDue, invoice.Subscription.ID)
	}

	if _, err := s.subs.SetStatusByStripeID(ctx, invoice.Subscription.ID, models.StatusPastDue); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// handleSubscriptionUpdated применяет канонический снимок подписки:
// тариф, статус, флаг отмены и конец периода целиком, как их видит
// провайдер. Снимок — не дельта, поэтому таблица переходов здесь не
// применяется: состояние провайдера всегда авторитетно.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	const op = "billing.handleSubscriptionUpdated"

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return fmt.Errorf("%s: subscription %s has no price item", op, sub.ID)
	}

	tier, ok := s.prices.TierFor(sub.Items.Data[0].Price.ID)
	if !ok {
		return fmt.Errorf("%s: subscription %s has unknown price %s", op, sub.ID, sub.Items.Data[0].Price.ID)
	}
	status, ok := statusFromStripe(sub.Status)
	if !ok {
		return fmt.Errorf("%s: subscription %s has unknown status %q", op, sub.ID, sub.Status)
	}

	upd := models.SubscriptionUpdate{
		Tier:              tier,
		Status:            status,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		upd.CurrentPeriodEnd = &t
	}

	rows, err := s.subs.ApplySnapshot(ctx, sub.ID, upd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: no subscription row for %s", op, sub.ID)
	}
	return nil
}

// handleSubscriptionDeleted переводит подписку в canceled. Запись и её
// тариф сохраняются как история, резолвер с этого момента отдаёт free.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	const op = "billing.handleSubscriptionDeleted"

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.subs.SetStatusByStripeID(ctx, sub.ID, models.StatusCanceled)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: no subscription row for %s", op, sub.ID)
	}
	return nil
}

// statusFromStripe сводит статусы провайдера к статусам приложения.
func statusFromStripe(status stripe.SubscriptionStatus) (models.SubscriptionStatus, bool) {
	switch status {
	case stripe.SubscriptionStatusIncomplete:
		return models.StatusIncomplete, true
	case stripe.SubscriptionStatusTrialing:
		return models.StatusTrialing, true
	case stripe.SubscriptionStatusActive:
		return models.StatusActive, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return models.StatusPastDue, true
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.StatusCanceled, true
	}
	return "", false
}
