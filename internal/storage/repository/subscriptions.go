package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// CreateSubscription вставляет запись подписки для нового пользователя
// и возвращает её ID. Вызывается один раз при регистрации.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, tier, status, trial_ends_at)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		sub.UserUID, sub.Tier, sub.Status, sub.TrialEndsAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscriptionByUserUID возвращает подписку пользователя.
func (s *Storage) GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByUserUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx, selectSubscription+` WHERE user_uid = $1`, userUID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetSubscriptionByStripeID возвращает подписку по идентификатору
// подписки у платёжного провайдера.
func (s *Storage) GetSubscriptionByStripeID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByStripeID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx, selectSubscription+` WHERE stripe_subscription_id = $1`, subscriptionID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// AttachCheckout применяет результат завершённого checkout: привязывает
// идентификаторы провайдера, устанавливает купленный тариф и статус.
func (s *Storage) AttachCheckout(ctx context.Context, userUID string, tier models.Tier,
	status models.SubscriptionStatus, customerID, subscriptionID string, trialEndsAt *time.Time) (int, error) {
	const op = "storage.AttachCheckout"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET tier = $1, status = $2, stripe_customer_id = $3,
			      stripe_subscription_id = $4, trial_ends_at = $5, updated_at = now()
			  WHERE user_uid = $6`
	result, err := s.DB.ExecContext(ctx, query,
		tier, status, customerID, subscriptionID, trialEndsAt, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// MarkInvoicePaid устанавливает статус active и продлевает оплаченный
// период подписки, найденной по идентификатору провайдера.
func (s *Storage) MarkInvoicePaid(ctx context.Context, subscriptionID string, periodEnd time.Time) (int, error) {
	const op = "storage.MarkInvoicePaid"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, current_period_end = $2, updated_at = now()
			  WHERE stripe_subscription_id = $3`
	result, err := s.DB.ExecContext(ctx, query, models.StatusActive, periodEnd, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetStatusByStripeID устанавливает статус подписки по идентификатору
// провайдера. Тариф не трогается: понижение доступа делает резолвер
// по статусу, история тарифа сохраняется.
func (s *Storage) SetStatusByStripeID(ctx context.Context, subscriptionID string, status models.SubscriptionStatus) (int, error) {
	const op = "storage.SetStatusByStripeID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, updated_at = now()
			  WHERE stripe_subscription_id = $2`
	result, err := s.DB.ExecContext(ctx, query, status, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ApplySnapshot применяет канонический снимок подписки от провайдера:
// тариф, статус, флаг отмены и конец периода, целиком.
func (s *Storage) ApplySnapshot(ctx context.Context, subscriptionID string, upd models.SubscriptionUpdate) (int, error) {
	const op = "storage.ApplySnapshot"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET tier = $1, status = $2, cancel_at_period_end = $3,
			      current_period_end = $4, updated_at = now()
			  WHERE stripe_subscription_id = $5`
	result, err := s.DB.ExecContext(ctx, query,
		upd.Tier, upd.Status, upd.CancelAtPeriodEnd, upd.CurrentPeriodEnd, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

const selectSubscription = `SELECT id, user_uid, tier, status, trial_ends_at,
			      tier_override, override_expires_at, current_period_end,
			      cancel_at_period_end, stripe_customer_id, stripe_subscription_id,
			      created_at, updated_at
			  FROM subscriptions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var trialEndsAt, overrideExpiresAt, currentPeriodEnd sql.NullTime
	var tierOverride, customerID, subscriptionID sql.NullString

	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Tier, &sub.Status, &trialEndsAt,
		&tierOverride, &overrideExpiresAt, &currentPeriodEnd,
		&sub.CancelAtPeriodEnd, &customerID, &subscriptionID,
		&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}

	if trialEndsAt.Valid {
		sub.TrialEndsAt = &trialEndsAt.Time
	}
	if tierOverride.Valid {
		override := models.Tier(tierOverride.String)
		sub.TierOverride = &override
	}
	if overrideExpiresAt.Valid {
		sub.OverrideExpiresAt = &overrideExpiresAt.Time
	}
	if currentPeriodEnd.Valid {
		sub.CurrentPeriodEnd = &currentPeriodEnd.Time
	}
	sub.StripeCustomerID = customerID.String
	sub.StripeSubscriptionID = subscriptionID.String
	return &sub, nil
}
