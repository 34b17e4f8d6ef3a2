package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marlinkeeper/aquatrack/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя
func (f *TestDataFactory) CreateUser(t *testing.T, userUID, username, email, passwordHash, role string) {
	_, err := f.storage.DB.Exec(`INSERT INTO users (uid, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)`,
		userUID, username, email, passwordHash, role)
	require.NoError(t, err)
}

// CreateSubscription создает тестовую подписку
func (f *TestDataFactory) CreateSubscription(t *testing.T, userUID string, tier models.Tier,
	status models.SubscriptionStatus, stripeSubscriptionID string) int {
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(user_uid, tier, status, stripe_subscription_id)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		userUID, tier, status, stripeSubscriptionID).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateTank создает тестовый аквариум
func (f *TestDataFactory) CreateTank(t *testing.T, userUID, name string, volumeLiters int, waterType string) int {
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO tanks (user_uid, name, volume_liters, water_type)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		userUID, name, volumeLiters, waterType).Scan(&id)
	require.NoError(t, err)
	return id
}

// GetTestUserData возвращает стандартные тестовые данные пользователя
func GetTestUserData() models.User {
	return models.User{
		UID:          uuid.New().String(),
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         "user",
	}
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifySubscriptionStatus проверяет статус подписки пользователя
func (v *TestVerification) VerifySubscriptionStatus(t *testing.T, userUID string, expected models.SubscriptionStatus) {
	var status string
	err := v.storage.DB.QueryRow("SELECT status FROM subscriptions WHERE user_uid = $1", userUID).
		Scan(&status)
	require.NoError(t, err)
	require.Equal(t, string(expected), status)
}

// VerifyTankCount проверяет число активных аквариумов пользователя
func (v *TestVerification) VerifyTankCount(t *testing.T, userUID string, expected int) {
	var count int
	err := v.storage.DB.QueryRow(
		"SELECT COUNT(*) FROM tanks WHERE user_uid = $1 AND is_deleted = FALSE", userUID).
		Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count)
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute)),
	)
	require.NoError(t, err, "failed to start container")

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err, "failed to get host")
	port, err := pgContainer.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err, "failed to get port")

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			err = storage.DB.Ping()
			if err == nil {
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	// Создаем таблицы
	_, err = storage.DB.Exec(`
        CREATE EXTENSION IF NOT EXISTS "pgcrypto";

        CREATE TABLE users (
            uid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            email TEXT NOT NULL,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'user',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );

        CREATE TABLE subscriptions (
            id SERIAL PRIMARY KEY,
            user_uid UUID NOT NULL UNIQUE REFERENCES users(uid),
            tier TEXT NOT NULL DEFAULT 'free',
            status TEXT NOT NULL DEFAULT 'incomplete',
            trial_ends_at TIMESTAMPTZ,
            tier_override TEXT,
            override_expires_at TIMESTAMPTZ,
            current_period_end TIMESTAMPTZ,
            cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
            stripe_customer_id TEXT,
            stripe_subscription_id TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );

        CREATE TABLE usage_counters (
            id SERIAL PRIMARY KEY,
            user_uid UUID NOT NULL REFERENCES users(uid),
            day DATE NOT NULL,
            feature TEXT NOT NULL,
            message_count INTEGER NOT NULL DEFAULT 0,
            input_tokens INTEGER NOT NULL DEFAULT 0,
            output_tokens INTEGER NOT NULL DEFAULT 0,
            UNIQUE (user_uid, day, feature)
        );

        CREATE TABLE webhook_events (
            id SERIAL PRIMARY KEY,
            event_id TEXT NOT NULL UNIQUE,
            event_type TEXT NOT NULL,
            payload JSONB,
            error TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );

        CREATE TABLE tanks (
            id SERIAL PRIMARY KEY,
            user_uid UUID NOT NULL REFERENCES users(uid),
            name TEXT NOT NULL,
            volume_liters INTEGER NOT NULL,
            water_type TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );

        CREATE TABLE water_parameters (
            id SERIAL PRIMARY KEY,
            tank_id INTEGER NOT NULL REFERENCES tanks(id),
            ph DOUBLE PRECISION NOT NULL,
            temperature DOUBLE PRECISION NOT NULL,
            ammonia DOUBLE PRECISION NOT NULL DEFAULT 0,
            nitrite DOUBLE PRECISION NOT NULL DEFAULT 0,
            nitrate DOUBLE PRECISION NOT NULL DEFAULT 0,
            measured_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );

        CREATE TABLE maintenance_tasks (
            id SERIAL PRIMARY KEY,
            tank_id INTEGER NOT NULL REFERENCES tanks(id),
            user_uid UUID NOT NULL REFERENCES users(uid),
            title TEXT NOT NULL,
            task_type TEXT NOT NULL,
            due_date DATE NOT NULL,
            is_done BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );

        CREATE TABLE species (
            id SERIAL PRIMARY KEY,
            common_name TEXT NOT NULL,
            scientific_name TEXT NOT NULL,
            water_type TEXT NOT NULL,
            min_tank_liters INTEGER NOT NULL DEFAULT 0,
            temperament TEXT NOT NULL DEFAULT 'peaceful',
            description TEXT NOT NULL DEFAULT ''
        );
    `)
	require.NoError(t, err, "failed to create tables")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
	}

	return storage, cleanup
}
