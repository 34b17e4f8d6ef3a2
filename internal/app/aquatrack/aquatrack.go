// Package aquatrack собирает основное HTTP-приложение: хранилище,
// кэш, сервисы и маршруты.
package aquatrack

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/marlinkeeper/aquatrack/internal/cache"
	"github.com/marlinkeeper/aquatrack/internal/config"
	"github.com/marlinkeeper/aquatrack/internal/lib/jwt"
	"github.com/marlinkeeper/aquatrack/internal/migrations"
	assistantservice "github.com/marlinkeeper/aquatrack/internal/services/assistant"
	authservice "github.com/marlinkeeper/aquatrack/internal/services/auth"
	billingservice "github.com/marlinkeeper/aquatrack/internal/services/billing"
	entitlementservice "github.com/marlinkeeper/aquatrack/internal/services/entitlement"
	maintenanceservice "github.com/marlinkeeper/aquatrack/internal/services/maintenance"
	parameterservice "github.com/marlinkeeper/aquatrack/internal/services/parameter"
	speciesservice "github.com/marlinkeeper/aquatrack/internal/services/species"
	tankservice "github.com/marlinkeeper/aquatrack/internal/services/tank"
	"github.com/marlinkeeper/aquatrack/internal/storage/repository"

	"github.com/go-chi/chi"
)

// App — основное HTTP-приложение.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New инициализирует хранилище, миграции, кэш и все сервисы приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, db, jwtMaker)

	entitlements := entitlementservice.New(db, db, db, db, logger)

	tankService := tankservice.NewTankService(db, db, entitlements, cacheRedis, logger)
	parameterService := parameterservice.NewParameterService(db, db, logger)
	maintenanceService := maintenanceservice.NewMaintenanceService(db, db, entitlements, logger)
	speciesService := speciesservice.NewSpeciesService(db, cacheRedis, logger)

	llm := openai.NewClient(cfg.OpenAI.APIKey)
	assistantService := assistantservice.NewAssistantService(
		llm, entitlements, db, db, cfg.OpenAI.Model, logger)

	prices := billingservice.NewPriceTable(cfg.Stripe)
	billingSvc := billingservice.New(db, db, prices, logger)
	checkout := billingservice.NewCheckout(cfg.Stripe, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Logger:       logger,
		DB:           db,
		Auth:         authService,
		Entitlements: entitlements,
		Tanks:        tankService,
		Parameters:   parameterService,
		Maintenance:  maintenanceService,
		Species:      speciesService,
		Assistant:    assistantService,
		Billing:      billingSvc,
		Checkout:     checkout,
		StripeSecret: cfg.Stripe.WebhookSecret,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
