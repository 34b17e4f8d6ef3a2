// Package aquatrack предоставляет маршруты для основного приложения.
package aquatrack

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	assistantchat "github.com/marlinkeeper/aquatrack/internal/http/handlers/assistant/chat"
	assistantdiagnosis "github.com/marlinkeeper/aquatrack/internal/http/handlers/assistant/diagnosis"
	assistantequipment "github.com/marlinkeeper/aquatrack/internal/http/handlers/assistant/equipment"
	"github.com/marlinkeeper/aquatrack/internal/http/handlers/auth/login"
	"github.com/marlinkeeper/aquatrack/internal/http/handlers/auth/register"
	billingcheckout "github.com/marlinkeeper/aquatrack/internal/http/handlers/billing/checkout"
	billingwebhook "github.com/marlinkeeper/aquatrack/internal/http/handlers/billing/webhook"
	"github.com/marlinkeeper/aquatrack/internal/http/handlers/health"
	maintenancecomplete "github.com/marlinkeeper/aquatrack/internal/http/handlers/maintenance/complete"
	maintenancecreate "github.com/marlinkeeper/aquatrack/internal/http/handlers/maintenance/create"
	maintenancelist "github.com/marlinkeeper/aquatrack/internal/http/handlers/maintenance/list"
	parametercreate "github.com/marlinkeeper/aquatrack/internal/http/handlers/parameter/create"
	parameterlist "github.com/marlinkeeper/aquatrack/internal/http/handlers/parameter/list"
	specieslist "github.com/marlinkeeper/aquatrack/internal/http/handlers/species/list"
	speciesread "github.com/marlinkeeper/aquatrack/internal/http/handlers/species/read"
	subscriptionread "github.com/marlinkeeper/aquatrack/internal/http/handlers/subscription/read"
	tankcreate "github.com/marlinkeeper/aquatrack/internal/http/handlers/tank/create"
	tankhealth "github.com/marlinkeeper/aquatrack/internal/http/handlers/tank/health"
	tanklist "github.com/marlinkeeper/aquatrack/internal/http/handlers/tank/list"
	tankread "github.com/marlinkeeper/aquatrack/internal/http/handlers/tank/read"
	tankremove "github.com/marlinkeeper/aquatrack/internal/http/handlers/tank/remove"
	tankupdate "github.com/marlinkeeper/aquatrack/internal/http/handlers/tank/update"
	"github.com/marlinkeeper/aquatrack/internal/http/middlewarectx"
	assistantservice "github.com/marlinkeeper/aquatrack/internal/services/assistant"
	authservice "github.com/marlinkeeper/aquatrack/internal/services/auth"
	billingservice "github.com/marlinkeeper/aquatrack/internal/services/billing"
	entitlementservice "github.com/marlinkeeper/aquatrack/internal/services/entitlement"
	maintenanceservice "github.com/marlinkeeper/aquatrack/internal/services/maintenance"
	parameterservice "github.com/marlinkeeper/aquatrack/internal/services/parameter"
	speciesservice "github.com/marlinkeeper/aquatrack/internal/services/species"
	tankservice "github.com/marlinkeeper/aquatrack/internal/services/tank"
	"github.com/marlinkeeper/aquatrack/internal/storage/repository"
)

// Deps — зависимости маршрутов основного приложения.
type Deps struct {
	Logger       *slog.Logger
	DB           *repository.Storage
	Auth         *authservice.AuthService
	Entitlements *entitlementservice.Service
	Tanks        *tankservice.TankService
	Parameters   *parameterservice.ParameterService
	Maintenance  *maintenanceservice.MaintenanceService
	Species      *speciesservice.SpeciesService
	Assistant    *assistantservice.AssistantService
	Billing      *billingservice.Service
	Checkout     *billingservice.Checkout
	StripeSecret string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(d.Logger, d.Auth).ServeHTTP)
		r.Post("/login", login.New(d.Logger, d.Auth).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Auth, d.Logger))
			r.Use(middlewarectx.RateLimitMiddleware(d.Logger))

			r.Post("/tanks", tankcreate.New(d.Logger, d.Tanks).ServeHTTP)
			r.Get("/tanks", tanklist.New(d.Logger, d.Tanks).ServeHTTP)
			r.Get("/tanks/{id}", tankread.New(d.Logger, d.Tanks).ServeHTTP)
			r.Put("/tanks/{id}", tankupdate.New(d.Logger, d.Tanks).ServeHTTP)
			r.Delete("/tanks/{id}", tankremove.New(d.Logger, d.Tanks).ServeHTTP)
			r.Get("/tanks/{id}/health", tankhealth.New(d.Logger, d.Tanks).ServeHTTP)

			r.Post("/tanks/{id}/parameters", parametercreate.New(d.Logger, d.Parameters).ServeHTTP)
			r.Get("/tanks/{id}/parameters", parameterlist.New(d.Logger, d.Parameters).ServeHTTP)

			r.Post("/maintenance", maintenancecreate.New(d.Logger, d.Maintenance).ServeHTTP)
			r.Get("/maintenance", maintenancelist.New(d.Logger, d.Maintenance).ServeHTTP)
			r.Post("/maintenance/{id}/complete", maintenancecomplete.New(d.Logger, d.Maintenance).ServeHTTP)

			r.Get("/species", specieslist.New(d.Logger, d.Species).ServeHTTP)
			r.Get("/species/{id}", speciesread.New(d.Logger, d.Species).ServeHTTP)

			r.Post("/assistant/chat", assistantchat.New(d.Logger, d.Assistant).ServeHTTP)
			r.Post("/assistant/diagnosis", assistantdiagnosis.New(d.Logger, d.Assistant).ServeHTTP)
			r.Post("/assistant/equipment", assistantequipment.New(d.Logger, d.Assistant).ServeHTTP)

			r.Post("/billing/checkout", billingcheckout.New(d.Logger, d.Checkout).ServeHTTP)
			r.Get("/subscription", subscriptionread.New(d.Logger, d.DB, d.Entitlements).ServeHTTP)
		})

	})

	// Webhook endpoint (без аутентификации)
	r.Post("/api/webhooks/stripe", billingwebhook.New(d.Logger, d.Billing, d.StripeSecret).ServeHTTP)

	r.Get("/health", health.New(d.Logger, func() error {
		return repository.CheckDatabaseReady(d.DB)
	}).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
