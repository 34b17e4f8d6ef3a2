// Package metrics описывает счётчики Prometheus приложения.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebhookEvents считает обработанные webhook-события по типу и результату.
// Результат: processed, duplicate, failed, ignored.
var WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aquatrack",
	Name:      "webhook_events_total",
	Help:      "Processed billing webhook events by type and outcome.",
}, []string{"event_type", "outcome"})

// EntitlementDenials считает отказы по лимитам тарифов.
// Причина: tier_unavailable, daily_limit, tank_limit.
var EntitlementDenials = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aquatrack",
	Name:      "entitlement_denials_total",
	Help:      "Feature usage denials by feature and reason.",
}, []string{"feature", "reason"})
