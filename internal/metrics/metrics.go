// Package metrics exposes the Prometheus collectors for the campus events service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_registration_attempts_total",
		Help: "Registration attempts, labelled by outcome (ok, full, duplicate, forbidden, not_found, error).",
	}, []string{"outcome"})

	RegistrationCancellations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campus_registration_cancellations_total",
		Help: "Registrations moved to cancelled.",
	})

	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campus_checkins_total",
		Help: "Registrations moved to checked_in.",
	})

	EventTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_event_transitions_total",
		Help: "Event status changes, labelled by target status.",
	}, []string{"status"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_notifications_total",
		Help: "Notifications handled by the dispatcher, labelled by outcome (enqueued, delivered, dropped, failed).",
	}, []string{"outcome"})

	NotificationQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campus_notification_queue_utilization_ratio",
		Help: "Current notification queue utilization (0-1).",
	})

	VenueCatalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_venue_catalog_reloads_total",
		Help: "Venue catalog reloads, labelled by status (ok, error).",
	}, []string{"status"})
)
