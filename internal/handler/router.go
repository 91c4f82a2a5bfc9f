package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Events        *service.EventService
	Registrations *service.RegistrationService
	Inbox         *service.InboxService
	Venues        VenueAdvisor
	Resolver      ActorResolver
	Logger        zerolog.Logger

	CORSOrigins        []string
	RateLimitPerMinute int    // 0 disables rate limiting
	ServiceName        string // empty disables HTTP tracing
}

// NewRouter builds the chi router with middleware and every API route.
func NewRouter(cfg RouterConfig) http.Handler {
	events := NewEventHandler(cfg.Events, cfg.Logger)
	regs := NewRegistrationHandler(cfg.Registrations, cfg.Logger)
	inbox := NewInboxHandler(cfg.Inbox, cfg.Logger)
	venues := NewVenueHandler(cfg.Venues, cfg.Logger)

	authed := Authenticate(cfg.Resolver, cfg.Logger)
	optional := OptionalAuth(cfg.Resolver, cfg.Logger)
	adminOnly := RequireRoles(model.RoleAdmin)
	planners := RequireRoles(model.RoleOrganizer, model.RoleAdmin)

	r := chi.NewRouter()

	// ── Global middleware ──────────────────────────────────────────────────────
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	if cfg.ServiceName != "" {
		r.Use(Tracing(cfg.ServiceName))
	}

	// ── Probes ─────────────────────────────────────────────────────────────────
	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// ── API ────────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			r.Use(RateLimit(cfg.RateLimitPerMinute, time.Minute))
		}

		r.Route("/events", func(r chi.Router) {
			r.With(optional).Get("/", events.ListEvents)
			r.With(optional).Get("/{id}", events.GetEvent)

			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.With(planners).Post("/", events.CreateEvent)
				r.With(planners).Put("/{id}", events.UpdateEvent)
				r.With(planners).Delete("/{id}", events.DeleteEvent)
				r.With(adminOnly).Post("/{id}/approve", events.ApproveEvent)
				r.With(adminOnly).Post("/{id}/reject", events.RejectEvent)
				r.With(adminOnly).Post("/{id}/feature", events.FeatureEvent)
				r.Post("/{id}/cancel", events.CancelEvent)

				r.Post("/{id}/register", regs.Register)
				r.Delete("/{id}/register", regs.CancelRegistration)
				r.Get("/{id}/registrations", regs.ListEventRegistrations)
			})
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Use(authed)
			r.Get("/me", regs.ListMine)
			r.With(planners).Post("/{id}/check-in", regs.CheckIn)
			r.Post("/{id}/feedback", regs.SubmitFeedback)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(authed)
			r.Get("/", inbox.List)
			r.Patch("/read-all", inbox.MarkAllRead)
			r.Patch("/{id}/read", inbox.MarkRead)
			r.Delete("/{id}", inbox.Delete)
		})

		r.With(authed).Post("/intelligence/venue", venues.Recommend)
	})

	return r
}
