package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cloudrep/voicedesk/internal/service"
	"github.com/cloudrep/voicedesk/pkg/health"
	"github.com/cloudrep/voicedesk/pkg/middleware"
)

// RouterConfig bundles the dependencies needed to build the HTTP router.
type RouterConfig struct {
	Users     *service.UserService
	Agents    *service.AgentService
	Phones    *service.PhoneNumberService
	Calls     *service.CallService
	Webhooks  *service.WebhookService
	Analytics *service.AnalyticsService

	Reconciler *service.Reconciler

	TokenValidator middleware.TokenValidator
	WebhookSecret  string

	Health *health.Handler

	// Redis backs the webhook rate limiter. When nil the limiter is skipped.
	Redis     *redis.Client
	RateLimit middleware.RateLimitConfig

	CORS middleware.CORSConfig

	// PprofCIDRs enables /debug/pprof endpoints for the given source
	// networks. Empty disables profiling entirely.
	PprofCIDRs []string

	Logger *slog.Logger
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("voicedesk"))
	r.Use(middleware.Tracing("voicedesk"))
	r.Use(middleware.RequestLogger(cfg.Logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)
	}

	userHandler := NewUserHandler(cfg.Users, cfg.Logger)
	agentHandler := NewAgentHandler(cfg.Agents, cfg.Calls, cfg.Logger)
	phoneHandler := NewPhoneNumberHandler(cfg.Phones, cfg.Logger)
	callHandler := NewCallHandler(cfg.Calls, cfg.Reconciler, cfg.Logger)
	webhookHandler := NewWebhookHandler(cfg.Webhooks, cfg.Logger)
	analyticsHandler := NewAnalyticsHandler(cfg.Analytics, cfg.Logger)

	// Provider webhook. Authenticated by shared secret, not by user token,
	// and rate limited since the endpoint is reachable from the internet.
	r.Route("/webhook", func(r chi.Router) {
		if cfg.Redis != nil {
			r.Use(middleware.RateLimit(cfg.Redis, cfg.RateLimit, cfg.Logger))
		}
		r.Use(WebhookSecret(cfg.WebhookSecret))
		r.Post("/vapi", webhookHandler.Receive)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(ContentTypeJSON).Post("/register", userHandler.Register)
		r.With(ContentTypeJSON).Post("/login", userHandler.Login)

		r.With(middleware.Auth(cfg.TokenValidator)).Get("/me", userHandler.Me)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.TokenValidator))

		r.Route("/agents", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/", agentHandler.CreateAgent)
			r.Get("/", agentHandler.ListAgents)

			// Fixed segment before /{id} to avoid route conflicts. The
			// voice catalogue is static, so clients may cache it.
			r.With(middleware.CacheControl(3600)).Get("/voice-options", agentHandler.VoiceOptions)

			r.Get("/{id}", agentHandler.GetAgent)
			r.Put("/{id}", agentHandler.UpdateAgent)
			r.Delete("/{id}", agentHandler.DeleteAgent)
			r.Post("/{id}/test", agentHandler.TestAgent)
		})

		r.Route("/phone-numbers", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/", phoneHandler.CreatePhoneNumber)
			r.Get("/", phoneHandler.ListPhoneNumbers)
			r.Get("/{id}", phoneHandler.GetPhoneNumber)
			r.Put("/{id}", phoneHandler.UpdatePhoneNumber)
			r.Delete("/{id}", phoneHandler.DeletePhoneNumber)
			r.Post("/{id}/test", phoneHandler.TestPhoneNumber)
		})

		r.Route("/calls", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/", callHandler.CreateCall)
			r.Get("/", callHandler.ListCalls)

			// Fixed segments before /{id} to avoid route conflicts.
			r.Get("/active", callHandler.ActiveCalls)
			r.Get("/missed", callHandler.MissedCalls)
			r.Get("/recordings", callHandler.Recordings)
			r.Get("/queues", callHandler.QueuedCalls)
			r.Get("/vapi/{remoteID}", callHandler.CallByRemoteID)

			r.Get("/{id}", callHandler.GetCall)
			r.Post("/{id}/end", callHandler.EndCall)
			r.Get("/{id}/transcript", callHandler.Transcript)
			r.Get("/{id}/recording", callHandler.Recording)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", analyticsHandler.Dashboard)
			r.Get("/calls", analyticsHandler.Calls)
		})
	})

	return r
}
