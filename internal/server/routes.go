package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/observability"
	"github.com/tutorlink/tutorlink/internal/server/handlers"
)

const (
	adminSignalRate  = 10
	adminSignalBurst = 5
)

func (s *Server) registerRoutes(opts Options) {
	r := s.router

	r.Get("/", handlers.RootHandler(opts.Build))
	r.Get("/version", handlers.VersionHandler(opts.Build))

	r.Get("/health", s.health.HealthHandler)
	r.Get("/health/live", s.health.LivenessHandler)
	r.Get("/health/ready", s.health.ReadinessHandler)
	r.Get("/health/startup", s.health.StartupHandler)

	if opts.MetricsEnabled {
		r.Get("/metrics", MetricsHandler)
	}

	if opts.Learning != nil {
		h := handlers.NewLearning(opts.Learning)
		r.Route("/api", func(r chi.Router) {
			r.Post("/grade/submission", h.Grade())
			r.Post("/learning/explanation", h.Explain())
			r.Post("/learning/summary", h.Summarize())
			r.Post("/quiz/generate", h.Quiz())
			r.Post("/tutor/chat", h.Chat())
			r.Post("/tutor/session/{sessionID}", h.StartSession)
			r.Post("/teacher/lesson-plan", h.LessonPlan())
			r.Post("/teacher/resources", h.Resources())
			r.Post("/analytics/performance", h.Performance())
			r.Post("/analytics/learning-path", h.LearningPath())
			r.Post("/study/flashcards", h.Flashcards())
			r.Post("/study/guide", h.StudyGuide())
			r.Post("/batch/process", h.Batch)
		})
	}

	s.registerAdminEndpoint(opts.Config.AdminToken)
}

// registerAdminEndpoint exposes gofulmen's signal handler behind a bearer
// token. Without a token the route does not exist.
func (s *Server) registerAdminEndpoint(token string) {
	logger := observability.ServerLogger
	if token == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token configured)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: adminSignalRate,
		RateBurst: adminSignalBurst,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Warn("Admin signal endpoint enabled; keep this server off the public internet",
			zap.String("path", "/admin/signal"),
			zap.Int("rate_limit_per_min", adminSignalRate),
			zap.Int("burst", adminSignalBurst))
	}
}
