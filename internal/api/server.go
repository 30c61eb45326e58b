package api

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/p-blackswan/focusdeck/internal/dashboard"
	"github.com/p-blackswan/focusdeck/internal/health"
	"github.com/p-blackswan/focusdeck/internal/metrics"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	AuthConfig  AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
	TLSCert     string
	TLSKey      string
}

// Server is the focusdeck API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(
	cfg ServerConfig,
	svc *dashboard.Service,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	handlers := NewHandlers(svc, checker, m, logger)

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "api_server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, m, logger)
	s.setupRoutes(handlers, m)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, m *metrics.Metrics, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: func() string { return uuid.New().String() },
	}))

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimiter(cfg.RateLimit).Middleware())
	}

	s.app.Use(NewAuthMiddleware(cfg.AuthConfig, logger))

	// Audit middleware (log + count every request)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		if m != nil {
			m.RecordRequest(c.Method(), strconv.Itoa(c.Response().StatusCode()))
			m.RequestDuration.WithLabelValues(c.Method()).Observe(time.Since(start).Seconds())
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", c.Response().StatusCode()).
			Str("request_id", reqIDLocal(c)).
			Msg("api request")

		return err
	})
}

func reqIDLocal(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}

func (s *Server) setupRoutes(h *Handlers, m *metrics.Metrics) {
	// Probe endpoints stay open; the auth middleware skips them.
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	if m != nil {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(m.Handler())
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	v1 := s.app.Group("/api/v1")

	// Projects, lifecycle, ledger
	v1.Get("/projects", h.ListProjects)
	v1.Get("/projects/:id", h.GetProject)
	v1.Get("/projects/:id/lock", h.GetLock)
	v1.Post("/projects/:id/stage", requireRole(RoleEditor), h.ChangeStage)
	v1.Patch("/projects/:id/state", requireRole(RoleEditor), h.UpdateState)
	v1.Patch("/projects/:id/ledger", requireRole(RoleEditor), h.UpdateLedger)

	// Tasks
	v1.Get("/projects/:id/tasks", h.ListTasks)
	v1.Post("/projects/:id/tasks", requireRole(RoleEditor), h.CreateTask)
	v1.Patch("/tasks/:id", requireRole(RoleEditor), h.UpdateTask)
	v1.Delete("/tasks/:id", requireRole(RoleEditor), h.DeleteTask)
	v1.Post("/tasks/focus-prune", requireRole(RoleEditor), h.FocusPrune)

	// Logs
	v1.Get("/projects/:id/logs", h.ListLogs)
	v1.Post("/projects/:id/logs", requireRole(RoleEditor), h.CreateLog)
	v1.Get("/logs/heatmap", h.Heatmap)
	v1.Get("/logs/streak", h.Streak)

	// Milestones
	v1.Get("/projects/:id/milestones", h.ListMilestones)
	v1.Post("/projects/:id/milestones", requireRole(RoleEditor), h.CreateMilestone)
	v1.Patch("/milestones/:id", requireRole(RoleEditor), h.ToggleMilestone)
	v1.Delete("/milestones/:id", requireRole(RoleEditor), h.DeleteMilestone)

	// Settings, brief, work mode
	v1.Get("/settings", h.GetSettings)
	v1.Put("/settings", requireRole(RoleEditor), h.PutSettings)
	v1.Get("/brief", h.GetBrief)
	v1.Post("/brief", requireRole(RoleEditor), h.GenerateBrief)
	v1.Get("/workmode/outputs", h.ListWorkModeOutputs)
	v1.Post("/workmode", requireRole(RoleEditor), h.GenerateWorkMode)

	// Snapshot
	v1.Get("/export", h.Export)
	v1.Post("/import", requireRole(RoleAdmin), h.Import)

	// Outreach dry-run stubs: stateless, no side effects, independent of
	// the lifecycle engine.
	v1.Post("/outreach/drafts", h.OutreachDrafts)
	v1.Post("/outreach/send", h.OutreachSend)
	v1.Get("/outreach/batch", h.OutreachBatch)
	v1.Post("/outreach/batch", h.OutreachBatch)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8450"
	}

	s.logger.Info().Str("addr", addr).Msg("api server starting")

	if s.config.TLSCert != "" && s.config.TLSKey != "" {
		return s.app.ListenTLS(addr, s.config.TLSCert, s.config.TLSKey)
	}
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}
