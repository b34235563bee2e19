package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"task-manager/internal/metrics"
	"task-manager/internal/ratelimit"
	"task-manager/internal/service"
	"task-manager/internal/telemetry"
)

// Pinger reports whether the backing store is reachable.
type Pinger func(ctx context.Context) error

// Options configures the HTTP surface.
type Options struct {
	AuthRateLimit      int
	CORSAllowedOrigins string
	ServiceName        string
	// TrustedProxies may set the client address through forwarding headers.
	TrustedProxies []netip.Prefix
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	auth       *service.AuthService
	tasks      *service.TaskService
	categories *service.CategoryService
	priorities *service.PriorityService
	limiter    ratelimit.Limiter
	metrics    *metrics.Registry
	ping       Pinger
	opts       Options
	log        *slog.Logger
	started    time.Time
}

func NewServer(
	authService *service.AuthService,
	taskService *service.TaskService,
	categoryService *service.CategoryService,
	priorityService *service.PriorityService,
	limiter ratelimit.Limiter,
	registry *metrics.Registry,
	ping Pinger,
	opts Options,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 5
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "task-manager"
	}
	if limiter == nil {
		limiter = ratelimit.NewInMemory(time.Minute)
	}
	return &Server{
		auth:       authService,
		tasks:      taskService,
		categories: categoryService,
		priorities: priorityService,
		limiter:    limiter,
		metrics:    registry,
		ping:       ping,
		opts:       opts,
		log:        log,
		started:    time.Now(),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(realIPFrom(s.opts.TrustedProxies))
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors(s.opts.CORSAllowedOrigins))
	r.Use(telemetry.HTTPMiddleware(s.opts.ServiceName))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(noStore)

		authLimit := ratelimit.Middleware(s.limiter, "auth", s.opts.AuthRateLimit, ratelimit.ClientIP)

		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.With(authLimit).Post("/auth/reset-password", s.handleChangePassword)

			r.Get("/auth/session", s.handleSession)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/profile", s.handleGetProfile)
			r.Put("/auth/profile", s.handleUpdateProfile)
			r.Delete("/auth/delete", s.handleDeleteAccount)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.handleListTasks)
				r.Post("/", s.handleCreateTask)
				r.Get("/overdue", s.handleListOverdue)
				r.Get("/{id}", s.handleGetTask)
				r.Put("/{id}", s.handleUpdateTask)
				r.Delete("/{id}", s.handleDeleteTask)
				r.Patch("/{id}/complete", s.handleCompleteTask)
				r.Patch("/{id}/incomplete", s.handleIncompleteTask)
			})

			r.Get("/priorities", s.handleListPriorities)
			r.Get("/categories", s.handleListCategories)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.started).Round(time.Second).String()
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "uptime": uptime})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "uptime": uptime})
}
