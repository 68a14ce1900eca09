// Package webserver provides the web frontend HTTP server implementation
package webserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/application/cookbook"
	"github.com/pantrypilot/web/internal/application/generate"
	"github.com/pantrypilot/web/internal/application/search"
	"github.com/pantrypilot/web/internal/application/share"
	"github.com/pantrypilot/web/internal/application/status"
	appuser "github.com/pantrypilot/web/internal/application/user"
	"github.com/pantrypilot/web/internal/infrastructure/apiclient"
	"github.com/pantrypilot/web/internal/infrastructure/cache"
	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/infrastructure/hotreload"
	"github.com/pantrypilot/web/internal/infrastructure/http/middleware"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
	"github.com/pantrypilot/web/internal/infrastructure/performance"
	"github.com/pantrypilot/web/internal/infrastructure/security"
	"github.com/pantrypilot/web/internal/infrastructure/session"
	"github.com/pantrypilot/web/pkg/healthcheck"
)

// Services bundles the application services the handlers call
type Services struct {
	Users    *appuser.UserService
	Generate *generate.Service
	Cookbook *cookbook.Service
	Search   *search.Service
	Shares   *share.Guard
	Status   *status.Monitor
	Queries  *cache.QueryClient
}

// WebServer represents the web frontend HTTP server
type WebServer struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	router   *chi.Mux
	api      *apiclient.Client
	sessions *session.Store
	services Services
	renderer *Renderer
	health   *healthcheck.HealthCheck
	limiter  *security.RateLimiter
	csrf     *security.CSRF
	metrics  *monitoring.MetricsCollector
	watcher  *hotreload.Watcher
	stop     context.CancelFunc
}

// NewWebServer creates a new web frontend server instance. limiter and
// metrics may be nil.
func NewWebServer(
	cfg *config.Config,
	log *zap.Logger,
	api *apiclient.Client,
	sessions *session.Store,
	services Services,
	health *healthcheck.HealthCheck,
	limiter *security.RateLimiter,
	metrics *monitoring.MetricsCollector,
) (*WebServer, error) {
	s := &WebServer{
		config:   cfg,
		logger:   log.Named("webserver"),
		api:      api,
		sessions: sessions,
		services: services,
		health:   health,
		limiter:  limiter,
		metrics:  metrics,
	}

	secret := cfg.Session.Secret
	if secret == "" {
		generated, err := gonanoid.New(48)
		if err != nil {
			return nil, fmt.Errorf("failed to generate csrf secret: %w", err)
		}
		s.logger.Warn("session.secret not set, CSRF tokens will not survive restarts")
		secret = generated
	}
	s.csrf = security.NewCSRF(secret)

	templates := EmbeddedTemplates()
	if dir := cfg.Server.TemplatesDir; dir != "" {
		templates = os.DirFS(dir)
	}
	renderer, err := NewRenderer(templates, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.renderer = renderer

	if dir := cfg.Server.TemplatesDir; dir != "" {
		watcher, err := hotreload.NewWatcher(s.logger, s.reloadTemplates, ".html")
		if err != nil {
			return nil, err
		}
		if err := watcher.AddWatchPath(dir); err != nil {
			return nil, fmt.Errorf("failed to watch templates: %w", err)
		}
		s.watcher = watcher
	}

	api.SetUnauthorizedHandler(s.onUnauthorized)

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      otelhttp.NewHandler(s.router, "pantrypilot-web"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures the web frontend routes
func (s *WebServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()
	healthPath, readyPath := s.config.HealthPaths()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger, healthPath, readyPath, "/live", "/metrics"))
	r.Use(middleware.Recovery(s.logger, s.renderPanic))
	r.Use(security.Headers(s.config.Session.Secure))
	if s.config.Server.EnableCompression {
		r.Use(performance.NewCompressionMiddleware(performance.DefaultCompressionConfig()).Handler)
	}
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}

	// Health check endpoints
	r.Get(healthPath, s.health.Handler())
	r.Get(readyPath, s.health.ReadinessHandler())
	r.Get("/live", s.health.LivenessHandler())
	if s.metrics != nil && s.config.Monitoring.EnableMetrics {
		r.Handle("/metrics", s.metrics.Handler())
	}

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		if s.limiter != nil && s.config.RateLimit.Enable {
			r.Use(s.limiter.Middleware)
		}
		r.Use(s.sessionMiddleware)
		r.Use(s.unauthorizedGate)
		r.Use(s.csrfMiddleware)

		// Public pages
		r.Get("/", s.handleHome)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/register", s.handleRegisterPage)
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)
		r.Get("/search", s.handleSearchPage)
		r.Get("/recipes/{id}", s.handleRecipePage)
		r.Get("/r/{shareId}", s.handleSharedRecipe)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/profile", s.handleProfile)
			r.Post("/profile/name", s.handleUpdateName)
			r.Post("/profile/password", s.handleChangePassword)
		})

		// HTMX endpoints (partial templates)
		r.Route("/htmx", func(r chi.Router) {
			r.Get("/status", s.handleHTMXStatus)
			r.Get("/notifications", s.handleHTMXNotifications)
			r.Get("/search", s.handleHTMXSearch)
			r.Get("/recipes/{id}/feedback", s.handleHTMXFeedbackModal)
			r.Post("/share/copied", s.handleHTMXShareCopied)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/generate", s.handleHTMXGenerate)
				r.Post("/generate/tags", s.handleHTMXAddTag)
				r.Delete("/generate/tags", s.handleHTMXRemoveTag)
				r.Post("/generate/options", s.handleHTMXGenerateOptions)
				r.Get("/alternatives", s.handleHTMXAlternatives)
				r.Get("/cookbook", s.handleHTMXCookbook)
				r.Post("/cookbook/{id}/toggle", s.handleHTMXCookbookToggle)
				r.Post("/recipes/{id}/feedback", s.handleHTMXSubmitFeedback)
				r.Get("/recipes/{id}/share", s.handleHTMXShareOpen)
				r.Get("/recipes/{id}/share/{openID}", s.handleHTMXShareLink)
				r.Post("/onboarding/dismiss", s.handleHTMXDismissOnboarding)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
	})

	return r
}

// Handler returns the instrumented root handler
func (s *WebServer) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the web frontend HTTP server
func (s *WebServer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	if s.watcher != nil {
		go s.watcher.Run(ctx)
	}

	s.logger.Info("Starting Web Frontend server",
		zap.String("address", s.server.Addr),
		zap.String("api", s.api.BaseURL()),
		zap.Bool("template_reload", s.watcher != nil),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the web server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down Web Frontend server...")
	if s.stop != nil {
		s.stop()
	}
	return s.server.Shutdown(ctx)
}

// reloadTemplates is called by the template watcher
func (s *WebServer) reloadTemplates(path string) {
	if err := s.renderer.Reload(); err != nil {
		s.logger.Error("Template reload failed", zap.String("path", path), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RenderError("reload")
		}
		return
	}
	s.logger.Info("Templates reloaded", zap.String("path", path))
}
