package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulsecli/internal/config"
	apierrors "pulsecli/internal/errors"
	"pulsecli/internal/infrastructure"
	customMiddleware "pulsecli/internal/middleware"
	"pulsecli/internal/services"
	"pulsecli/internal/store"
	transport "pulsecli/internal/transport/http"
)

// Application wires configuration, services, handlers and the HTTP
// server together.
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger
	Router chi.Router
	Server *http.Server

	Store           *store.Store
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
	ErrorHandler    *apierrors.ErrorHandler

	// FrontendFS serves the embedded upload page. Nil disables the
	// frontend routes.
	FrontendFS fs.FS
}

// NewApplication loads configuration from file and environment and
// builds a fully wired application.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("resolving paths: %w", err)
	}

	return NewApplicationWith(cfg, paths, logger, frontendFS)
}

// NewApplicationWith builds the application from preconstructed
// dependencies.
func NewApplicationWith(cfg *config.Config, paths *config.Paths, logger *slog.Logger, frontendFS fs.FS) (*Application, error) {
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("creating directories: %w", err)
	}

	a := &Application{
		Config:     cfg,
		Paths:      paths,
		Logger:     logger,
		Store:      store.New(paths.DatabaseFile),
		FrontendFS: frontendFS,
	}

	a.ErrorHandler = apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug")
	a.AnalysisService = services.NewAnalysisService(cfg, paths, a.Store, logger)
	a.HealthService = services.NewHealthService(config.AppVersion, paths, a.Store, logger)

	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// Registered before any Route or Mount so subrouters inherit the
	// problem-details handlers.
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// Metrics endpoint stays outside the middleware group.
	r.Handle(config.MetricsEndpoint, promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Metrics)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.corsConfig()))

		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		a.setupAPIRoutes(r)
		a.setupFrontendRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	analysisHandler := transport.NewAnalysisHandler(
		a.AnalysisService,
		a.Config.Analysis.MaxUploadBytes,
		a.Logger,
		a.ErrorHandler,
	)
	healthHandler := transport.NewHealthHandler(a.HealthService, a.Logger)
	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(validation.ValidateRequest)

		r.Mount("/", analysisHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
	})
}

// setupFrontendRoutes serves the embedded upload page and its assets.
func (a *Application) setupFrontendRoutes(r chi.Router) {
	if a.FrontendFS == nil {
		return
	}

	fileServer := http.FileServer(http.FS(a.FrontendFS))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		req.URL.Path = "/"
		fileServer.ServeHTTP(w, req)
	})
	r.Get("/static/*", fileServer.ServeHTTP)
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		ExposedHeaders: []string{"X-Run-ID", "Content-Disposition"},
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the HTTP server. A listen failure cancels the supplied
// context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Paths.LogPathResolution()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.Store.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "error closing run store", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
