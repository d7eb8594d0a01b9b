package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	authPostgres "github.com/frahmantamala/teamspace/internal/auth/postgres"
	"github.com/frahmantamala/teamspace/internal/conversation"
	conversationPostgres "github.com/frahmantamala/teamspace/internal/conversation/postgres"
	"github.com/frahmantamala/teamspace/internal/core/events"
	"github.com/frahmantamala/teamspace/internal/directory"
	directoryPostgres "github.com/frahmantamala/teamspace/internal/directory/postgres"
	"github.com/frahmantamala/teamspace/internal/fanout"
	"github.com/frahmantamala/teamspace/internal/transport"
	"github.com/frahmantamala/teamspace/internal/transport/middleware"
	"github.com/frahmantamala/teamspace/internal/transport/rest"
	"github.com/frahmantamala/teamspace/internal/transport/swagger"
	"github.com/frahmantamala/teamspace/internal/user"
	userPostgres "github.com/frahmantamala/teamspace/internal/user/postgres"
	"github.com/frahmantamala/teamspace/pkg/logger"
	"github.com/frahmantamala/teamspace/pkg/telemetry"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	DB        *gorm.DB
	ProfileDB *sqlx.DB
	HealthDB  *sqlx.DB
	Bus       *events.EventBus
	Notifier  *fanout.Notifier
	Registry  *prometheus.Registry
	Logger    *slog.Logger
}

func startHTTPServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	lg := deps.Logger

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.Config{
		Enabled:      deps.Config.Observability.Tracing.Enabled,
		ServiceName:  deps.Config.Observability.Tracing.ServiceName,
		Endpoint:     deps.Config.Observability.Tracing.Endpoint,
		SamplingRate: deps.Config.Observability.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	router, err := NewRouter(ctx, deps)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "teamspace"),
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("starting HTTP server", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		deps.Notifier.Shutdown()
		if tErr := shutdownTracing(shutdownCtx); tErr != nil {
			lg.Warn("tracing shutdown failed", "error", tErr)
		}
		deps.close()
		return err
	})

	if err := g.Wait(); err != nil {
		lg.Error("server stopped with error", "error", err)
		return err
	}
	lg.Info("server stopped")
	return nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	gormDB, err := initGorm(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	profileDB, err := initDB(ctx, cfg.Database, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profile store: %w", err)
	}
	healthDB, err := initDB(ctx, cfg.Database, 1, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize health probe: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	notifier, err := initNotifier(cfg, registry, lg)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(lg)
	fanout.Subscribe(bus, notifier)

	return &Dependencies{
		Config:    cfg,
		DB:        gormDB,
		ProfileDB: profileDB,
		HealthDB:  healthDB,
		Bus:       bus,
		Notifier:  notifier,
		Registry:  registry,
		Logger:    lg,
	}, nil
}

func initNotifier(cfg *internal.Config, reg prometheus.Registerer, lg *slog.Logger) (*fanout.Notifier, error) {
	tr, err := fanout.NewTransport(cfg.Fanout, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fanout transport: %w", err)
	}
	if !cfg.Observability.Metrics.Enabled {
		reg = nil
	}
	return fanout.NewNotifier(tr, fanout.Options{
		MaxWorkers: cfg.Fanout.MaxWorkers,
		QueueSize:  cfg.Fanout.QueueSize,
		Timeout:    cfg.Fanout.Timeout,
	}, fanout.NewMetrics(reg), lg), nil
}

// NewRouter wires every service over deps and mounts the API.
func NewRouter(ctx context.Context, deps *Dependencies) (*chi.Mux, error) {
	if deps.DB == nil || deps.ProfileDB == nil || deps.HealthDB == nil {
		return nil, errors.New("router needs the domain, profile and health stores")
	}
	cfg := deps.Config
	lg := deps.Logger
	base := transport.NewBaseHandler(lg)

	authService := auth.NewService(
		authPostgres.NewRepository(deps.DB),
		auth.NewCredentialStore(cfg.Security.BCryptCost),
		cfg.Security.SessionTTL,
		lg,
	)
	directoryService := directory.NewService(directoryPostgres.NewRepository(deps.DB), deps.Bus, lg)
	conversationService := conversation.NewService(conversationPostgres.NewRepository(deps.DB), deps.Bus, lg)
	userService := user.NewService(userPostgres.NewRepository(deps.ProfileDB), deps.Bus, lg)

	routes := rest.Routes{
		Health:         rest.NewHealthHandler(base, deps.HealthDB),
		Auth:           auth.NewHandler(base, authService, cfg.Security.CookieName(), cfg.Security.CookieSecure),
		RBAC:           auth.NewRBACAuthorization(auth.NewPermissionChecker(), lg),
		User:           user.NewHandler(base, userService),
		Members:        directory.NewMemberHandler(base, directoryService),
		Departments:    directory.NewHandler(base, directoryService, directory.KindDepartment),
		Groups:         directory.NewHandler(base, directoryService, directory.KindGroup),
		Conversation:   conversation.NewHandler(base, conversationService),
		AllowedOrigins: cfg.Server.Origins(),
	}

	if cfg.Server.OpenAPIPath != "" {
		doc, err := swagger.LoadDocument(ctx, cfg.Server.OpenAPIPath)
		if err != nil {
			lg.Warn("openapi document unavailable, swagger disabled", "path", cfg.Server.OpenAPIPath, "error", err)
		} else {
			routes.OpenAPI = doc
		}
	}
	if cfg.Observability.Metrics.Enabled {
		routes.Metrics = middleware.NewHTTPMetrics(deps.Registry)
		routes.MetricsPath = cfg.Observability.Metrics.Path
		routes.Gatherer = deps.Registry
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, routes, lg)
	return router, nil
}

// initGorm opens the domain store. Errors are translated so unique
// violations surface as gorm.ErrDuplicatedKey, and timestamps are UTC.
func initGorm(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

// initDB opens a sqlx pool. Profile queries and the health probe each get
// their own so a busy profile pool cannot fail the probe.
func initDB(ctx context.Context, cfg internal.DatabaseConfig, maxOpen, maxIdle int) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.ConnectContext(ctx, driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}
	dbConn.SetMaxIdleConns(maxIdle)
	dbConn.SetMaxOpenConns(maxOpen)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return dbConn, nil
}

func (d *Dependencies) close() {
	if sqlDB, err := d.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
	if err := d.ProfileDB.Close(); err != nil {
		d.Logger.Error("profile database close error", "error", err)
	}
	if err := d.HealthDB.Close(); err != nil {
		d.Logger.Error("health database close error", "error", err)
	}
}
