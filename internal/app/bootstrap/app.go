package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/carefront-intake/internal/api/router"
	"github.com/wolfman30/carefront-intake/internal/auth"
	"github.com/wolfman30/carefront-intake/internal/compliance"
	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/doctors"
	httpmiddleware "github.com/wolfman30/carefront-intake/internal/http/middleware"
	"github.com/wolfman30/carefront-intake/internal/intake"
	"github.com/wolfman30/carefront-intake/internal/observability/metrics"
	"github.com/wolfman30/carefront-intake/internal/report"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// App is the fully wired intake service.
type App struct {
	Handler      http.Handler
	Orchestrator *intake.Orchestrator
	Events       *EventFanout

	audit   *AuditTrail
	limiter *httpmiddleware.RateLimiter
	redis   *redis.Client
	pool    *pgxpool.Pool
	sqlDB   *sql.DB
}

// AppOptions carries the pieces the caller may already own.
type AppOptions struct {
	// AWS is nil when no AWS-backed component is configured.
	AWS *aws.Config
	// Registry defaults to a fresh prometheus registry.
	Registry *prometheus.Registry
}

// BuildApp wires every intake component from cfg.
func BuildApp(ctx context.Context, cfg *appconfig.Config, opts AppOptions, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	app := &App{}
	built := false
	defer func() {
		if !built {
			_ = app.Close(context.Background())
		}
	}()

	clients, err := BuildLLMClients(ctx, cfg, opts.AWS, logger)
	if err != nil {
		return nil, err
	}

	app.redis = BuildRedisClient(ctx, cfg, logger, true)
	if app.pool, err = ConnectPostgresPool(ctx, cfg.DatabaseURL, logger); err != nil {
		return nil, err
	}
	if cfg.AuditSink == AuditSinkPostgres {
		if app.sqlDB, err = OpenSQLDB(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	repo, err := BuildPatientRepository(cfg, StorageDeps{Pool: app.pool, Redis: app.redis, AWS: opts.AWS, Logger: logger})
	if err != nil {
		return nil, err
	}
	roster, err := BuildRoster(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.audit, err = BuildAuditTrail(cfg, app.sqlDB, opts.AWS, logger)
	if err != nil {
		return nil, err
	}
	app.Events = BuildEventFanout(cfg, app.pool, logger)

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	intakeMetrics := metrics.NewIntakeMetrics(registry)

	engineOpts := []conversation.EngineOption{conversation.WithEngineLogger(logger)}
	if cfg.MessageMaxChars > 0 {
		engineOpts = append(engineOpts, conversation.WithMaxMessageChars(cfg.MessageMaxChars))
	}
	orchOpts := []intake.Option{
		intake.WithAuditor(app.audit.Recorder),
		intake.WithPublisher(app.Events.Publisher),
		intake.WithMetrics(intakeMetrics),
		intake.WithLogger(logger),
	}
	if n := BuildNotifier(cfg, opts.AWS, logger); n != nil {
		orchOpts = append(orchOpts, intake.WithNotifier(n))
	}
	if a := BuildArchiver(ctx, cfg, opts.AWS, logger); a != nil {
		orchOpts = append(orchOpts, intake.WithArchiver(a))
	}
	app.Orchestrator = intake.NewOrchestrator(
		conversation.NewEngine(clients.Chat, engineOpts...),
		report.NewExtractor(clients.Report, logger),
		BuildSessionStore(app.redis, cfg, logger),
		repo,
		roster,
		orchOpts...,
	)

	if cfg.MessagesPerMinute > 0 {
		burst := cfg.MessageBurst
		if burst <= 0 {
			burst = 1
		}
		app.limiter = httpmiddleware.NewRateLimiter(float64(cfg.MessagesPerMinute)/60, burst)
	}

	routerCfg := &router.Config{
		Logger:             logger,
		IntakeHandler:      intake.NewHandler(app.Orchestrator, logger),
		DoctorsHandler:     doctors.NewHandler(roster, logger),
		Authenticator:      auth.NewJWTAuthenticator(cfg.AdminJWTSecret, ""),
		Auditor:            app.audit.Recorder,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MessageLimiter:     app.limiter,
	}
	if app.audit.Querier != nil {
		routerCfg.AuditHandler = compliance.NewHandler(app.audit.Querier, logger)
	}
	app.Handler = router.New(routerCfg)
	built = true
	return app, nil
}

// Close drains background work then releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Orchestrator != nil {
		errs = append(errs, a.Orchestrator.Close(ctx))
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Recorder.Close(ctx))
	}
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.sqlDB != nil {
		errs = append(errs, a.sqlDB.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
