package app

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/worker"
	"gorm.io/gorm"

	"github.com/hostguard/guardian-backend/internal/data/db"
	apphttp "github.com/hostguard/guardian-backend/internal/http"
	httpH "github.com/hostguard/guardian-backend/internal/http/handlers"
	httpMW "github.com/hostguard/guardian-backend/internal/http/middleware"
	"github.com/hostguard/guardian-backend/internal/modules/guardian"
	"github.com/hostguard/guardian-backend/internal/observability"
	"github.com/hostguard/guardian-backend/internal/pkg/envutil"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
	"github.com/hostguard/guardian-backend/internal/temporalx"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Guardian *guardian.Usecases
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	worker       worker.Worker
	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(cfg.Postgres, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.Migrate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	theDB := pg.DB()
	metrics.RegisterDB(log, theDB, "postgres")

	reposet := wireRepos(theDB, log)

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init clients: %w", err)
	}

	uc, err := wireGuardian(theDB, log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	server, err := wireServer(theDB, log, cfg, uc, clients, metrics)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Guardian:     uc,
		Metrics:      metrics,
		Server:       server,
		shutdownOtel: shutdownOtel,
	}
	if clients.Temporal != nil && cfg.RunWorker {
		a.worker = temporalx.NewWorker(clients.Temporal, cfg.Temporal, uc.Pipeline())
	}
	return a, nil
}

func wireGuardian(theDB *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) (*guardian.Usecases, error) {
	log.Info("Wiring guardian...")
	deps := guardian.UsecasesDeps{
		DB:            theDB,
		Log:           log,
		Users:         r.User,
		Chatbots:      r.Chatbot,
		Guests:        r.Guest,
		Conversations: r.Conversation,
		Messages:      r.Message,
		Analyses:      r.Analysis,
		Alerts:        r.Alert,
		Config:        cfg.Guardian,
	}
	if c.OpenAI != nil {
		deps.Backend = c.OpenAI
	}
	if c.SendGrid != nil {
		deps.Email = c.SendGrid
	}
	if c.Twilio != nil {
		deps.SMS = c.Twilio
	}
	if c.Locker != nil {
		deps.Locker = c.Locker
	}
	if cfg.SubscriptionGate {
		deps.Subscriptions = guardian.NewUserSubscriptionChecker(r.User)
	}
	if metrics != nil {
		deps.Metrics = observability.NewGuardianMetrics(metrics)
	}

	uc, err := guardian.New(deps)
	if err != nil {
		return nil, fmt.Errorf("init guardian: %w", err)
	}
	return uc, nil
}

func wireServer(theDB *gorm.DB, log *logger.Logger, cfg Config, uc *guardian.Usecases, c Clients, metrics *observability.Metrics) (*apphttp.Server, error) {
	log.Info("Wiring HTTP server...")
	sqlDB, err := theDB.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}

	var starter httpH.WorkflowStarter
	if c.Temporal != nil {
		starter = temporalx.NewExchangeStarter(c.Temporal, cfg.Temporal, log, metrics)
	}

	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		InternalKey:     cfg.InternalAPIKey,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
		HealthHandler:   httpH.NewHealthHandler(sqlDB),
		GuardianHandler: httpH.NewGuardianHandler(log, uc, uc.Lifecycle()),
		ExchangeHandler: httpH.NewExchangeHandler(log, uc.Pipeline(), starter),
	}), nil
}

// Start launches background work: the Temporal worker and the Redis pool
// collector. It returns once they are running.
func (a *App) Start(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		a.Log.Info("Temporal worker started", "task_queue", a.Cfg.Temporal.TaskQueue)
	}
	if a.Clients.Locker != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Locker.Client())
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr, "dispatch_mode", a.Cfg.Dispatch)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.worker != nil {
		a.worker.Stop()
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
