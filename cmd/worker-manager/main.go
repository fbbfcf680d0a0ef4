// cmd/worker-manager/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	awsclient "codavert-workers/internal/common/aws"
	"codavert-workers/internal/common/camunda"
	"codavert-workers/internal/common/config"
	"codavert-workers/internal/common/database"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/observability"
	"codavert-workers/internal/lifecycle"
	"codavert-workers/internal/lock"
	"codavert-workers/internal/models"
	"codavert-workers/internal/notification"
	"codavert-workers/internal/provisioning"
	"codavert-workers/internal/sequence"
	"codavert-workers/pkg/registry"

	// Application lifecycle workers (7)
	ao "codavert-workers/internal/workers/application/accept-offer"
	da "codavert-workers/internal/workers/application/delete-application"
	qa "codavert-workers/internal/workers/application/query-applications"
	sce "codavert-workers/internal/workers/application/send-candidate-email"
	sas "codavert-workers/internal/workers/application/set-application-status"
	sa "codavert-workers/internal/workers/application/submit-application"
	ua "codavert-workers/internal/workers/application/update-application"

	// Document workers (1)
	adn "codavert-workers/internal/workers/documents/allocate-document-number"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// managedWorker is what every worker package's Handler exposes to the manager.
type managedWorker interface {
	camunda.JobHandler
	GetTaskType() string
	IsEnabled() bool
}

type registration struct {
	handler       managedWorker
	maxJobsActive int
	timeout       time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewFromConfig(cfg.Logging)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := database.EnsureSchema(ctx, pg.DB); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		zapLog.Info("Database schema is up to date")
	}

	// --- Init Redis with retry (only when a backend needs it) ---
	var redis *database.RedisClient
	if cfg.Lifecycle.LockBackend == "redis" || cfg.Sequence.Backend == "redis" {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Domain services ---
	var locker lock.Locker
	if cfg.Lifecycle.LockBackend == "redis" {
		locker = lock.NewRedisLocker(redis.Client,
			config.GetDuration(cfg.Lifecycle.LockTTL),
			config.GetDuration(cfg.Lifecycle.LockWait),
			log,
		)
	} else {
		locker = lock.NewKeyedMutex(config.GetDuration(cfg.Lifecycle.LockWait))
	}

	var counter sequence.Counter
	switch cfg.Sequence.Backend {
	case "redis":
		counter = sequence.NewRedisCounter(redis.Client, cfg.Sequence.KeyPrefix)
	case "memory":
		zapLog.Warn("Using in-memory document sequences; numbers reset on restart")
		counter = sequence.NewMemoryCounter()
	default:
		counter = sequence.NewPostgresCounter(pg.DB)
	}
	allocator := sequence.NewAllocator(counter, log,
		sequence.WithMaxRetries(cfg.Sequence.MaxRetries),
		sequence.WithObservability(obs),
	)

	var notifier lifecycle.Notifier
	var dispatcher *notification.Dispatcher
	if cfg.Notifications.Enabled {
		dispatcher, err = newDispatcher(ctx, cfg, log)
		if err != nil {
			zapLog.Fatal("notification dispatcher setup failed", zap.Error(err))
		}
		dispatcher.Start()
		notifier = dispatcher
		zapLog.Info("Notification dispatcher started", zap.String("transport", cfg.Notifications.Transport))
	} else {
		zapLog.Warn("Notifications are disabled; candidate emails will not be sent")
	}

	engine := lifecycle.NewEngine(lifecycle.Dependencies{
		Store:              lifecycle.NewPostgresStore(pg.DB),
		Locker:             locker,
		Provisioner:        provisioning.NewProvisioner(cfg.Provisioning.DefaultPassword, cfg.Provisioning.BcryptCost, log),
		Notifier:           notifier,
		Logger:             log,
		Observability:      obs,
		ProtectProvisioned: cfg.Lifecycle.ProtectProvisioned,
	})

	// --- Register workers ---
	registrations, err := buildWorkers(cfg, engine, allocator, log, obs)
	if err != nil {
		zapLog.Fatal("worker setup failed", zap.Error(err))
	}

	var jobWorkers []worker.JobWorker
	for _, r := range registrations {
		taskType := r.handler.GetTaskType()
		if !r.handler.IsEnabled() {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		jobWorkers = append(jobWorkers, camunda.Open(zeebe.GetClient(), taskType, r.maxJobsActive, r.timeout, r.handler))
		zapLog.Info("worker started",
			zap.String("taskType", taskType),
			zap.Int("maxJobsActive", r.maxJobsActive),
			zap.Duration("timeout", r.timeout),
		)
	}
	zapLog.Info("Workers registered", zap.Int("started", len(jobWorkers)), zap.Int("total", len(registrations)))

	// --- Health & Metrics Server ---
	checks := map[string]healthCheck{
		"zeebe":    zeebe.HealthCheck,
		"postgres": pg.Ping,
	}
	if redis != nil {
		checks["redis"] = redis.Ping
	}
	srv := newServer(cfg.Server.Address, registry.MustDefault(), checks, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping workers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for _, w := range jobWorkers {
			w.Close()
		}
		if dispatcher != nil {
			if err := dispatcher.Shutdown(shutdownCtx); err != nil {
				zapLog.Warn("Notification queue not fully drained", zap.Error(err))
			}
		}
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("Worker manager exited with error", zap.Error(err))
		return
	}
	zapLog.Info("Worker manager stopped")
}

func buildWorkers(cfg *config.Config, engine *lifecycle.Engine, allocator *sequence.Allocator, log logger.Logger, obs *observability.Observability) ([]registration, error) {
	var regs []registration

	submit, err := sa.NewHandler(sa.HandlerOptions{AppConfig: cfg, Engine: engine, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	regs = append(regs, registration{submit, submit.GetConfig().MaxJobsActive, submit.GetConfig().Timeout})

	setStatus, err := sas.NewHandler(sas.HandlerOptions{AppConfig: cfg, Engine: engine, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	regs = append(regs, registration{setStatus, setStatus.GetConfig().MaxJobsActive, setStatus.GetConfig().Timeout})

	accept, err := ao.NewHandler(ao.HandlerOptions{AppConfig: cfg, Engine: engine, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	regs = append(regs, registration{accept, accept.GetConfig().MaxJobsActive, accept.GetConfig().Timeout})

	update, err := ua.NewHandler(ua.HandlerOptions{AppConfig: cfg, Engine: engine, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	regs = append(regs, registration{update, update.GetConfig().MaxJobsActive, update.GetConfig().Timeout})

	del, err := da.NewHandler(da.HandlerOptions{AppConfig: cfg, Engine: engine, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	regs = append(regs, registration{del, del.GetConfig().MaxJobsActive, del.GetConfig().Timeout})

	query, err := qa.NewHandler(qa.HandlerOptions{AppConfig: cfg, Engine: engine, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	regs = append(regs, registration{query, query.GetConfig().MaxJobsActive, query.GetConfig().Timeout})

	email, err := sce.NewHandler(sce.HandlerOptions{AppConfig: cfg, Engine: engine, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	regs = append(regs, registration{email, email.GetConfig().MaxJobsActive, email.GetConfig().Timeout})

	alloc, err := adn.NewHandler(adn.HandlerOptions{AppConfig: cfg, Allocator: allocator, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	regs = append(regs, registration{alloc, alloc.GetConfig().MaxJobsActive, alloc.GetConfig().Timeout})

	return regs, nil
}

func newDispatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*notification.Dispatcher, error) {
	nc := cfg.Notifications

	var clients *awsclient.Clients
	if nc.Transport == "ses" || nc.SMS.Enabled {
		var err error
		if clients, err = awsclient.Load(ctx, cfg.Integrations.AWS.Region); err != nil {
			return nil, err
		}
	}

	var mailer notification.Mailer
	switch nc.Transport {
	case "ses":
		mailer = notification.NewSESMailer(clients.SES())
	case "smtp":
		mailer = notification.NewSMTPMailer(cfg.Integrations.SMTP)
	default:
		mailer = notification.NewLogMailer(log)
	}

	var sms notification.SMSSender
	if nc.SMS.Enabled {
		sms = notification.NewSNSSender(clients.SNS(), nc.SMS.SenderID)
	}

	return notification.NewDispatcher(notification.Config{
		FromEmail:   nc.FromEmail,
		FromName:    nc.FromName,
		QueueSize:   nc.QueueSize,
		Workers:     nc.Workers,
		SendTimeout: config.GetDuration(nc.SendTimeout),
		Branding: notification.Branding{
			CompanyName: nc.CompanyName,
			PortalURL:   nc.PortalURL,
		},
		SMSKinds: map[models.EventKind]bool{
			models.EventInterviewInvitation: true,
			models.EventOfferLetter:         true,
		},
	}, mailer, sms, log), nil
}
