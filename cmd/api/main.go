package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venue_crm_backend/internal/assistant"
	"venue_crm_backend/internal/email"
	"venue_crm_backend/internal/events"
	apphttp "venue_crm_backend/internal/http"
	"venue_crm_backend/internal/http/router"
	"venue_crm_backend/internal/invoicing"
	"venue_crm_backend/internal/leads"
	"venue_crm_backend/internal/leads/service"
	"venue_crm_backend/internal/notification"
	"venue_crm_backend/internal/policy"
	"venue_crm_backend/internal/scheduler"
	"venue_crm_backend/internal/sms"
	"venue_crm_backend/internal/whatsapp"
	"venue_crm_backend/migrations"
	"venue_crm_backend/platform/config"
	"venue_crm_backend/platform/db"
	"venue_crm_backend/platform/logger"
	"venue_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	followUpScheduler, closeScheduler := initFollowUpScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	policyModule := policy.NewModule(pool, cfg.GetPolicyRefreshInterval(), log)
	go policyModule.Provider.Run(ctx)

	var invoicePusher service.InvoicePusher
	if client := invoicing.NewClient(cfg, log); client != nil {
		invoicePusher = client
		log.Info("invoicing push enabled", "url", cfg.GetInvoicingURL())
	}

	leadsModule := leads.NewModule(pool, val, eventBus, policyModule.Provider, invoicePusher, followUpScheduler, cfg, log)

	// The orchestrator serializes assignment and reconciles missed leads; the
	// monitor runs the stale, follow-up and site-visit scans. Both live in this
	// process because they react to events published on the in-process bus.
	go leadsModule.Orchestrator.Run(ctx)
	go leadsModule.Monitor.Run(ctx)

	// Notification module subscribes to domain events; channel clients may be
	// nil when the gateway is not configured.
	whatsappClient := whatsapp.NewClient(cfg, log)
	smsClient := sms.NewClient(cfg, log)
	emailSender := email.NewSender(cfg)

	notificationModule := notification.NewModule(pool, leadsModule.Service, whatsappClient, smsClient, emailSender, cfg, log)
	notificationModule.Subscribe(eventBus)

	var generator assistant.Generator
	if gen, err := assistant.NewGenerator(ctx, cfg); err != nil {
		log.Error("failed to initialize assistant", "error", err)
	} else if gen != nil {
		generator = gen
		log.Info("assistant enabled", "model", cfg.GetGeminiModel())
	}
	assistantModule := assistant.NewModule(assistant.NewService(generator, leadsModule.Service, log), val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			notificationModule,
			policyModule,
			assistantModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initFollowUpScheduler(cfg config.SchedulerConfig, log *logger.Logger) (service.FollowUpScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; delayed follow-up timers disabled, periodic scans still apply")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize follow-up scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
