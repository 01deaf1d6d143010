package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venue_crm_backend/internal/email"
	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/internal/notification"
	"venue_crm_backend/internal/policy"
	"venue_crm_backend/internal/scheduler"
	"venue_crm_backend/internal/sms"
	"venue_crm_backend/internal/whatsapp"
	"venue_crm_backend/platform/config"
	"venue_crm_backend/platform/db"
	"venue_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	// The worker publishes follow-up and site-visit events; the notification
	// module turns them into staff alerts. The automation resolver comes from
	// the leads service, backed by the same policy documents as the API.
	policyModule := policy.NewModule(pool, cfg.GetPolicyRefreshInterval(), log)
	go policyModule.Provider.Run(ctx)

	notificationModule := notification.NewModule(
		pool,
		automationResolver{policies: policyModule.Provider},
		whatsapp.NewClient(cfg, log),
		sms.NewClient(cfg, log),
		email.NewSender(cfg),
		cfg,
		log,
	)
	notificationModule.Subscribe(eventBus)

	worker, err := scheduler.NewWorker(cfg, pool, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

// automationResolver resolves automation actions against the live policy
// snapshot without pulling in the full leads service.
type automationResolver struct {
	policies *policy.Provider
}

func (r automationResolver) ResolveAutomation(sourceName string) domain.ActionSet {
	return domain.ResolveAutomation(sourceName, r.policies.Current().Automation)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
