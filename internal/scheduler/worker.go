package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/domain"
	leadrepo "venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/platform/config"
	"venue_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   *leadrepo.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   leadrepo.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskFollowUpDue, w.handleFollowUpDue)
	mux.HandleFunc(TaskSiteVisitReminder, w.handleSiteVisitReminder)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleFollowUpDue fires a follow-up notification when its timer expires and
// the lead has not moved on. The follow-up deadline column is cleared with a
// conditional write, so the periodic scan and the timer dispatch at most once
// between them.
func (w *Worker) handleFollowUpDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpDuePayload(task)
	if err != nil {
		return err
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	lead, err := w.repo.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	kind := leadrepo.FollowUpKind(payload.Kind)
	switch kind {
	case leadrepo.FollowUpContact:
		// Only relevant while the lead still sits in Contacted.
		if lead.Stage != domain.StageContacted {
			return nil
		}
	case leadrepo.FollowUpQuote:
		if lead.Stage != domain.StageQuoted {
			return nil
		}
	default:
		return fmt.Errorf("unknown follow-up kind %q", payload.Kind)
	}

	claimed, err := w.repo.ClearFollowUp(ctx, leadID, kind)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	return w.bus.PublishSync(ctx, events.FollowUpDue{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		LeadName:   lead.Name,
		AssignedTo: lead.Manager,
		Kind:       payload.Kind,
	})
}

// handleSiteVisitReminder fires the day-before site visit reminder. The latch
// makes it safe next to the hourly scan.
func (w *Worker) handleSiteVisitReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSiteVisitReminderPayload(task)
	if err != nil {
		return err
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	lead, err := w.repo.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	due, urgent := domain.SiteVisitDue(lead.Snapshot(), time.Now())
	if !due {
		return nil
	}

	claimed, err := w.repo.MarkSiteVisitReminderSent(ctx, leadID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	return w.bus.PublishSync(ctx, events.SiteVisitReminder{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		LeadName:   lead.Name,
		AssignedTo: lead.Manager,
		VisitDate:  *lead.EventDate,
		Urgent:     urgent,
	})
}
