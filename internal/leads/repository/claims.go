package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"venue_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ClaimForAssignment assigns the lead to an employee and flips the processed
// latch in one conditional write. It returns false when another worker (or a
// previous run) already claimed the lead, so callers can skip side effects.
// The claim never writes the Unassigned sentinel: a lead that cannot be
// assigned stays unprocessed and is retried on the next reconcile pass.
func (r *Repository) ClaimForAssignment(ctx context.Context, id uuid.UUID, employee string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET manager = $2, processed = true, updated_at = now()
		WHERE id = $1 AND processed = false AND manager = $3 AND stage = $4
	`, id, employee, domain.ManagerUnassigned, domain.StageNew)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkReminderSent flips the 24h reminder latch. Returns false if already set.
func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.flipLatch(ctx, id, "reminder_sent")
}

// MarkEscalated flips the 48h escalation latch. Returns false if already set.
func (r *Repository) MarkEscalated(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.flipLatch(ctx, id, "escalated")
}

// MarkSiteVisitReminderSent flips the site-visit reminder latch.
func (r *Repository) MarkSiteVisitReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.flipLatch(ctx, id, "site_visit_reminder_sent")
}

func (r *Repository) flipLatch(ctx context.Context, id uuid.UUID, column string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET `+column+` = true, updated_at = now() WHERE id = $1 AND `+column+` = false`,
		id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// StageCommit describes the write side of a stage transition. It is built
// from a domain.TransitionPlan by the service layer.
type StageCommit struct {
	FromStage string
	ToStage   string
	Trigger   string

	LastContactedAt   *time.Time
	FollowUpDue       *time.Time
	QuoteFollowUpDue  *time.Time
	SiteVisitReminder bool
	LostAt            *time.Time
	ClearNextCallDate bool
}

// CommitStageTransition applies a stage change and its side-effect fields and
// appends the history row in one transaction. The stage column is compared
// against FromStage so concurrent transitions lose cleanly instead of
// interleaving; the caller treats a false return as a stale read.
func (r *Repository) CommitStageTransition(ctx context.Context, id uuid.UUID, c StageCommit) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	sets := []string{"stage = $2", "updated_at = now()"}
	args := []any{id, c.ToStage, c.FromStage}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if c.LastContactedAt != nil {
		add("last_contacted_at", *c.LastContactedAt)
	}
	if c.FollowUpDue != nil {
		add("follow_up_due", *c.FollowUpDue)
	}
	if c.QuoteFollowUpDue != nil {
		add("quote_follow_up_due", *c.QuoteFollowUpDue)
	}
	if c.LostAt != nil {
		add("lost_at", *c.LostAt)
	}
	if c.ClearNextCallDate {
		sets = append(sets, "next_call_date = NULL")
	}
	if c.SiteVisitReminder {
		// Re-arm the latch: a rescheduled visit should remind again.
		sets = append(sets, "site_visit_reminder_sent = false")
	}

	query := "UPDATE leads SET " + strings.Join(sets, ", ") + " WHERE id = $1 AND stage = $3"
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_stage_history (lead_id, from_stage, to_stage, trigger)
		VALUES ($1, $2, $3, $4)
	`, id, c.FromStage, c.ToStage, c.Trigger)
	if err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// RecordInvoiceExternalID stores the external invoice reference created when
// a lead books.
func (r *Repository) RecordInvoiceExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET invoice_external_id = $2, updated_at = now() WHERE id = $1
	`, id, externalID)
	return err
}

// StageHistory returns the append-only transition log for a lead, oldest first.
func (r *Repository) StageHistory(ctx context.Context, id uuid.UUID) ([]StageHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, from_stage, to_stage, trigger, created_at
		FROM lead_stage_history
		WHERE lead_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]StageHistoryEntry, 0)
	for rows.Next() {
		var e StageHistoryEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.FromStage, &e.ToStage, &e.Trigger, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
