package repository

import (
	"context"
	"time"

	"venue_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ListStaleCandidates returns active-pipeline leads that may need a reminder
// or escalation. The filter is intentionally loose; exact classification is
// done in the domain layer so the thresholds live in one place. Only leads
// with both latches set are excluded: an escalated lead whose reminder latch
// is still unset can still owe the 24h reminder.
func (r *Repository) ListStaleCandidates(ctx context.Context) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE stage = ANY($1) AND (escalated = false OR reminder_sent = false)
		ORDER BY created_at
	`, []string{domain.StageNew, domain.StageContacted})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListSiteVisitCandidates returns leads with a scheduled site visit whose
// event date falls inside the window and whose reminder has not fired yet.
func (r *Repository) ListSiteVisitCandidates(ctx context.Context, from, to time.Time) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE stage = $1
		  AND site_visit_reminder_sent = false
		  AND event_date >= $2 AND event_date < $3
		ORDER BY event_date
	`, domain.StageSiteVisitScheduled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListUnprocessedNew returns leads still waiting for assignment, oldest
// first. Used by the orchestrator's reconcile pass.
func (r *Repository) ListUnprocessedNew(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE stage = $1 AND processed = false AND manager = $2
		ORDER BY created_at
		LIMIT $3
	`, domain.StageNew, domain.ManagerUnassigned, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// CountNewByManager returns how many leads in stage New each employee
// currently holds. Round-robin fairness is computed from these counts.
func (r *Repository) CountNewByManager(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT manager, count(*)
		FROM leads
		WHERE stage = $1 AND manager <> $2
		GROUP BY manager
	`, domain.StageNew, domain.ManagerUnassigned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var manager string
		var n int
		if err := rows.Scan(&manager, &n); err != nil {
			return nil, err
		}
		counts[manager] = n
	}
	return counts, rows.Err()
}

// ListDueFollowUps returns leads whose contact or quote follow-up deadline
// has passed. The deadline columns are cleared after dispatch so each
// follow-up fires once.
func (r *Repository) ListDueFollowUps(ctx context.Context, now time.Time) (contact, quote []Lead, err error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE follow_up_due <= $1 OR quote_follow_up_due <= $1
		ORDER BY created_at
	`, now)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	leads, err := collectLeads(rows)
	if err != nil {
		return nil, nil, err
	}
	for _, lead := range leads {
		if lead.FollowUpDue != nil && !lead.FollowUpDue.After(now) {
			contact = append(contact, lead)
		}
		if lead.QuoteFollowUpDue != nil && !lead.QuoteFollowUpDue.After(now) {
			quote = append(quote, lead)
		}
	}
	return contact, quote, nil
}

// ClearFollowUp resets one of the follow-up deadlines after it has been
// dispatched. Conditional so a concurrent worker dispatches at most once.
func (r *Repository) ClearFollowUp(ctx context.Context, id uuid.UUID, column FollowUpKind) (bool, error) {
	col := "follow_up_due"
	if column == FollowUpQuote {
		col = "quote_follow_up_due"
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET `+col+` = NULL, updated_at = now() WHERE id = $1 AND `+col+` IS NOT NULL`,
		id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FollowUpKind selects which follow-up deadline a call refers to.
type FollowUpKind string

const (
	FollowUpContact FollowUpKind = "contact"
	FollowUpQuote   FollowUpKind = "quote"
)
