package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"venue_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lead is the stored pipeline record. The processed, reminder_sent, escalated
// and site_visit_reminder_sent columns are idempotency latches; they are only
// ever set through the conditional writes below, never through UpdateFields.
type Lead struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Email     *string
	Source    string
	Stage     string
	Manager   string
	EventDate *time.Time

	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastContactedAt *time.Time
	NextCallDate    *time.Time

	Processed             bool
	ReminderSent          bool
	Escalated             bool
	SiteVisitReminderSent bool

	FollowUpDue       *time.Time
	QuoteFollowUpDue  *time.Time
	LostAt            *time.Time
	InvoiceExternalID *string
}

// Snapshot converts the stored row into the domain read model.
func (l Lead) Snapshot() domain.LeadSnapshot {
	email := ""
	if l.Email != nil {
		email = *l.Email
	}
	return domain.LeadSnapshot{
		ID:                    l.ID,
		Name:                  l.Name,
		Stage:                 l.Stage,
		Manager:               l.Manager,
		Source:                l.Source,
		Phone:                 l.Phone,
		Email:                 email,
		EventDate:             l.EventDate,
		CreatedAt:             l.CreatedAt,
		LastContactedAt:       l.LastContactedAt,
		NextCallDate:          l.NextCallDate,
		Processed:             l.Processed,
		ReminderSent:          l.ReminderSent,
		Escalated:             l.Escalated,
		SiteVisitReminderSent: l.SiteVisitReminderSent,
	}
}

// StageHistoryEntry is one append-only stage transition record.
type StageHistoryEntry struct {
	ID        int64
	LeadID    uuid.UUID
	FromStage string
	ToStage   string
	Trigger   string
	CreatedAt time.Time
}

const leadColumns = `
	id, name, phone, email, source, stage, manager, event_date,
	created_at, updated_at, last_contacted_at, next_call_date,
	processed, reminder_sent, escalated, site_visit_reminder_sent,
	follow_up_due, quote_follow_up_due, lost_at, invoice_external_id`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Source, &l.Stage, &l.Manager, &l.EventDate,
		&l.CreatedAt, &l.UpdatedAt, &l.LastContactedAt, &l.NextCallDate,
		&l.Processed, &l.ReminderSent, &l.Escalated, &l.SiteVisitReminderSent,
		&l.FollowUpDue, &l.QuoteFollowUpDue, &l.LostAt, &l.InvoiceExternalID,
	)
	return l, err
}

// CreateLeadParams holds intake fields for a new lead.
type CreateLeadParams struct {
	Name      string
	Phone     string
	Email     *string
	Source    string
	EventDate *time.Time
}

// Create inserts a lead in stage New, unassigned and unprocessed.
func (r *Repository) Create(ctx context.Context, p CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (id, name, phone, email, source, stage, manager, event_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING`+leadColumns,
		uuid.New(), p.Name, p.Phone, p.Email, p.Source, domain.StageNew, domain.ManagerUnassigned, p.EventDate,
	)
	return scanLead(row)
}

// GetByID returns one lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// ListFilter narrows List results. A nil Managers slice means no assignee
// filter; this is how scope pre-filtering is pushed into the query.
type ListFilter struct {
	Stages   []string
	Managers []string
	Limit    int
}

// List returns leads matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT` + leadColumns + ` FROM leads`)

	args := []any{}
	conds := []string{}
	if len(filter.Stages) > 0 {
		args = append(args, filter.Stages)
		conds = append(conds, fmt.Sprintf("stage = ANY($%d)", len(args)))
	}
	if len(filter.Managers) > 0 {
		args = append(args, filter.Managers)
		conds = append(conds, fmt.Sprintf("manager = ANY($%d)", len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateLeadFields carries optional field updates; nil means untouched.
// Partial merge semantics: only the present fields are written.
type UpdateLeadFields struct {
	Name            *string
	Phone           *string
	Email           *string
	Source          *string
	EventDate       *time.Time
	LastContactedAt *time.Time
	NextCallDate    *time.Time
}

// UpdateFields applies a partial update. Stage and the latch flags are
// deliberately not updatable through this path.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields UpdateLeadFields) (Lead, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Phone != nil {
		add("phone", *fields.Phone)
	}
	if fields.Email != nil {
		add("email", *fields.Email)
	}
	if fields.Source != nil {
		add("source", *fields.Source)
	}
	if fields.EventDate != nil {
		add("event_date", *fields.EventDate)
	}
	if fields.LastContactedAt != nil {
		add("last_contacted_at", *fields.LastContactedAt)
	}
	if fields.NextCallDate != nil {
		add("next_call_date", *fields.NextCallDate)
	}

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $1 RETURNING%s`, strings.Join(sets, ", "), leadColumns)
	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}
