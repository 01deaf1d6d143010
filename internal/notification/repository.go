package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification is one internal alert shown to staff.
type Notification struct {
	ID         int64      `json:"id"`
	Type       string     `json:"type"`
	LeadID     uuid.UUID  `json:"leadId"`
	LeadName   string     `json:"leadName"`
	AssignedTo string     `json:"assignedTo"`
	Message    string     `json:"message"`
	Priority   string     `json:"priority"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

// CallListEntry is one open item on the shared call list.
type CallListEntry struct {
	ID          int64      `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	LeadName    string     `json:"leadName"`
	Phone       string     `json:"phone"`
	Source      string     `json:"source"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Repository stores notifications and call list entries.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateNotificationParams holds fields for a new notification record.
type CreateNotificationParams struct {
	Type       string
	LeadID     uuid.UUID
	LeadName   string
	AssignedTo string
	Message    string
	Priority   string
}

// CreateNotification inserts an internal notification.
func (r *Repository) CreateNotification(ctx context.Context, p CreateNotificationParams) error {
	if p.Priority == "" {
		p.Priority = "normal"
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (type, lead_id, lead_name, assigned_to, message, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.Type, p.LeadID, p.LeadName, p.AssignedTo, p.Message, p.Priority)
	return err
}

// ListNotifications returns recent notifications for an assignee, newest
// first. An empty assignee returns notifications addressed to everyone.
func (r *Repository) ListNotifications(ctx context.Context, assignedTo string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, lead_id, lead_name, assigned_to, message, priority, created_at, read_at
		FROM notifications
		WHERE assigned_to = $1 OR assigned_to = ''
		ORDER BY created_at DESC
		LIMIT $2
	`, assignedTo, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.LeadID, &n.LeadName, &n.AssignedTo, &n.Message, &n.Priority, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead stamps a notification as read.
func (r *Repository) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at = now() WHERE id = $1 AND read_at IS NULL
	`, id)
	return err
}

// AddCallListEntryParams holds fields for a new call list item.
type AddCallListEntryParams struct {
	LeadID   uuid.UUID
	LeadName string
	Phone    string
	Source   string
	Reason   string
}

// AddCallListEntry puts a lead on the call list. At most one open entry per
// lead; a duplicate add is a no-op.
func (r *Repository) AddCallListEntry(ctx context.Context, p AddCallListEntryParams) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_list_entries (lead_id, lead_name, phone, source, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lead_id) WHERE completed_at IS NULL DO NOTHING
	`, p.LeadID, p.LeadName, p.Phone, p.Source, p.Reason)
	return err
}

// ListOpenCalls returns pending call list entries, oldest first.
func (r *Repository) ListOpenCalls(ctx context.Context) ([]CallListEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, lead_name, phone, source, reason, created_at, completed_at
		FROM call_list_entries
		WHERE completed_at IS NULL
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallListEntry, 0)
	for rows.Next() {
		var e CallListEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.LeadName, &e.Phone, &e.Source, &e.Reason, &e.CreatedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CompleteCall marks a call list entry as done.
func (r *Repository) CompleteCall(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE call_list_entries SET completed_at = now() WHERE id = $1 AND completed_at IS NULL
	`, id)
	return err
}
