// Package policy provides typed access to the automation policy documents:
// assignment rules, automation rules, the manager roster, and the event-type
// list. Documents are read-mostly; the engine never writes them.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"venue_crm_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document keys.
const (
	KeyAssignmentRules = "assignment_rules"
	KeyAutomationRules = "automation_rules"
	KeyManagers        = "managers"
	KeyEventTypes      = "event_types"
)

// ErrNotFound is returned when a policy document does not exist.
var ErrNotFound = errors.New("policy document not found")

// Snapshot is a point-in-time view of all policy documents. Decision
// functions receive a Snapshot explicitly so they stay pure and testable.
type Snapshot struct {
	Assignment domain.AssignmentConfig
	Automation map[string]domain.ActionSet
	Roster     []domain.Employee
	EventTypes []string

	LoadedAt time.Time
}

// Defaults returns the built-in safe policy used when documents are absent.
// A missing document is never an error (ConfigMissing falls back, it does
// not fail).
func Defaults() Snapshot {
	return Snapshot{
		Assignment: domain.AssignmentConfig{Mode: domain.ModeRoundRobin},
		Automation: map[string]domain.ActionSet{},
	}
}

// TeamOf returns the names of roster members sharing the given employee's
// team, excluding the employee themselves. Used to build manager scopes.
func (s Snapshot) TeamOf(name string) []string {
	var team string
	for _, emp := range s.Roster {
		if emp.Name == name {
			team = emp.Team
			break
		}
	}
	if team == "" {
		return nil
	}

	var members []string
	for _, emp := range s.Roster {
		if emp.Team == team && emp.Name != name {
			members = append(members, emp.Name)
		}
	}
	return members
}

// Repository reads and writes policy documents stored as jsonb rows.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a policy repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the raw document for a key.
func (r *Repository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value json.RawMessage
	err := r.pool.QueryRow(ctx, `
		SELECT value FROM policy_documents WHERE key = $1
	`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set upserts a document. Administrative path only.
func (r *Repository) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO policy_documents (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

// Load reads all policy documents into a snapshot. Missing documents fall
// back to the built-in defaults; malformed documents are treated as missing.
func (r *Repository) Load(ctx context.Context) (Snapshot, error) {
	snap := Defaults()
	snap.LoadedAt = time.Now()

	rows, err := r.pool.Query(ctx, `
		SELECT key, value FROM policy_documents
		WHERE key = ANY($1)
	`, []string{KeyAssignmentRules, KeyAutomationRules, KeyManagers, KeyEventTypes})
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value json.RawMessage
		if err := rows.Scan(&key, &value); err != nil {
			return Snapshot{}, err
		}

		switch key {
		case KeyAssignmentRules:
			var cfg domain.AssignmentConfig
			if json.Unmarshal(value, &cfg) == nil && cfg.Mode != "" {
				snap.Assignment = cfg
			}
		case KeyAutomationRules:
			var table map[string]domain.ActionSet
			if json.Unmarshal(value, &table) == nil && table != nil {
				snap.Automation = table
			}
		case KeyManagers:
			var roster []domain.Employee
			if json.Unmarshal(value, &roster) == nil {
				snap.Roster = roster
			}
		case KeyEventTypes:
			var types []string
			if json.Unmarshal(value, &types) == nil {
				snap.EventTypes = types
			}
		}
	}

	if rows.Err() != nil {
		return Snapshot{}, rows.Err()
	}

	return snap, nil
}
