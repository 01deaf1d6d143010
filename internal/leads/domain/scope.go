package domain

import "strings"

// Scope kinds, from widest to narrowest.
const (
	ScopeAll  = "all"
	ScopeTeam = "team"
	ScopeSelf = "self"
)

// Caller identifies who is asking. Team lists the roster names the caller
// manages (team membership is roster state resolved before calling ScopeFor).
type Caller struct {
	Name string
	Role string
	Team []string
}

// Scope is a data-visibility predicate over leads. It must be applied before
// any bulk read is issued on behalf of a reporting or AI feature, so that
// out-of-scope records never reach downstream consumers.
type Scope struct {
	Kind string

	// allowed is nil for ScopeAll; otherwise the set of assignee names the
	// caller may see.
	allowed map[string]struct{}
}

// Allows reports whether the caller may see a lead with the given assignee.
func (s Scope) Allows(lead LeadSnapshot) bool {
	if s.allowed == nil {
		return true
	}
	_, ok := s.allowed[lead.Manager]
	return ok
}

// AllowedManagers returns the assignee names the scope admits, or nil when the
// scope admits everything. Useful for pushing the filter into a store query.
func (s Scope) AllowedManagers() []string {
	if s.allowed == nil {
		return nil
	}
	names := make([]string, 0, len(s.allowed))
	for name := range s.allowed {
		names = append(names, name)
	}
	return names
}

// ScopeFor maps a caller to their data-visibility scope. Role names are
// case-insensitive. Owners and admins see everything; managers see their
// team's leads; everyone else (including unrecognized or missing roles)
// sees only leads assigned to themselves.
func ScopeFor(caller Caller) Scope {
	switch strings.ToLower(strings.TrimSpace(caller.Role)) {
	case "owner", "admin":
		return Scope{Kind: ScopeAll}

	case "manager":
		allowed := make(map[string]struct{}, len(caller.Team)+1)
		allowed[caller.Name] = struct{}{}
		for _, member := range caller.Team {
			if member != "" {
				allowed[member] = struct{}{}
			}
		}
		return Scope{Kind: ScopeTeam, allowed: allowed}

	default:
		return Scope{Kind: ScopeSelf, allowed: map[string]struct{}{caller.Name: {}}}
	}
}
