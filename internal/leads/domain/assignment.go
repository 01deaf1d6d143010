package domain

// Assignment modes.
const (
	ModeRoundRobin   = "round_robin"
	ModeSourceBased  = "source_based"
	ModeSinglePerson = "single_person"
	ModeManual       = "manual"
)

// Fallback policies for source_based mode when no rule matches.
// Any other value is treated as a specific employee name.
const (
	FallbackRoundRobin = "round_robin"
	FallbackUnassigned = "unassigned"
)

// Assignment methods reported back to the caller.
const (
	MethodManual             = "manual"
	MethodSinglePerson       = "single_person"
	MethodSourceRule         = "source_rule"
	MethodRoundRobin         = "round_robin"
	MethodFallbackUnassigned = "fallback_unassigned"
	MethodFallbackFixed      = "fallback_fixed"
	MethodNoEmployees        = "no_employees"
)

// SourceRule routes leads from a specific source to a fixed assignee.
// Matching is a case-sensitive exact comparison against the lead's source.
type SourceRule struct {
	Source   string `json:"source"`
	AssignTo string `json:"assignTo"`
}

// AssignmentConfig is the process-wide assignment policy. Read on every
// decision; mutated only by an administrator, never by the engine.
type AssignmentConfig struct {
	Mode             string       `json:"mode"`
	DefaultAssignee  string       `json:"defaultAssignee,omitempty"`
	SourceRules      []SourceRule `json:"sourceRules,omitempty"`
	FallbackAssignee string       `json:"fallbackAssignee,omitempty"`
}

// Employee is one roster entry. Declaration order in the roster breaks
// round-robin ties, so the slice order is significant.
type Employee struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Team string `json:"team,omitempty"`
}

// Assignment is the outcome of an assignment decision.
type Assignment struct {
	Employee string
	Method   string
}

// DecideAssignment computes the assignee for a new, unassigned lead.
// newLeadCounts maps employee name to the number of leads currently in stage
// New assigned to them; it drives round-robin fairness. Pure: the caller
// performs the conditional claim write.
func DecideAssignment(lead LeadSnapshot, cfg AssignmentConfig, roster []Employee, newLeadCounts map[string]int) Assignment {
	switch cfg.Mode {
	case ModeManual:
		return Assignment{Employee: ManagerUnassigned, Method: MethodManual}

	case ModeSinglePerson:
		if cfg.DefaultAssignee == "" {
			return Assignment{Employee: ManagerUnassigned, Method: MethodFallbackUnassigned}
		}
		return Assignment{Employee: cfg.DefaultAssignee, Method: MethodSinglePerson}

	case ModeSourceBased:
		// Last write wins on duplicate sources, so scan in reverse.
		for i := len(cfg.SourceRules) - 1; i >= 0; i-- {
			if cfg.SourceRules[i].Source == lead.Source {
				return Assignment{Employee: cfg.SourceRules[i].AssignTo, Method: MethodSourceRule}
			}
		}
		switch cfg.FallbackAssignee {
		case FallbackRoundRobin, "":
			return roundRobin(roster, newLeadCounts)
		case FallbackUnassigned:
			return Assignment{Employee: ManagerUnassigned, Method: MethodFallbackUnassigned}
		default:
			return Assignment{Employee: cfg.FallbackAssignee, Method: MethodFallbackFixed}
		}

	default: // round_robin, and the safe default for unrecognized modes
		return roundRobin(roster, newLeadCounts)
	}
}

// roundRobin selects the employee with the strictly minimal count of New-stage
// leads. Ties break on roster declaration order for determinism.
func roundRobin(roster []Employee, newLeadCounts map[string]int) Assignment {
	best := ""
	bestCount := 0

	for _, emp := range roster {
		if emp.Name == "" || emp.Name == ManagerUnassigned {
			continue
		}
		count := newLeadCounts[emp.Name]
		if best == "" || count < bestCount {
			best = emp.Name
			bestCount = count
		}
	}

	if best == "" {
		return Assignment{Employee: ManagerUnassigned, Method: MethodNoEmployees}
	}
	return Assignment{Employee: best, Method: MethodRoundRobin}
}
