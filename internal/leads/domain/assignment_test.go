package domain

import "testing"

var testRoster = []Employee{
	{Name: "Zia un Nabi", Role: "Sales"},
	{Name: "Ali", Role: "Sales"},
	{Name: "Zara", Role: "Manager", Team: "A"},
}

func TestDecideAssignmentManualModeDoesNothing(t *testing.T) {
	got := DecideAssignment(LeadSnapshot{Source: "Walk-in"}, AssignmentConfig{Mode: ModeManual}, testRoster, nil)
	if got.Employee != ManagerUnassigned || got.Method != MethodManual {
		t.Fatalf("expected (Unassigned, manual), got (%s, %s)", got.Employee, got.Method)
	}
}

func TestDecideAssignmentSinglePerson(t *testing.T) {
	cfg := AssignmentConfig{Mode: ModeSinglePerson, DefaultAssignee: "Ali"}
	got := DecideAssignment(LeadSnapshot{}, cfg, testRoster, nil)
	if got.Employee != "Ali" || got.Method != MethodSinglePerson {
		t.Fatalf("expected (Ali, single_person), got (%s, %s)", got.Employee, got.Method)
	}
}

func TestDecideAssignmentSourceRuleWinsRegardlessOfLoad(t *testing.T) {
	cfg := AssignmentConfig{
		Mode:             ModeSourceBased,
		SourceRules:      []SourceRule{{Source: "Meta Lead Gen", AssignTo: "Zia un Nabi"}},
		FallbackAssignee: FallbackRoundRobin,
	}
	counts := map[string]int{"Zia un Nabi": 99, "Ali": 0}

	got := DecideAssignment(LeadSnapshot{Source: "Meta Lead Gen"}, cfg, testRoster, counts)
	if got.Employee != "Zia un Nabi" || got.Method != MethodSourceRule {
		t.Fatalf("expected (Zia un Nabi, source_rule), got (%s, %s)", got.Employee, got.Method)
	}
}

func TestDecideAssignmentSourceMatchIsCaseSensitive(t *testing.T) {
	cfg := AssignmentConfig{
		Mode:             ModeSourceBased,
		SourceRules:      []SourceRule{{Source: "Meta Lead Gen", AssignTo: "Zia un Nabi"}},
		FallbackAssignee: FallbackUnassigned,
	}

	got := DecideAssignment(LeadSnapshot{Source: "meta lead gen"}, cfg, testRoster, nil)
	if got.Method != MethodFallbackUnassigned {
		t.Fatalf("lowercased source must not match, got method %s", got.Method)
	}
}

func TestDecideAssignmentDuplicateSourceLastWriteWins(t *testing.T) {
	cfg := AssignmentConfig{
		Mode: ModeSourceBased,
		SourceRules: []SourceRule{
			{Source: "Walk-in", AssignTo: "Ali"},
			{Source: "Walk-in", AssignTo: "Zara"},
		},
	}

	got := DecideAssignment(LeadSnapshot{Source: "Walk-in"}, cfg, testRoster, nil)
	if got.Employee != "Zara" {
		t.Fatalf("expected the later rule to win, got %s", got.Employee)
	}
}

func TestDecideAssignmentFallbackFixedName(t *testing.T) {
	cfg := AssignmentConfig{Mode: ModeSourceBased, FallbackAssignee: "Ali"}
	got := DecideAssignment(LeadSnapshot{Source: "Unknown"}, cfg, testRoster, nil)
	if got.Employee != "Ali" || got.Method != MethodFallbackFixed {
		t.Fatalf("expected (Ali, fallback_fixed), got (%s, %s)", got.Employee, got.Method)
	}
}

func TestDecideAssignmentFallbackRoundRobin(t *testing.T) {
	cfg := AssignmentConfig{Mode: ModeSourceBased, FallbackAssignee: FallbackRoundRobin}
	counts := map[string]int{"Zia un Nabi": 3, "Ali": 2, "Zara": 2}

	got := DecideAssignment(LeadSnapshot{Source: "Walk-in"}, cfg, testRoster, counts)
	if got.Method != MethodRoundRobin {
		t.Fatalf("expected round_robin method, got %s", got.Method)
	}
	// Ali and Zara tie on load; Ali is declared first on the roster.
	if got.Employee != "Ali" {
		t.Fatalf("tie must break on roster order, got %s", got.Employee)
	}
}

func TestDecideAssignmentRoundRobinFairness(t *testing.T) {
	cfg := AssignmentConfig{Mode: ModeRoundRobin}
	counts := map[string]int{}
	seen := map[string]int{}

	// N employees with equal starting load and N sequential new leads:
	// each employee receives exactly one assignment.
	for range testRoster {
		got := DecideAssignment(LeadSnapshot{}, cfg, testRoster, counts)
		if got.Method != MethodRoundRobin {
			t.Fatalf("expected round_robin, got %s", got.Method)
		}
		counts[got.Employee]++
		seen[got.Employee]++
	}

	for _, emp := range testRoster {
		if seen[emp.Name] != 1 {
			t.Fatalf("expected exactly one assignment for %s, got %d", emp.Name, seen[emp.Name])
		}
	}
}

func TestDecideAssignmentEmptyRoster(t *testing.T) {
	got := DecideAssignment(LeadSnapshot{}, AssignmentConfig{Mode: ModeRoundRobin}, nil, nil)
	if got.Employee != ManagerUnassigned || got.Method != MethodNoEmployees {
		t.Fatalf("expected (Unassigned, no_employees), got (%s, %s)", got.Employee, got.Method)
	}
}

func TestDecideAssignmentRosterExcludesUnassignedSentinel(t *testing.T) {
	roster := []Employee{{Name: ManagerUnassigned}, {Name: "Ali"}}
	got := DecideAssignment(LeadSnapshot{}, AssignmentConfig{Mode: ModeRoundRobin}, roster, nil)
	if got.Employee != "Ali" {
		t.Fatalf("the Unassigned sentinel must never be selected, got %s", got.Employee)
	}
}
