package policy

import (
	"encoding/json"
	"fmt"

	"venue_crm_backend/internal/leads/domain"
)

// validateDocument checks a policy document against its expected shape before
// it is stored. Defense against admin typos; the loader would otherwise fall
// back to defaults silently.
func validateDocument(key string, raw json.RawMessage) error {
	switch key {
	case KeyAssignmentRules:
		var cfg domain.AssignmentConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return err
		}
		switch cfg.Mode {
		case domain.ModeRoundRobin, domain.ModeSourceBased, domain.ModeSinglePerson, domain.ModeManual:
		default:
			return fmt.Errorf("unknown assignment mode %q", cfg.Mode)
		}
		if cfg.Mode == domain.ModeSinglePerson && cfg.DefaultAssignee == "" {
			return fmt.Errorf("single_person mode requires defaultAssignee")
		}
		for _, rule := range cfg.SourceRules {
			if rule.Source == "" || rule.AssignTo == "" {
				return fmt.Errorf("source rules require source and assignTo")
			}
		}
		return nil

	case KeyAutomationRules:
		var table map[string]domain.ActionSet
		return json.Unmarshal(raw, &table)

	case KeyManagers:
		var roster []domain.Employee
		if err := json.Unmarshal(raw, &roster); err != nil {
			return err
		}
		for i, emp := range roster {
			if emp.Name == "" {
				return fmt.Errorf("roster entry %d has no name", i)
			}
			if emp.Name == domain.ManagerUnassigned {
				return fmt.Errorf("%q is a reserved name", domain.ManagerUnassigned)
			}
		}
		return nil

	case KeyEventTypes:
		var types []string
		return json.Unmarshal(raw, &types)

	default:
		return fmt.Errorf("unknown policy key %q", key)
	}
}
