package domain

import (
	"strings"
	"unicode"
)

// DefaultRuleKey is the sentinel key consulted when no rule matches the
// lead's source exactly.
const DefaultRuleKey = "_default"

// ActionSet is the per-source automation toggle set. Dispatch to the actual
// channels is the caller's concern; this type only says what is enabled.
type ActionSet struct {
	AddToCallList    bool `json:"addToCallList"`
	SendNotification bool `json:"sendNotification"`
	EmailResponse    bool `json:"emailResponse"`
	TextAutoResponse bool `json:"textAutoResponse"`
	AIBot            bool `json:"aiBot"`
}

// SafeDefaultActionSet is the hard-coded fallback used when neither the exact
// source key nor _default exists in the rule table.
func SafeDefaultActionSet() ActionSet {
	return ActionSet{AddToCallList: true, SendNotification: true}
}

// NormalizeSourceKey derives a rule-table key from a source display name:
// lowercased, with whitespace runs collapsed to a single underscore.
func NormalizeSourceKey(displayName string) string {
	lowered := strings.ToLower(strings.TrimSpace(displayName))
	var b strings.Builder
	inSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteByte('_')
			inSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ResolveAutomation looks up the enabled action set for a source.
// Lookup order: exact normalized key, then _default, then the built-in
// safe default. Pure; no side effects.
func ResolveAutomation(sourceName string, table map[string]ActionSet) ActionSet {
	key := NormalizeSourceKey(sourceName)

	if rule, ok := table[key]; ok {
		return rule
	}
	if rule, ok := table[DefaultRuleKey]; ok {
		return rule
	}
	return SafeDefaultActionSet()
}
