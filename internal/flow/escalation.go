package flow

import "strings"

// EscalationIndicators are the lowercase phrases that mark a generated reply
// as needing a human specialist. "operation '" comes from the tool failure
// message format and also matches unrelated quoted text.
var EscalationIndicators = []string{
	"requires specialist assistance",
	"specialist assistance",
	"not_supported",
	"operation '",
	"human agent",
	"escalate",
	"transfer to specialist",
	"connect you with a specialist",
}

// DetectEscalation reports whether reply contains any escalation indicator.
func DetectEscalation(reply string) bool {
	if reply == "" {
		return false
	}
	lower := strings.ToLower(reply)
	for _, indicator := range EscalationIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
