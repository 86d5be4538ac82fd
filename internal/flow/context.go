package flow

import "strings"

const contextHeader = "### INTERNAL AGENT STATE ###"

// contextKeys is the fixed order and label of the data line, keyed by the
// profile field that supplies each value.
var contextKeys = []struct {
	label string
	field Field
}{
	{"name", FieldName},
	{"phone", FieldContactInfo},
	{"policy_id", FieldPolicyNumber},
}

// BuildContext renders the state block sent alongside the user message.
// Values extracted this turn take precedence over stored profile values.
// The output depends only on its inputs.
func BuildContext(profile Profile, state State, extracted map[Field]string) string {
	lines := []string{contextHeader}

	known := make([]string, 0, len(contextKeys))
	var phone string
	for _, k := range contextKeys {
		v := profile.Get(k.field)
		if fresh := extracted[k.field]; fresh != "" {
			v = fresh
		}
		if k.field == FieldContactInfo {
			phone = v
		}
		if v != "" {
			known = append(known, k.label+": "+v)
		}
	}
	if len(known) > 0 {
		lines = append(lines, "AVAILABLE_DATA: "+strings.Join(known, ", "))
	}

	lines = append(lines, "CURRENT_PHASE: "+string(state))

	if state == StateSalesFlow && phone == "" {
		lines = append(lines, "MISSING_REQUIRED: Phone number needed for quote.")
	}

	return strings.Join(lines, "\n")
}
