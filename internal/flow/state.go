package flow

// State is the active conversation flow for a session.
type State string

const (
	StateGreeting      State = "greeting"
	StateSupportFlow   State = "support_flow"
	StateSalesFlow     State = "sales_flow"
	StateErrorHandling State = "error_handling"
)

// States lists every conversation state in declaration order.
var States = []State{StateGreeting, StateSupportFlow, StateSalesFlow, StateErrorHandling}

// ParseState maps s onto the state enumeration. Anything unrecognised
// becomes StateGreeting.
func ParseState(s string) State {
	switch State(s) {
	case StateGreeting, StateSupportFlow, StateSalesFlow, StateErrorHandling:
		return State(s)
	default:
		return StateGreeting
	}
}

// Normalize returns s if it is a known state, otherwise StateGreeting.
func (s State) Normalize() State {
	return ParseState(string(s))
}

func (s State) String() string { return string(s) }

// UnmarshalText normalizes on decode so a stored session never carries an
// unknown state.
func (s *State) UnmarshalText(b []byte) error {
	*s = ParseState(string(b))
	return nil
}

// isNormal reports whether s is one of the three states reachable by intent.
func (s State) isNormal() bool {
	return s == StateGreeting || s == StateSupportFlow || s == StateSalesFlow
}

// Intent is the coarse category of what the user wants this turn.
type Intent string

const (
	IntentGreeting Intent = "greeting"
	IntentSupport  Intent = "support"
	IntentSales    Intent = "sales"
	IntentGeneral  Intent = "general"

	// IntentError is only produced by the orchestrator failure path.
	IntentError Intent = "error"
)

// Intents lists the classifiable intents.
var Intents = []Intent{IntentGreeting, IntentSupport, IntentSales, IntentGeneral}

// ParseIntent returns the intent named s, or false if s is not one of the
// classifiable intents.
func ParseIntent(s string) (Intent, bool) {
	for _, i := range Intents {
		if string(i) == s {
			return i, true
		}
	}
	return "", false
}

func (i Intent) String() string { return string(i) }

// Transition returns the next state for the detected intent.
//
// support and sales always route to their flows. error_handling recovers
// to greeting on anything else. Otherwise a normal state is kept.
func Transition(current State, intent Intent) State {
	switch {
	case intent == IntentSupport:
		return StateSupportFlow
	case intent == IntentSales:
		return StateSalesFlow
	case current == StateErrorHandling:
		return StateGreeting
	case current.isNormal():
		return current
	default:
		return StateGreeting
	}
}
