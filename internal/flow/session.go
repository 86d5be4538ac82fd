package flow

import "time"

// Role is the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Modality is how a message entered the system.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
)

// ParseModality defaults to text for anything other than "voice".
func ParseModality(s string) Modality {
	if s == string(ModalityVoice) {
		return ModalityVoice
	}
	return ModalityText
}

// Turn is one side of an exchange. Position is its zero-based index in the
// session history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Modality  Modality  `json:"modality"`
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the mutable per-conversation state. A session is owned by one
// caller at a time and is not safe for concurrent turns.
type Session struct {
	ID           string    `json:"id"`
	State        State     `json:"state"`
	Profile      Profile   `json:"profile"`
	History      []Turn    `json:"history"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewSession returns an empty session in the greeting state.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		State:        StateGreeting,
		StartedAt:    now,
		LastActivity: now,
	}
}

// Append adds a turn to the end of the history.
func (s *Session) Append(role Role, content string, modality Modality, at time.Time) Turn {
	t := Turn{
		Role:      role,
		Content:   content,
		Modality:  modality,
		Position:  len(s.History),
		Timestamp: at,
	}
	s.History = append(s.History, t)
	s.LastActivity = at
	return t
}

// Recent returns up to n of the latest turns in insertion order. n <= 0
// returns the whole history.
func (s *Session) Recent(n int) []Turn {
	if n <= 0 || n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Reset clears the conversation, profile and state, keeping the ID.
func (s *Session) Reset(now time.Time) {
	s.State = StateGreeting
	s.Profile = Profile{}
	s.History = nil
	s.StartedAt = now
	s.LastActivity = now
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	if s.History != nil {
		c.History = make([]Turn, len(s.History))
		copy(c.History, s.History)
	}
	return &c
}

// Stats summarises a session for display.
type Stats struct {
	MessageCount    int           `json:"message_count"`
	Duration        time.Duration `json:"duration_ns"`
	CurrentState    State         `json:"current_state"`
	CollectedFields []Field       `json:"collected_fields"`
	ProfileComplete bool          `json:"profile_complete"`
	LastActivity    time.Time     `json:"last_activity"`
}

func (s *Session) Stats(now time.Time) Stats {
	return Stats{
		MessageCount:    len(s.History),
		Duration:        now.Sub(s.StartedAt),
		CurrentState:    s.State.Normalize(),
		CollectedFields: s.Profile.Collected(),
		ProfileComplete: s.Profile.IsComplete(),
		LastActivity:    s.LastActivity,
	}
}
