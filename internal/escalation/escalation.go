// Package escalation hands a caller to a human specialist.
package escalation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/sentinel/internal/hermes"
)

// Ticket is a request for a specialist to call the customer back.
type Ticket struct {
	ID        string    `json:"ticket_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Issue     string    `json:"issue"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder persists tickets.
type Recorder interface {
	RecordEscalation(ctx context.Context, t Ticket) error
}

// Publisher notifies the specialist desk.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier tells people about a new ticket.
type Notifier interface {
	NotifyEscalation(ctx context.Context, t Ticket) error
}

// Service creates escalation tickets. All collaborators are optional.
type Service struct {
	recorder  Recorder
	publisher Publisher
	notifiers []Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func New(recorder Recorder, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		recorder:  recorder,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNotifier adds n to the notifiers told about every ticket. Notification
// failures are logged and do not fail the escalation.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifiers = append(s.notifiers, n)
	return s
}

// Escalate opens a ticket for the caller and returns the confirmation shown
// to them. Recording or publishing failures are returned as errors.
func (s *Service) Escalate(ctx context.Context, name, issue, phone string) (string, error) {
	t := Ticket{
		ID:        newTicketID(),
		Name:      name,
		Phone:     phone,
		Issue:     issue,
		CreatedAt: s.now().UTC(),
	}

	if s.recorder != nil {
		if err := s.recorder.RecordEscalation(ctx, t); err != nil {
			return "", fmt.Errorf("record escalation %s: %w", t.ID, err)
		}
	}

	if s.publisher != nil {
		evt := hermes.EscalationEvent{
			TicketID:  t.ID,
			Name:      t.Name,
			Phone:     t.Phone,
			Issue:     t.Issue,
			CreatedAt: t.CreatedAt,
		}
		if err := s.publisher.Publish(hermes.SubjectEscalationRequested, evt); err != nil {
			return "", fmt.Errorf("publish escalation %s: %w", t.ID, err)
		}
	}

	for _, n := range s.notifiers {
		if err := n.NotifyEscalation(ctx, t); err != nil {
			s.logger.Warn("escalation notification failed", zap.String("ticket_id", t.ID), zap.Error(err))
		}
	}

	s.logger.Info("escalation created",
		zap.String("ticket_id", t.ID),
		zap.String("name", t.Name),
	)

	return Confirmation(t), nil
}

// Confirmation is the text appended to the assistant reply for t.
func Confirmation(t Ticket) string {
	return fmt.Sprintf("Escalation ticket %s created. A specialist from our team will call %s at %s shortly.", t.ID, t.Name, t.Phone)
}

func newTicketID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ESC-" + strings.ToUpper(id[:8])
}
