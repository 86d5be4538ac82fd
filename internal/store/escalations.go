package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/sentinel/internal/escalation"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// RecordEscalation stores a specialist handoff ticket.
func (s *Store) RecordEscalation(ctx context.Context, t escalation.Ticket) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO escalations (ticket_id, name, phone, issue, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, t.Phone, t.Issue, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

// GetEscalation fetches a ticket by ID.
func (s *Store) GetEscalation(ctx context.Context, ticketID string) (*escalation.Ticket, error) {
	var t escalation.Ticket
	err := s.pool.QueryRow(ctx, `
		SELECT ticket_id, name, phone, issue, created_at
		FROM escalations
		WHERE ticket_id = $1`,
		ticketID,
	).Scan(&t.ID, &t.Name, &t.Phone, &t.Issue, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get escalation: %w", err)
	}
	return &t, nil
}
