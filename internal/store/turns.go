package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sentinel/internal/flow"
)

// TurnRecord is everything archived about one processed turn.
type TurnRecord struct {
	SessionID  string
	Intent     flow.Intent
	FromState  flow.State
	ToState    flow.State
	Extracted  map[flow.Field]string
	Escalated  bool
	Failed     bool
	Model      string
	LatencyMS  float64
	TokenCount int
	// Turns holds the user and assistant turns appended to history. It is
	// empty for failed turns.
	Turns []flow.Turn
}

// RecordTurn writes the turn result and its history entries in one
// transaction.
func (s *Store) RecordTurn(ctx context.Context, rec TurnRecord) error {
	extracted := "{}"
	if len(rec.Extracted) > 0 {
		b, err := json.Marshal(rec.Extracted)
		if err != nil {
			return fmt.Errorf("marshal extracted: %w", err)
		}
		extracted = string(b)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO turn_results (id, session_id, intent, from_state, to_state, extracted, escalated, failed, model, latency_ms, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())`,
		uuid.New(), rec.SessionID, string(rec.Intent), string(rec.FromState), string(rec.ToState),
		extracted, rec.Escalated, rec.Failed, rec.Model, rec.LatencyMS, rec.TokenCount,
	)
	if err != nil {
		return fmt.Errorf("insert turn result: %w", err)
	}

	for _, t := range rec.Turns {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_turns (id, session_id, position, role, content, modality, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (session_id, position) DO UPDATE SET
				role = EXCLUDED.role,
				content = EXCLUDED.content,
				modality = EXCLUDED.modality,
				created_at = EXCLUDED.created_at`,
			uuid.New(), rec.SessionID, t.Position, string(t.Role), t.Content, string(t.Modality), t.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert turn %d: %w", t.Position, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListTurns returns up to limit archived turns for a session in position
// order. limit <= 0 returns all of them.
func (s *Store) ListTurns(ctx context.Context, sessionID string, limit int) ([]flow.Turn, error) {
	query := `
		SELECT position, role, content, modality, created_at
		FROM conversation_turns
		WHERE session_id = $1
		ORDER BY position`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []flow.Turn
	for rows.Next() {
		var (
			t              flow.Turn
			role, modality string
		)
		if err := rows.Scan(&t.Position, &role, &t.Content, &modality, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = flow.Role(role)
		t.Modality = flow.Modality(modality)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// DeleteSession removes a session's archived turns and results.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM conversation_turns WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM turn_results WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return tx.Commit(ctx)
}
