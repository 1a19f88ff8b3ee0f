package store

import (
	"context"
	"fmt"

	"github.com/roach88/arena/internal/event"
)

// WriteBattle records a new battle with its configuration.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same
// battle twice is silently ignored.
func (s *Store) WriteBattle(ctx context.Context, id, name string, config any) error {
	configJSON, err := marshalDocument(config)
	if err != nil {
		return fmt.Errorf("write battle: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO battles (id, name, config, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM battles))
		ON CONFLICT(id) DO NOTHING
	`, id, name, configJSON)
	if err != nil {
		return fmt.Errorf("write battle: %w", err)
	}
	return nil
}

// FinishBattle stores the battle's result.
func (s *Store) FinishBattle(ctx context.Context, id string, result any) error {
	resultJSON, err := marshalDocument(result)
	if err != nil {
		return fmt.Errorf("finish battle: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE battles SET result = ? WHERE id = ?`, resultJSON, id)
	if err != nil {
		return fmt.Errorf("finish battle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish battle: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish battle: %w: %s", ErrBattleNotFound, id)
	}
	return nil
}

// WriteDelivery records one delivered event. Returns
// *event.UnsupportedOperationError for kinds that are not journaled.
//
// Uses ON CONFLICT DO NOTHING: each (battle, round, agent, seq) is
// written at most once.
func (s *Store) WriteDelivery(ctx context.Context, battleID string, round int, agent string, e *event.Event) error {
	payload, err := event.MarshalPayload(e.Payload())
	if err != nil {
		return fmt.Errorf("write delivery: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deliveries
		(battle_id, round, agent, seq, tick, kind, priority, critical, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		battleID,
		round,
		agent,
		int64(e.Seq()),
		e.Time(),
		e.Kind().String(),
		e.Priority(),
		e.IsCritical(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("write delivery: %w", err)
	}
	return nil
}
