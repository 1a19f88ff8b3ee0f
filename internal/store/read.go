package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/arena/internal/event"
)

// ErrBattleNotFound is returned when a battle ID is not in the journal.
var ErrBattleNotFound = errors.New("battle not found")

// ReadBattle returns one battle.
func (s *Store) ReadBattle(ctx context.Context, id string) (Battle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, config, result, seq
		FROM battles
		WHERE id = ?
	`, id)
	b, err := scanBattle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Battle{}, fmt.Errorf("%w: %s", ErrBattleNotFound, id)
	}
	return b, err
}

// ListBattles returns every battle in the order they were written.
func (s *Store) ListBattles(ctx context.Context) ([]Battle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, config, result, seq
		FROM battles
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query battles: %w", err)
	}
	defer rows.Close()

	battles := []Battle{}
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		battles = append(battles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate battles: %w", err)
	}
	return battles, nil
}

// ReadDeliveries returns the journaled deliveries of a battle, ordered by
// round, agent and seq.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadDeliveries(ctx context.Context, battleID string, f DeliveryFilter) ([]Delivery, error) {
	var (
		where = []string{"battle_id = ?"}
		args  = []any{battleID}
	)
	if f.Round > 0 {
		where = append(where, "round = ?")
		args = append(args, f.Round)
	}
	if f.Agent != "" {
		where = append(where, "agent = ?")
		args = append(args, f.Agent)
	}
	if f.Kind != 0 {
		where = append(where, "kind = ?")
		args = append(args, f.Kind.String())
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, battle_id, round, agent, seq, tick, kind, priority, critical, payload
		FROM deliveries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY round ASC, agent COLLATE BINARY ASC, seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return deliveries, nil
}

// CountDeliveries returns how many deliveries each kind had in a battle.
func (s *Store) CountDeliveries(ctx context.Context, battleID string) (map[event.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM deliveries
		WHERE battle_id = ?
		GROUP BY kind
		ORDER BY kind COLLATE BINARY ASC
	`, battleID)
	if err != nil {
		return nil, fmt.Errorf("count deliveries: %w", err)
	}
	defer rows.Close()

	counts := make(map[event.Kind]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		k, err := event.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[k] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBattle(row scanner) (Battle, error) {
	var (
		b      Battle
		config string
		result sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Name, &config, &result, &b.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Battle{}, err
		}
		return Battle{}, fmt.Errorf("scan battle: %w", err)
	}
	b.Config = json.RawMessage(config)
	if result.Valid {
		b.Result = json.RawMessage(result.String)
	}
	return b, nil
}

func scanDelivery(row scanner) (Delivery, error) {
	var (
		d       Delivery
		kind    string
		payload string
	)
	if err := row.Scan(&d.ID, &d.BattleID, &d.Round, &d.Agent, &d.Seq, &d.Tick,
		&kind, &d.Priority, &d.Critical, &payload); err != nil {
		return Delivery{}, fmt.Errorf("scan delivery: %w", err)
	}
	k, err := event.ParseKind(kind)
	if err != nil {
		return Delivery{}, fmt.Errorf("scan delivery %d: %w", d.ID, err)
	}
	d.Kind = k
	d.Payload = json.RawMessage(payload)
	return d, nil
}
