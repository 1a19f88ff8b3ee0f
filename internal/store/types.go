package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/arena/internal/event"
)

// Battle is a journaled battle.
type Battle struct {
	ID     string
	Name   string
	Config json.RawMessage
	Result json.RawMessage // nil until FinishBattle
	Seq    int64
}

// DecodeConfig unmarshals the stored configuration into v.
func (b Battle) DecodeConfig(v any) error {
	return unmarshalDocument(string(b.Config), v)
}

// DecodeResult unmarshals the stored result into v. It leaves v alone if
// the battle has not finished.
func (b Battle) DecodeResult(v any) error {
	return unmarshalDocument(string(b.Result), v)
}

// Delivery is one event handed to an agent's handler.
type Delivery struct {
	ID       int64
	BattleID string
	Round    int
	Agent    string
	Seq      int64
	Tick     int64
	Kind     event.Kind
	Priority int
	Critical bool
	Payload  json.RawMessage
}

// Event rebuilds the delivered event, frozen with its original time and
// sequence number.
func (d Delivery) Event() (*event.Event, error) {
	p, err := event.UnmarshalPayload(d.Kind, d.Payload)
	if err != nil {
		return nil, fmt.Errorf("delivery %d: %w", d.ID, err)
	}
	e := event.NewAt(d.Tick, p)
	if !e.IsCritical() {
		if err := e.SetPriority(d.Priority); err != nil {
			return nil, fmt.Errorf("delivery %d: %w", d.ID, err)
		}
	}
	if err := e.Freeze(d.Tick, uint64(d.Seq)); err != nil {
		return nil, fmt.Errorf("delivery %d: %w", d.ID, err)
	}
	return e, nil
}

// DeliveryFilter narrows ReadDeliveries. Zero values match everything.
type DeliveryFilter struct {
	Round int
	Agent string
	Kind  event.Kind
}
