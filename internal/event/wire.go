package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelope is the serialized form of an Event.
type envelope struct {
	Kind     Kind            `json:"kind"`
	Time     int64           `json:"time"`
	Priority int             `json:"priority"`
	Payload  json.RawMessage `json:"payload"`
}

// Marshal encodes a transmissible event. Paint, Message and Custom events
// return *UnsupportedOperationError.
func Marshal(e *Event) ([]byte, error) {
	payload, err := MarshalPayload(e.payload)
	if err != nil {
		return nil, err
	}
	return encode(envelope{
		Kind:     e.kind,
		Time:     e.time,
		Priority: e.priority,
		Payload:  payload,
	})
}

// MarshalPayload encodes only the payload of a transmissible kind.
func MarshalPayload(p Payload) ([]byte, error) {
	if !p.Kind().Transmissible() {
		return nil, &UnsupportedOperationError{Kind: p.Kind(), Op: "marshal"}
	}
	return encode(p)
}

// Unmarshal decodes an event produced by Marshal. The result is frozen.
func Unmarshal(data []byte) (*Event, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	p, err := UnmarshalPayload(env.Kind, env.Payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		kind:     env.Kind,
		time:     env.Time,
		priority: env.Priority,
		frozen:   true,
		payload:  p,
	}, nil
}

// UnmarshalPayload decodes a payload of the given kind.
func UnmarshalPayload(k Kind, raw []byte) (Payload, error) {
	if !k.Transmissible() {
		return nil, &UnsupportedOperationError{Kind: k, Op: "unmarshal"}
	}
	switch k {
	case KindStatus:
		return decode[Status](raw)
	case KindScannedAgent:
		return decode[ScannedAgent](raw)
	case KindScannedObject:
		return decode[ScannedObject](raw)
	case KindHitWall:
		return decode[HitWall](raw)
	case KindHitAgent:
		return decode[HitAgent](raw)
	case KindHitObstacle:
		return decode[HitObstacle](raw)
	case KindHitByProjectile:
		return decode[HitByProjectile](raw)
	case KindProjectileHit:
		return decode[ProjectileHit](raw)
	case KindProjectileHitProjectile:
		return decode[ProjectileHitProjectile](raw)
	case KindProjectileMissed:
		return decode[ProjectileMissed](raw)
	case KindAgentDeath:
		return decode[AgentDeath](raw)
	case KindDeath:
		return decode[Death](raw)
	case KindWin:
		return decode[Win](raw)
	case KindRoundEnded:
		return decode[RoundEnded](raw)
	case KindBattleEnded:
		return decode[BattleEnded](raw)
	case KindSkippedTurn:
		return decode[SkippedTurn](raw)
	case KindKeyPressed:
		return decode[KeyPressed](raw)
	case KindKeyReleased:
		return decode[KeyReleased](raw)
	case KindKeyTyped:
		return decode[KeyTyped](raw)
	case KindMouseClicked:
		return decode[MouseClicked](raw)
	case KindMouseDragged:
		return decode[MouseDragged](raw)
	case KindMouseEntered:
		return decode[MouseEntered](raw)
	case KindMouseExited:
		return decode[MouseExited](raw)
	case KindMouseMoved:
		return decode[MouseMoved](raw)
	case KindMousePressed:
		return decode[MousePressed](raw)
	case KindMouseReleased:
		return decode[MouseReleased](raw)
	case KindMouseWheelMoved:
		return decode[MouseWheelMoved](raw)
	}
	return nil, fmt.Errorf("no decoder for %s", k)
}

func decode[T Payload](raw []byte) (Payload, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode %T payload: %w", p, err)
	}
	return p, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
