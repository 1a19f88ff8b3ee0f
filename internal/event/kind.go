package event

import (
	"fmt"
	"strings"
)

// Kind identifies the variant carried by an Event.
type Kind int

const (
	KindStatus Kind = iota + 1
	KindScannedAgent
	KindScannedObject
	KindHitWall
	KindHitAgent
	KindHitObstacle
	KindHitByProjectile
	KindProjectileHit
	KindProjectileHitProjectile
	KindProjectileMissed
	KindAgentDeath
	KindCustom
	KindDeath
	KindWin
	KindRoundEnded
	KindBattleEnded
	KindSkippedTurn
	KindPaint
	KindKeyPressed
	KindKeyReleased
	KindKeyTyped
	KindMouseClicked
	KindMouseDragged
	KindMouseEntered
	KindMouseExited
	KindMouseMoved
	KindMousePressed
	KindMouseReleased
	KindMouseWheelMoved
	KindMessage

	kindCount = int(KindMessage) + 1
)

// Reserved priorities. Only critical kinds carry them.
const (
	PriorityCritical = 100
	PriorityTerminal = -1

	MinPriority     = 0
	MaxPriority     = 99
	DefaultPriority = 80
)

type kindInfo struct {
	name          string
	priority      int
	critical      bool
	capability    Capability
	transmissible bool
}

var kinds = [kindCount]kindInfo{
	KindStatus:                  {"Status", 99, false, CapBasic, true},
	KindScannedAgent:            {"ScannedAgent", 10, false, CapBasic, true},
	KindScannedObject:           {"ScannedObject", 30, false, CapAdvanced, true},
	KindHitWall:                 {"HitWall", 30, false, CapBasic, true},
	KindHitAgent:                {"HitAgent", 40, false, CapBasic, true},
	KindHitObstacle:             {"HitObstacle", 45, false, CapBasic, true},
	KindHitByProjectile:         {"HitByProjectile", 20, false, CapBasic, true},
	KindProjectileHit:           {"ProjectileHit", 50, false, CapBasic, true},
	KindProjectileHitProjectile: {"ProjectileHitProjectile", 55, false, CapBasic, true},
	KindProjectileMissed:        {"ProjectileMissed", 60, false, CapBasic, true},
	KindAgentDeath:              {"AgentDeath", 70, false, CapBasic, true},
	KindCustom:                  {"Custom", DefaultPriority, false, CapAdvanced, false},
	KindDeath:                   {"Death", PriorityTerminal, true, CapBasic, true},
	KindWin:                     {"Win", PriorityCritical, true, CapBasic, true},
	KindRoundEnded:              {"RoundEnded", PriorityCritical, true, CapBasic, true},
	KindBattleEnded:             {"BattleEnded", PriorityCritical, true, CapBasic, true},
	KindSkippedTurn:             {"SkippedTurn", PriorityCritical, true, CapAdvanced, true},
	KindPaint:                   {"Paint", 5, false, CapPaint, false},
	KindKeyPressed:              {"KeyPressed", 98, false, CapInteractive, true},
	KindKeyReleased:             {"KeyReleased", 98, false, CapInteractive, true},
	KindKeyTyped:                {"KeyTyped", 98, false, CapInteractive, true},
	KindMouseClicked:            {"MouseClicked", 98, false, CapInteractive, true},
	KindMouseDragged:            {"MouseDragged", 98, false, CapInteractive, true},
	KindMouseEntered:            {"MouseEntered", 98, false, CapInteractive, true},
	KindMouseExited:             {"MouseExited", 98, false, CapInteractive, true},
	KindMouseMoved:              {"MouseMoved", 98, false, CapInteractive, true},
	KindMousePressed:            {"MousePressed", 98, false, CapInteractive, true},
	KindMouseReleased:           {"MouseReleased", 98, false, CapInteractive, true},
	KindMouseWheelMoved:         {"MouseWheelMoved", 98, false, CapInteractive, true},
	KindMessage:                 {"Message", 75, false, CapTeam, false},
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindStatus; k <= KindMessage; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k is a defined kind.
func (k Kind) Valid() bool {
	return k >= KindStatus && k <= KindMessage
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].name
}

// DefaultPriority returns the priority a fresh event of this kind starts with.
func (k Kind) DefaultPriority() int {
	if !k.Valid() {
		return DefaultPriority
	}
	return kinds[k].priority
}

// Critical reports whether events of this kind bypass delivery budgets and
// queue limits. Critical kinds have fixed, reserved priorities.
func (k Kind) Critical() bool {
	return k.Valid() && kinds[k].critical
}

// Capability returns the handler capability an agent must declare to
// receive this kind.
func (k Kind) Capability() Capability {
	if !k.Valid() {
		return 0
	}
	return kinds[k].capability
}

// Transmissible reports whether events of this kind may be serialized.
func (k Kind) Transmissible() bool {
	return k.Valid() && kinds[k].transmissible
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid event kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name (see ParseKind).
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind resolves a kind by name. Matching ignores case and an optional
// "Event" suffix, so "scannedagent" and "ScannedAgentEvent" both resolve.
func ParseKind(name string) (Kind, error) {
	n := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "event")
	for k := KindStatus; k <= KindMessage; k++ {
		if strings.ToLower(kinds[k].name) == n {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// ClampPriority bounds p to [MinPriority, MaxPriority] and reports whether
// it had to be adjusted.
func ClampPriority(p int) (int, bool) {
	switch {
	case p < MinPriority:
		return MinPriority, true
	case p > MaxPriority:
		return MaxPriority, true
	}
	return p, false
}

// IsReservedPriority reports whether p is one of the values kept for
// critical kinds.
func IsReservedPriority(p int) bool {
	return p == PriorityCritical || p == PriorityTerminal
}
