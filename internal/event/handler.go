package event

import "strings"

// Capability is a bitmask of the handler groups an agent declares.
type Capability uint8

const (
	CapBasic Capability = 1 << iota
	CapAdvanced
	CapInteractive
	CapPaint
	CapTeam

	CapAll = CapBasic | CapAdvanced | CapInteractive | CapPaint | CapTeam
)

var capNames = []struct {
	c    Capability
	name string
}{
	{CapBasic, "basic"},
	{CapAdvanced, "advanced"},
	{CapInteractive, "interactive"},
	{CapPaint, "paint"},
	{CapTeam, "team"},
}

// Has reports whether every bit of want is present.
func (c Capability) Has(want Capability) bool {
	return want != 0 && c&want == want
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range capNames {
		if c&n.c != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// BasicEvents is implemented by every agent that wants movement, combat and
// lifecycle notifications.
type BasicEvents interface {
	OnStatus(e *Event, s Status)
	OnScannedAgent(e *Event, s ScannedAgent)
	OnHitWall(e *Event, h HitWall)
	OnHitAgent(e *Event, h HitAgent)
	OnHitObstacle(e *Event, h HitObstacle)
	OnHitByProjectile(e *Event, h HitByProjectile)
	OnProjectileHit(e *Event, h ProjectileHit)
	OnProjectileHitProjectile(e *Event, h ProjectileHitProjectile)
	OnProjectileMissed(e *Event, m ProjectileMissed)
	OnAgentDeath(e *Event, d AgentDeath)
	OnDeath(e *Event)
	OnWin(e *Event)
	OnRoundEnded(e *Event, r RoundEnded)
	OnBattleEnded(e *Event, b BattleEnded)
}

// AdvancedEvents covers custom conditions, skipped turns and object scans.
type AdvancedEvents interface {
	OnCustom(e *Event, c Custom)
	OnSkippedTurn(e *Event, s SkippedTurn)
	OnScannedObject(e *Event, s ScannedObject)
}

type InteractiveEvents interface {
	OnKeyPressed(e *Event, k Key)
	OnKeyReleased(e *Event, k Key)
	OnKeyTyped(e *Event, k Key)
	OnMouseClicked(e *Event, m Mouse)
	OnMouseDragged(e *Event, m Mouse)
	OnMouseEntered(e *Event, m Mouse)
	OnMouseExited(e *Event, m Mouse)
	OnMouseMoved(e *Event, m Mouse)
	OnMousePressed(e *Event, m Mouse)
	OnMouseReleased(e *Event, m Mouse)
	OnMouseWheelMoved(e *Event, m Mouse)
}

type PaintEvents interface {
	OnPaint(e *Event, g Graphics)
}

type TeamEvents interface {
	OnMessage(e *Event, m Message)
}

// HandlerSet is an agent's declared capabilities plus the handler for each.
// A group is active only when its bit is set and its handler is non-nil.
type HandlerSet struct {
	Caps        Capability
	Basic       BasicEvents
	Advanced    AdvancedEvents
	Interactive InteractiveEvents
	Paint       PaintEvents
	Team        TeamEvents
}

// Accepts reports whether the set would deliver events of kind k.
func (hs HandlerSet) Accepts(k Kind) bool {
	c := k.Capability()
	if !hs.Caps.Has(c) {
		return false
	}
	switch c {
	case CapBasic:
		return hs.Basic != nil
	case CapAdvanced:
		return hs.Advanced != nil
	case CapInteractive:
		return hs.Interactive != nil
	case CapPaint:
		return hs.Paint != nil
	case CapTeam:
		return hs.Team != nil
	}
	return false
}

// Dispatch invokes the handler matching the event kind. It returns false
// without calling anything when the agent lacks the capability.
func (e *Event) Dispatch(hs HandlerSet) bool {
	if !hs.Accepts(e.kind) {
		return false
	}
	switch p := e.payload.(type) {
	case Status:
		hs.Basic.OnStatus(e, p)
	case ScannedAgent:
		hs.Basic.OnScannedAgent(e, p)
	case HitWall:
		hs.Basic.OnHitWall(e, p)
	case HitAgent:
		hs.Basic.OnHitAgent(e, p)
	case HitObstacle:
		hs.Basic.OnHitObstacle(e, p)
	case HitByProjectile:
		hs.Basic.OnHitByProjectile(e, p)
	case ProjectileHit:
		hs.Basic.OnProjectileHit(e, p)
	case ProjectileHitProjectile:
		hs.Basic.OnProjectileHitProjectile(e, p)
	case ProjectileMissed:
		hs.Basic.OnProjectileMissed(e, p)
	case AgentDeath:
		hs.Basic.OnAgentDeath(e, p)
	case Death:
		hs.Basic.OnDeath(e)
	case Win:
		hs.Basic.OnWin(e)
	case RoundEnded:
		hs.Basic.OnRoundEnded(e, p)
	case BattleEnded:
		hs.Basic.OnBattleEnded(e, p)

	case Custom:
		hs.Advanced.OnCustom(e, p)
	case SkippedTurn:
		hs.Advanced.OnSkippedTurn(e, p)
	case ScannedObject:
		hs.Advanced.OnScannedObject(e, p)

	case KeyPressed:
		hs.Interactive.OnKeyPressed(e, p.Key)
	case KeyReleased:
		hs.Interactive.OnKeyReleased(e, p.Key)
	case KeyTyped:
		hs.Interactive.OnKeyTyped(e, p.Key)
	case MouseClicked:
		hs.Interactive.OnMouseClicked(e, p.Mouse)
	case MouseDragged:
		hs.Interactive.OnMouseDragged(e, p.Mouse)
	case MouseEntered:
		hs.Interactive.OnMouseEntered(e, p.Mouse)
	case MouseExited:
		hs.Interactive.OnMouseExited(e, p.Mouse)
	case MouseMoved:
		hs.Interactive.OnMouseMoved(e, p.Mouse)
	case MousePressed:
		hs.Interactive.OnMousePressed(e, p.Mouse)
	case MouseReleased:
		hs.Interactive.OnMouseReleased(e, p.Mouse)
	case MouseWheelMoved:
		hs.Interactive.OnMouseWheelMoved(e, p.Mouse)

	case Paint:
		hs.Paint.OnPaint(e, p.Graphics)
	case Message:
		hs.Team.OnMessage(e, p)
	default:
		return false
	}
	return true
}

// NopBasic implements BasicEvents with empty methods. Agents embed it and
// override what they need; the same holds for the other Nop types.
type NopBasic struct{}

func (NopBasic) OnStatus(*Event, Status)                                   {}
func (NopBasic) OnScannedAgent(*Event, ScannedAgent)                       {}
func (NopBasic) OnHitWall(*Event, HitWall)                                 {}
func (NopBasic) OnHitAgent(*Event, HitAgent)                               {}
func (NopBasic) OnHitObstacle(*Event, HitObstacle)                         {}
func (NopBasic) OnHitByProjectile(*Event, HitByProjectile)                 {}
func (NopBasic) OnProjectileHit(*Event, ProjectileHit)                     {}
func (NopBasic) OnProjectileHitProjectile(*Event, ProjectileHitProjectile) {}
func (NopBasic) OnProjectileMissed(*Event, ProjectileMissed)               {}
func (NopBasic) OnAgentDeath(*Event, AgentDeath)                           {}
func (NopBasic) OnDeath(*Event)                                            {}
func (NopBasic) OnWin(*Event)                                              {}
func (NopBasic) OnRoundEnded(*Event, RoundEnded)                           {}
func (NopBasic) OnBattleEnded(*Event, BattleEnded)                         {}

type NopAdvanced struct{}

func (NopAdvanced) OnCustom(*Event, Custom)               {}
func (NopAdvanced) OnSkippedTurn(*Event, SkippedTurn)     {}
func (NopAdvanced) OnScannedObject(*Event, ScannedObject) {}

type NopInteractive struct{}

func (NopInteractive) OnKeyPressed(*Event, Key)        {}
func (NopInteractive) OnKeyReleased(*Event, Key)       {}
func (NopInteractive) OnKeyTyped(*Event, Key)          {}
func (NopInteractive) OnMouseClicked(*Event, Mouse)    {}
func (NopInteractive) OnMouseDragged(*Event, Mouse)    {}
func (NopInteractive) OnMouseEntered(*Event, Mouse)    {}
func (NopInteractive) OnMouseExited(*Event, Mouse)     {}
func (NopInteractive) OnMouseMoved(*Event, Mouse)      {}
func (NopInteractive) OnMousePressed(*Event, Mouse)    {}
func (NopInteractive) OnMouseReleased(*Event, Mouse)   {}
func (NopInteractive) OnMouseWheelMoved(*Event, Mouse) {}

type NopPaint struct{}

func (NopPaint) OnPaint(*Event, Graphics) {}

type NopTeam struct{}

func (NopTeam) OnMessage(*Event, Message) {}
