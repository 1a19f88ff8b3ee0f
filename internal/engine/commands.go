package engine

import "github.com/roach88/arena/internal/event"

// Staged is one axis of staged input. Set distinguishes an explicit zero
// from no command.
type Staged struct {
	Value float64
	Set   bool
}

// Get returns the value and whether it was staged.
func (s Staged) Get() (float64, bool) { return s.Value, s.Set }

func stage(v float64) Staged { return Staged{Value: v, Set: true} }

// OutgoingMessage is a team message queued by an agent. An empty To
// broadcasts to every teammate.
type OutgoingMessage struct {
	To   string
	Data []byte
}

// Commands is everything an agent staged for one tick. Each axis holds the
// last value written before the commit.
type Commands struct {
	Move        Staged // distance, negative moves backwards
	TurnBody    Staged // degrees, positive is clockwise
	TurnGun     Staged
	TurnRadar   Staged
	Fire        Staged // power
	MaxVelocity Staged
	Scan        bool

	Messages []OutgoingMessage
	Debug    map[string]string
}

// Empty reports whether nothing was staged.
func (c Commands) Empty() bool {
	return !c.Move.Set && !c.TurnBody.Set && !c.TurnGun.Set && !c.TurnRadar.Set &&
		!c.Fire.Set && !c.MaxVelocity.Set && !c.Scan && len(c.Messages) == 0 && len(c.Debug) == 0
}

// Outcome is the physics report for one agent and one tick.
type Outcome struct {
	Status event.Status

	Scans                []event.ScannedAgent
	ObjectScans          []event.ScannedObject
	WallHits             []event.HitWall
	AgentHits            []event.HitAgent
	ObstacleHits         []event.HitObstacle
	HitsTaken            []event.HitByProjectile
	Hits                 []event.ProjectileHit
	ProjectileCollisions []event.ProjectileHitProjectile
	Misses               []event.ProjectileMissed
	Deaths               []event.AgentDeath

	// Died is set on the tick the agent's energy ran out.
	Died bool
}

// Payloads converts the outcome into event payloads, Status first.
func (o *Outcome) Payloads() []event.Payload {
	out := []event.Payload{o.Status}
	for _, s := range o.Scans {
		out = append(out, s)
	}
	for _, s := range o.ObjectScans {
		out = append(out, s)
	}
	for _, h := range o.WallHits {
		out = append(out, h)
	}
	for _, h := range o.AgentHits {
		out = append(out, h)
	}
	for _, h := range o.ObstacleHits {
		out = append(out, h)
	}
	for _, h := range o.HitsTaken {
		out = append(out, h)
	}
	for _, h := range o.Hits {
		out = append(out, h)
	}
	for _, h := range o.ProjectileCollisions {
		out = append(out, h)
	}
	for _, m := range o.Misses {
		out = append(out, m)
	}
	for _, d := range o.Deaths {
		out = append(out, d)
	}
	return out
}
