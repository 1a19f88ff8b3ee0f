package physics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// Spawn places an agent at the start of each round. A zero position puts
// the agent on a ring around the centre of the field.
type Spawn struct {
	Name    string
	X, Y    float64
	Heading float64
}

type body struct {
	name    string
	spawn   Spawn
	alive   bool
	x, y    float64
	heading float64
	gun     float64
	radar   float64
	v       float64
	maxV    float64
	energy  float64
	gunHeat float64

	distance  float64
	bodyTurn  float64
	gunTurn   float64
	radarTurn float64
}

type projectile struct {
	id      int
	owner   string
	power   float64
	x, y    float64
	heading float64
}

// Kinematic is the reference battlefield model.
type Kinematic struct {
	width, height float64

	mu          sync.Mutex
	round       int
	bodies      map[string]*body
	order       []string
	projectiles []*projectile
	nextID      int
}

// NewKinematic creates a field of the given size holding spawns.
func NewKinematic(width, height float64, spawns []Spawn) (*Kinematic, error) {
	if width < 4*BodyRadius || height < 4*BodyRadius {
		return nil, fmt.Errorf("battlefield %.0fx%.0f is too small", width, height)
	}
	k := &Kinematic{
		width:  width,
		height: height,
		bodies: make(map[string]*body, len(spawns)),
	}
	for _, s := range spawns {
		if _, dup := k.bodies[s.Name]; dup {
			return nil, fmt.Errorf("duplicate agent %q", s.Name)
		}
		k.bodies[s.Name] = &body{name: s.Name, spawn: s}
		k.order = append(k.order, s.Name)
	}
	sort.Strings(k.order)
	return k, nil
}

// Reset places every agent for round and returns the start snapshots.
func (k *Kinematic) Reset(round int) (map[string]event.Status, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.round = round
	k.projectiles = nil
	out := make(map[string]event.Status, len(k.order))
	for i, name := range k.order {
		b := k.bodies[name]
		x, y := b.spawn.X, b.spawn.Y
		if x == 0 && y == 0 {
			x, y = k.ringPosition(i, len(k.order))
		}
		*b = body{
			name:    name,
			spawn:   b.spawn,
			alive:   true,
			x:       clamp(x, BodyRadius, k.width-BodyRadius),
			y:       clamp(y, BodyRadius, k.height-BodyRadius),
			heading: normalAbsolute(b.spawn.Heading),
			maxV:    MaxVelocity,
			energy:  StartEnergy,
			gunHeat: 3,
		}
		b.gun, b.radar = b.heading, b.heading
	}
	for _, name := range k.order {
		out[name] = k.status(k.bodies[name])
	}
	return out, nil
}

func (k *Kinematic) ringPosition(i, n int) (float64, float64) {
	r := math.Min(k.width, k.height)/2 - 2*BodyRadius
	s, c := sincos(360 * float64(i) / float64(n))
	return k.width/2 + r*s, k.height/2 + r*c
}

// Remove takes name out of the round. The host reports the removal to
// the survivors.
func (k *Kinematic) Remove(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if b, ok := k.bodies[name]; ok {
		b.alive = false
	}
}

// Step advances the field by one tick. Agents absent from cmds keep their
// previous movement.
func (k *Kinematic) Step(ctx context.Context, tick int64, cmds map[string]engine.Commands) (map[string]engine.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	live := k.live()
	out := make(map[string]*engine.Outcome, len(live))
	for _, b := range live {
		out[b.name] = &engine.Outcome{}
	}

	prevRadar := make(map[string]float64, len(live))
	for _, b := range live {
		k.apply(b, cmds[b.name])
		k.fire(b, cmds[b.name])
		prevRadar[b.name] = b.radar
		k.turn(b)
	}

	prev := make(map[string][2]float64, len(live))
	for _, b := range live {
		prev[b.name] = [2]float64{b.x, b.y}
		k.move(b, out[b.name])
	}
	k.collide(live, prev, out)
	k.advanceProjectiles(live, out)

	for _, b := range live {
		swept := b.radar != prevRadar[b.name] || cmds[b.name].Scan
		if swept {
			k.scan(b, prevRadar[b.name], live, out[b.name])
		}
	}

	var died []string
	for _, b := range live {
		if b.energy <= 0 {
			b.energy = 0
			b.alive = false
			out[b.name].Died = true
			died = append(died, b.name)
		}
	}
	for _, b := range live {
		for _, d := range died {
			if d != b.name {
				out[b.name].Deaths = append(out[b.name].Deaths, event.AgentDeath{Name: d})
			}
		}
	}

	result := make(map[string]engine.Outcome, len(out))
	for name, o := range out {
		o.Status = k.status(k.bodies[name])
		sortOutcome(o)
		result[name] = *o
	}
	return result, nil
}

func (k *Kinematic) live() []*body {
	var out []*body
	for _, name := range k.order {
		if b := k.bodies[name]; b.alive {
			out = append(out, b)
		}
	}
	return out
}

func (k *Kinematic) apply(b *body, c engine.Commands) {
	if v, ok := c.Move.Get(); ok {
		b.distance = v
	}
	if v, ok := c.TurnBody.Get(); ok {
		b.bodyTurn = v
	}
	if v, ok := c.TurnGun.Get(); ok {
		b.gunTurn = v
	}
	if v, ok := c.TurnRadar.Get(); ok {
		b.radarTurn = v
	}
	if v, ok := c.MaxVelocity.Get(); ok {
		b.maxV = clamp(math.Abs(v), 0, MaxVelocity)
	}
}

func (k *Kinematic) fire(b *body, c engine.Commands) {
	b.gunHeat = math.Max(0, b.gunHeat-GunCoolingRate)
	power, ok := c.Fire.Get()
	if !ok || b.gunHeat > 0 || b.energy <= 0 {
		return
	}
	power = clamp(math.Min(power, b.energy), MinProjectilePower, MaxProjectilePower)
	b.energy -= power
	b.gunHeat = GunHeat(power)
	k.nextID++
	k.projectiles = append(k.projectiles, &projectile{
		id: k.nextID, owner: b.name, power: power,
		x: b.x, y: b.y, heading: b.gun,
	})
}

func (k *Kinematic) turn(b *body) {
	step := turnStep(b.bodyTurn, TurnRate(b.v))
	b.heading = normalAbsolute(b.heading + step)
	b.bodyTurn -= step

	step = turnStep(b.gunTurn, GunTurnRate)
	b.gun = normalAbsolute(b.gun + step)
	b.gunTurn -= step

	step = turnStep(b.radarTurn, RadarTurnRate)
	b.radar = normalAbsolute(b.radar + step)
	b.radarTurn -= step
}

// nextVelocity accelerates by 1 and brakes by 2 towards the speed that
// covers the remaining distance without overshooting it. A body with no
// distance left stops.
func nextVelocity(v, distance, maxV float64) float64 {
	if distance == 0 {
		return 0
	}
	dir := math.Copysign(1, distance)
	if v*dir < 0 {
		if math.Abs(v) <= Deceleration {
			return 0
		}
		return v + dir*Deceleration
	}
	speed := math.Abs(v)
	goal := math.Min(maxV, math.Abs(distance))
	if speed < goal {
		speed = math.Min(goal, speed+Acceleration)
	} else {
		speed = math.Max(goal, speed-Deceleration)
	}
	speed = math.Min(speed, math.Abs(distance))
	return dir * speed
}

func (k *Kinematic) move(b *body, o *engine.Outcome) {
	b.v = nextVelocity(b.v, b.distance, b.maxV)
	b.distance -= b.v
	if math.Abs(b.distance) < 1e-9 {
		b.distance = 0
	}
	s, c := sincos(b.heading)
	b.x += s * b.v
	b.y += c * b.v

	hit := false
	var wallX, wallY float64
	switch {
	case b.x < BodyRadius:
		b.x, wallX, hit = BodyRadius, -1, true
	case b.x > k.width-BodyRadius:
		b.x, wallX, hit = k.width-BodyRadius, 1, true
	}
	switch {
	case b.y < BodyRadius:
		b.y, wallY, hit = BodyRadius, -1, true
	case b.y > k.height-BodyRadius:
		b.y, wallY, hit = k.height-BodyRadius, 1, true
	}
	if !hit {
		return
	}
	bearing := normalRelative(bearingTo(0, 0, wallX, wallY) - b.heading)
	b.energy -= WallHitDamage(b.v)
	b.v = 0
	b.distance = 0
	o.WallHits = append(o.WallHits, event.HitWall{Bearing: bearing})
}

// collide separates overlapping bodies. A body that moved into another
// this tick is at fault and is put back where it was.
func (k *Kinematic) collide(live []*body, prev map[string][2]float64, out map[string]*engine.Outcome) {
	for i, a := range live {
		for _, b := range live[i+1:] {
			if math.Hypot(a.x-b.x, a.y-b.y) >= 2*BodyRadius {
				continue
			}
			aFault := movedToward(a, b, prev[a.name])
			bFault := movedToward(b, a, prev[b.name])
			for _, p := range []struct {
				self, other *body
				fault       bool
			}{{a, b, aFault}, {b, a, bFault}} {
				p.self.energy -= AgentHitDamage
				out[p.self.name].AgentHits = append(out[p.self.name].AgentHits, event.HitAgent{
					Name:    p.other.name,
					Bearing: normalRelative(bearingTo(p.self.x, p.self.y, p.other.x, p.other.y) - p.self.heading),
					Energy:  p.other.energy,
					AtFault: p.fault,
				})
				if p.fault {
					pos := prev[p.self.name]
					p.self.x, p.self.y = pos[0], pos[1]
					p.self.v = 0
					p.self.distance = 0
				}
			}
		}
	}
}

func movedToward(self, other *body, from [2]float64) bool {
	before := math.Hypot(from[0]-other.x, from[1]-other.y)
	after := math.Hypot(self.x-other.x, self.y-other.y)
	return self.v != 0 && after < before
}

func (k *Kinematic) advanceProjectiles(live []*body, out map[string]*engine.Outcome) {
	var flying []*projectile
	gone := make(map[int]bool)
	for _, p := range k.projectiles {
		s, c := sincos(p.heading)
		speed := ProjectileSpeed(p.power)
		p.x += s * speed
		p.y += c * speed

		if p.x < 0 || p.x > k.width || p.y < 0 || p.y > k.height {
			gone[p.id] = true
			if o := out[p.owner]; o != nil {
				o.Misses = append(o.Misses, event.ProjectileMissed{Projectile: p.snapshot("", false)})
			}
			continue
		}
		if victim := k.hitBody(p, live); victim != nil {
			gone[p.id] = true
			damage := ProjectileDamage(p.power)
			victim.energy -= damage
			if owner := k.bodies[p.owner]; owner != nil && owner.alive {
				owner.energy += ProjectileBonus(p.power)
			}
			snap := p.snapshot(victim.name, false)
			out[victim.name].HitsTaken = append(out[victim.name].HitsTaken, event.HitByProjectile{
				Bearing:    normalRelative(p.heading + 180 - victim.heading),
				Projectile: snap,
			})
			if o := out[p.owner]; o != nil {
				o.Hits = append(o.Hits, event.ProjectileHit{
					Victim:       victim.name,
					VictimEnergy: math.Max(victim.energy, 0),
					Projectile:   snap,
				})
			}
			continue
		}
		flying = append(flying, p)
	}

	for i, a := range flying {
		for _, b := range flying[i+1:] {
			if gone[a.id] || gone[b.id] || a.owner == b.owner {
				continue
			}
			if math.Hypot(a.x-b.x, a.y-b.y) > 3 {
				continue
			}
			gone[a.id], gone[b.id] = true, true
			for _, pair := range [][2]*projectile{{a, b}, {b, a}} {
				if o := out[pair[0].owner]; o != nil {
					o.ProjectileCollisions = append(o.ProjectileCollisions, event.ProjectileHitProjectile{
						Projectile: pair[0].snapshot("", false),
						Hit:        pair[1].snapshot("", false),
					})
				}
			}
		}
	}

	k.projectiles = k.projectiles[:0]
	for _, p := range flying {
		if !gone[p.id] {
			k.projectiles = append(k.projectiles, p)
		}
	}
}

func (k *Kinematic) hitBody(p *projectile, live []*body) *body {
	for _, b := range live {
		if b.name == p.owner {
			continue
		}
		if math.Abs(p.x-b.x) <= BodyRadius && math.Abs(p.y-b.y) <= BodyRadius {
			return b
		}
	}
	return nil
}

func (p *projectile) snapshot(victim string, active bool) event.Projectile {
	return event.Projectile{
		ID:      p.id,
		Owner:   p.owner,
		Victim:  victim,
		Power:   p.power,
		X:       p.x,
		Y:       p.y,
		Heading: p.heading,
		Active:  active,
	}
}

// scan reports every other body whose silhouette overlaps the arc the
// radar swept from `from` to its current heading.
func (k *Kinematic) scan(b *body, from float64, live []*body, o *engine.Outcome) {
	sweep := normalRelative(b.radar - from)
	start := from
	if sweep < 0 {
		start, sweep = b.radar, -sweep
	}
	for _, t := range live {
		if t == b {
			continue
		}
		dist := math.Hypot(t.x-b.x, t.y-b.y)
		if dist > RadarScanRadius {
			continue
		}
		abs := bearingTo(b.x, b.y, t.x, t.y)
		halfWidth := math.Atan2(BodyRadius, dist) * 180 / math.Pi
		offset := normalAbsolute(abs - start)
		if offset > sweep+halfWidth && 360-offset > halfWidth {
			continue
		}
		o.Scans = append(o.Scans, event.ScannedAgent{
			Name:     t.name,
			Energy:   t.energy,
			Bearing:  normalRelative(abs - b.heading),
			Distance: dist,
			Heading:  t.heading,
			Velocity: t.v,
		})
	}
}

func (k *Kinematic) status(b *body) event.Status {
	others := 0
	for _, name := range k.order {
		if o := k.bodies[name]; o != b && o.alive {
			others++
		}
	}
	return event.Status{
		Round:              k.round,
		X:                  b.x,
		Y:                  b.y,
		Heading:            b.heading,
		GunHeading:         b.gun,
		RadarHeading:       b.radar,
		Velocity:           b.v,
		Energy:             math.Max(b.energy, 0),
		GunHeat:            b.gunHeat,
		DistanceRemaining:  b.distance,
		BodyTurnRemaining:  b.bodyTurn,
		GunTurnRemaining:   b.gunTurn,
		RadarTurnRemaining: b.radarTurn,
		Others:             others,
	}
}

func sortOutcome(o *engine.Outcome) {
	sort.SliceStable(o.Scans, func(i, j int) bool { return o.Scans[i].Distance < o.Scans[j].Distance })
}
