package physics

import "math"

// Battlefield rules.
const (
	Acceleration    = 1.0
	Deceleration    = 2.0
	MaxVelocity     = 8.0
	MaxTurnRate     = 10.0
	GunTurnRate     = 20.0
	RadarTurnRate   = 45.0
	RadarScanRadius = 1200.0

	MinProjectilePower = 0.1
	MaxProjectilePower = 3.0

	AgentHitDamage = 0.6
	GunCoolingRate = 0.1
	StartEnergy    = 100.0

	// BodyRadius is half the side of an agent's bounding square.
	BodyRadius = 18.0
)

// TurnRate is the body turn rate at velocity v.
func TurnRate(v float64) float64 {
	return MaxTurnRate - 0.75*math.Abs(v)
}

// WallHitDamage is the energy lost hitting a wall at velocity v.
func WallHitDamage(v float64) float64 {
	return math.Max(math.Abs(v)/2-1, 0)
}

// ProjectileDamage is the energy a projectile of the given power takes.
func ProjectileDamage(power float64) float64 {
	damage := 4 * power
	if power > 1 {
		damage += 2 * (power - 1)
	}
	return damage
}

// ProjectileBonus is the energy the owner gains when a projectile hits.
func ProjectileBonus(power float64) float64 {
	return 3 * power
}

func ProjectileSpeed(power float64) float64 {
	return 20 - 3*power
}

func GunHeat(power float64) float64 {
	return 1 + power/5
}

// normalAbsolute maps an angle into [0, 360).
func normalAbsolute(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// normalRelative maps an angle into (-180, 180].
func normalRelative(deg float64) float64 {
	deg = normalAbsolute(deg)
	if deg > 180 {
		deg -= 360
	}
	return deg
}

// bearingTo is the absolute heading from (x1,y1) to (x2,y2).
func bearingTo(x1, y1, x2, y2 float64) float64 {
	return normalAbsolute(math.Atan2(x2-x1, y2-y1) * 180 / math.Pi)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sincos(deg float64) (float64, float64) {
	return math.Sincos(deg * math.Pi / 180)
}

// turnStep returns the signed portion of remaining that fits in rate.
func turnStep(remaining, rate float64) float64 {
	if math.Abs(remaining) <= rate {
		return remaining
	}
	return math.Copysign(rate, remaining)
}
