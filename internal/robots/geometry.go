package robots

import "math"

// relative normalizes deg to (-180, 180].
func relative(deg float64) float64 {
	deg = math.Mod(deg, 360)
	switch {
	case deg <= -180:
		deg += 360
	case deg > 180:
		deg -= 360
	}
	return deg
}

// firePower spends more energy on closer targets.
func firePower(distance float64) float64 {
	return math.Max(0.1, math.Min(3, 400/math.Max(distance, 1)))
}
