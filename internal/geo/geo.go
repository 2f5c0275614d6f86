package geo

import "math"

// Coordinate is a point on a map grid. Components are int8 on purpose:
// in-game map coordinates fit in -128..127 and the wire format relies on
// that bound. Do not widen.
type Coordinate struct {
	X int8 `json:"x"`
	Y int8 `json:"y"`
}

const (
	// MaxScore is awarded for a perfect guess.
	MaxScore = 100
	// MinScore is the floor; a timed-out or hopeless guess scores this.
	MinScore = 0

	// falloff controls how quickly score decays with distance.
	falloff = 8.0
)

// Distance returns the planar Euclidean distance between two coordinates.
func Distance(a, b Coordinate) float64 {
	dx := float64(a.X) - float64(b.X)
	dy := float64(a.Y) - float64(b.Y)
	return math.Hypot(dx, dy)
}

// Score maps a guess/answer pair to an integer score. Monotone decreasing
// in distance: MaxScore at distance zero, approaching MinScore as the guess
// drifts. The result saturates into int8 rather than overflowing.
func Score(guess, answer Coordinate) int8 {
	d := Distance(guess, answer)
	raw := math.Round(MaxScore * math.Exp(-d/falloff))
	return clampScore(int(raw))
}

// clampScore saturates v into the int8 storage range, then applies the
// score floor. Scores are stored as int8 per player per round.
func clampScore(v int) int8 {
	if v < MinScore {
		v = MinScore
	}
	if v > math.MaxInt8 {
		v = math.MaxInt8
	}
	if v < math.MinInt8 {
		v = math.MinInt8
	}
	return int8(v)
}
