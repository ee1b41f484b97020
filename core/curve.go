package core

import "sort"

// Key is one control point of a FloatCurve.
type Key struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// FloatCurve is a piecewise-linear response curve. Evaluation clamps to the
// first and last keys; an empty curve evaluates to 1. Keys must be in
// ascending time order; decoded curves should go through Normalize.
type FloatCurve struct {
	Keys []Key `json:"keys"`
}

// NewFloatCurve builds a curve from keys in any order.
func NewFloatCurve(keys ...Key) FloatCurve {
	return FloatCurve{Keys: keys}.Normalize()
}

// Normalize returns a copy of the curve with keys sorted by time.
func (c FloatCurve) Normalize() FloatCurve {
	keys := append([]Key(nil), c.Keys...)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
	return FloatCurve{Keys: keys}
}

// Evaluate returns the curve value at t.
func (c FloatCurve) Evaluate(t float64) float64 {
	n := len(c.Keys)
	switch {
	case n == 0:
		return 1
	case t <= c.Keys[0].Time:
		return c.Keys[0].Value
	case t >= c.Keys[n-1].Time:
		return c.Keys[n-1].Value
	}
	i := sort.Search(n, func(i int) bool { return c.Keys[i].Time >= t })
	lo, hi := c.Keys[i-1], c.Keys[i]
	span := hi.Time - lo.Time
	if span <= 0 {
		return hi.Value
	}
	f := (t - lo.Time) / span
	return lo.Value + (hi.Value-lo.Value)*f
}

// MaxTime returns the time of the last key, or 0 for an empty curve.
func (c FloatCurve) MaxTime() float64 {
	if len(c.Keys) == 0 {
		return 0
	}
	return c.Keys[len(c.Keys)-1].Time
}
