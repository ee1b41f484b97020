package core

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFloatCurveEvaluate(t *testing.T) {
	c := NewFloatCurve(Key{Time: 10, Value: 0}, Key{Time: 0, Value: 1}, Key{Time: 5, Value: 0.8})
	cases := []struct{ at, want float64 }{
		{-3, 1},
		{0, 1},
		{2.5, 0.9},
		{7.5, 0.4},
		{10, 0},
		{99, 0},
	}
	for _, tc := range cases {
		if got := c.Evaluate(tc.at); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("Evaluate(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}
	if c.MaxTime() != 10 {
		t.Fatalf("expected max time 10, got %v", c.MaxTime())
	}
}

func TestEmptyCurveIsNeutral(t *testing.T) {
	var c FloatCurve
	if c.Evaluate(42) != 1 || c.MaxTime() != 0 {
		t.Fatalf("empty curve should evaluate to 1 with max time 0")
	}
}

func TestFloatCurveDecodes(t *testing.T) {
	var c FloatCurve
	if err := json.Unmarshal([]byte(`{"keys":[{"time":1,"value":2},{"time":0,"value":0}]}`), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := c.Normalize().Evaluate(0.5); math.Abs(got-1) > 1e-12 {
		t.Fatalf("expected 1 halfway, got %v", got)
	}
}
