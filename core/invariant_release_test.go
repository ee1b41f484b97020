//go:build !fcdebug

package core

import (
	"math/rand/v2"
	"testing"
)

func TestSentinelDegradesInReleaseBuilds(t *testing.T) {
	if NoTrack().RequireExists("test") {
		t.Fatalf("RequireExists should report false for the sentinel")
	}
	env := DecoyEnv{Countermeasures: chaffStub{}, Strength: 1, Rand: rand.New(rand.NewPCG(1, 1))}
	if d := NoTrack().Distortion(env, 1); !d.IsZero() {
		t.Fatalf("sentinel distortion = %v, want zero", d)
	}
}
