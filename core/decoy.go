package core

import (
	"math"
	"math/rand/v2"
)

const (
	minDecoyRadius = 16.0
	maxDecoyRadius = 256.0
)

// DecoyEnv carries everything the chaff distortion needs besides the track
// itself. Strength is the global decoy-strength setting.
type DecoyEnv struct {
	Countermeasures Countermeasures
	Strength        float64
	Rand            *rand.Rand
}

// Distortion samples the countermeasure-induced position error for the
// track. The result is resampled on every call.
func (t Track) Distortion(env DecoyEnv, chaffEffectivity float64) Vec3 {
	if !t.RequireExists("Distortion") || t.SourceID == "" || env.Countermeasures == nil || env.Rand == nil {
		return Vec3{}
	}
	cm := 1 - env.Countermeasures.ChaffFactor(t.SourceID)
	if cm <= 0 {
		return Vec3{}
	}

	// Jamming pushes the error rearward, scaled by jammer power against the
	// contact's own radar signature.
	sig := math.Max(env.Countermeasures.RadarSignature(t.SourceID), 0.1)
	jamming := cm * Clamp01(env.Countermeasures.JammerStrength(t.SourceID)/100/sig)

	radius := cm * (minDecoyRadius + env.Rand.Float64()*(maxDecoyRadius-minDecoyRadius))
	rearward := t.Velocity.Normalized().Scale(-jamming)
	signature := rearward.Add(insideUnitSphere(env.Rand)).Scale(radius)

	// Faster contacts drag the decoy further behind them, which also makes
	// chaff weakest head-on.
	lag := t.Velocity.Scale(-clamp(cm*cm, 0, 0.5))

	return lag.Add(signature).Scale(math.Max(env.Strength, 0) * chaffEffectivity)
}

func insideUnitSphere(r *rand.Rand) Vec3 {
	for {
		v := Vec3{X: 2*r.Float64() - 1, Y: 2*r.Float64() - 1, Z: 2*r.Float64() - 1}
		if v.SqrNorm() <= 1 {
			return v
		}
	}
}
