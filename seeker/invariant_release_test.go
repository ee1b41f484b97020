//go:build !fcdebug

package seeker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

func TestRadarSentinelDegradesInReleaseBuilds(t *testing.T) {
	warn := &fakeWarnings{}
	r := newTestRadar(t, definition(model.TargetingRadar), Env{Warnings: warn}, core.NoTrack())
	in := input(flight(radarTick, time.Second), time.Second, nil)

	out := r.acquired(in, false)
	assert.False(t, out.Acquired)
	assert.False(t, out.Track.Exists)
	assert.False(t, r.pitbull(in, core.NoTrack()))
	assert.Empty(t, warn.got)
}
