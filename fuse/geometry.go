package fuse

import (
	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

// Geometry places the proximity query sphere for a warhead shape.
type Geometry interface {
	Center(q GeometryQuery) core.Vec3
}

// GeometryQuery is what a Geometry may use to place the sphere.
type GeometryQuery struct {
	Frame              core.Body
	Position           core.Vec3
	TargetPosition     core.Vec3
	DetonationDistance float64
	BlastRadius        float64
}

// Spherical centres the query on the munition.
type Spherical struct{}

func (Spherical) Center(q GeometryQuery) core.Vec3 { return q.Position }

// ContinuousRod drops the query below the munition, away from local up at
// the target, so the expanding rod ring sweeps through the target.
type ContinuousRod struct{}

func (ContinuousRod) Center(q GeometryQuery) core.Vec3 {
	offset := 5.0
	if q.BlastRadius > 0 {
		offset = q.DetonationDistance / 3
	}
	return q.Position.Sub(q.Frame.Up(q.TargetPosition).Scale(offset))
}

// GeometryFor returns the query geometry for a warhead type.
func GeometryFor(w model.WarheadType) Geometry {
	if w == model.WarheadContinuousRod {
		return ContinuousRod{}
	}
	return Spherical{}
}
