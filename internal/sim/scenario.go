// Package sim is a small scripted world that implements every collaborator
// the fire-control core consumes. It flies one munition against one target
// over flat terrain and is used by the engagement-sim binary and by
// end-to-end tests.
package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

// ErrInvalidScenario wraps every scenario validation error.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a fully decoded engagement script.
type Scenario struct {
	Name     string
	Epoch    time.Time
	Tick     time.Duration
	Duration time.Duration

	BodyRadius   float64
	BodyRotating bool

	Munition model.MunitionDefinition
	World    model.WorldSettings
	Airframe AirframeConfig
	Launch   Launch
	Launcher Entity
	Target   Entity

	Countermeasures CountermeasureConfig
	LauncherRadar   bool
	Illuminator     bool
	Designator      bool
	// GroundLevel is the flat terrain height above the body radius.
	GroundLevel float64
}

// AirframeConfig is the munition's stand-in flight model.
type AirframeConfig struct {
	MaxSpeed float64
	// TurnRate is the maximum turn rate in degrees per second.
	TurnRate float64
	// Acceleration is how fast speed converges on throttle·MaxSpeed.
	Acceleration float64
}

// Launch is the munition's release state.
type Launch struct {
	Position core.Vec3
	Velocity core.Vec3
	// Designated hands the target to the seeker before launch.
	Designated bool
}

// Entity is a vessel in the world: the launcher or the target.
type Entity struct {
	ID     string
	Team   string
	Class  core.ContactClass
	Radius float64

	Heat          float64
	RadarEmitting bool

	Position core.Vec3
	Velocity core.Vec3
	// TLE, when set, flies the entity on an SGP4 orbit instead of a straight
	// line.
	TLE [2]string
}

// CountermeasureConfig is the target's countermeasure state.
type CountermeasureConfig struct {
	ChaffFactor    float64
	JammerStrength float64
	RadarSignature float64
	Smoke          bool
}

// internal JSON shapes, kept unexported so they can evolve freely.
type scenarioJSON struct {
	Name            string                   `json:"name"`
	Epoch           string                   `json:"epoch"`
	TickMs          int                      `json:"tick_ms"`
	DurationS       float64                  `json:"duration_s"`
	Body            bodyJSON                 `json:"body"`
	Munition        model.MunitionDefinition `json:"munition"`
	World           *model.WorldSettings     `json:"world"`
	Airframe        airframeJSON             `json:"airframe"`
	Launch          launchJSON               `json:"launch"`
	Launcher        entityJSON               `json:"launcher"`
	Target          entityJSON               `json:"target"`
	Countermeasures countermeasureJSON       `json:"countermeasures"`
	Support         supportJSON              `json:"support"`
	GroundLevelM    float64                  `json:"ground_level"`
}

type bodyJSON struct {
	Radius   float64 `json:"radius"`
	Rotating bool    `json:"rotating"`
}

type airframeJSON struct {
	MaxSpeed     float64 `json:"max_speed"`
	TurnRate     float64 `json:"turn_rate"`
	Acceleration float64 `json:"acceleration"`
}

type launchJSON struct {
	Position   positionJSON `json:"position"`
	Velocity   positionJSON `json:"velocity"`
	Designated *bool        `json:"designated"` // optional; defaults to true
}

type entityJSON struct {
	ID            string       `json:"id"`
	Team          string       `json:"team"`
	Class         string       `json:"class"` // air | ground | missile | underwater
	Radius        float64      `json:"radius"`
	Heat          float64      `json:"heat"`
	RadarEmitting bool         `json:"radar_emitting"`
	Position      positionJSON `json:"position"`
	Velocity      positionJSON `json:"velocity"`
	TLE           []string     `json:"tle"`
}

type countermeasureJSON struct {
	ChaffFactor    *float64 `json:"chaff_factor"` // optional; defaults to 1 (no chaff)
	JammerStrength float64  `json:"jammer_strength"`
	RadarSignature float64  `json:"radar_signature"`
	Smoke          bool     `json:"smoke"`
}

type supportJSON struct {
	LauncherRadar bool `json:"launcher_radar"`
	Illuminator   bool `json:"illuminator"`
	Designator    bool `json:"designator"`
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p positionJSON) vec() core.Vec3 { return core.Vec3{X: p.X, Y: p.Y, Z: p.Z} }

// LoadScenarioFile opens and decodes a scenario file.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return LoadScenario(f)
}

// LoadScenario decodes a JSON scenario from r, applies defaults and
// validates it.
func LoadScenario(r io.Reader) (*Scenario, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrInvalidScenario)
	}
	var raw scenarioJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	sc := &Scenario{
		Name:         raw.Name,
		Tick:         time.Duration(raw.TickMs) * time.Millisecond,
		Duration:     time.Duration(raw.DurationS * float64(time.Second)),
		BodyRadius:   raw.Body.Radius,
		BodyRotating: raw.Body.Rotating,
		Munition:     raw.Munition.ApplyDefaults(),
		World:        model.DefaultWorldSettings(),
		Airframe: AirframeConfig{
			MaxSpeed:     raw.Airframe.MaxSpeed,
			TurnRate:     raw.Airframe.TurnRate,
			Acceleration: raw.Airframe.Acceleration,
		},
		Launch: Launch{
			Position:   raw.Launch.Position.vec(),
			Velocity:   raw.Launch.Velocity.vec(),
			Designated: raw.Launch.Designated == nil || *raw.Launch.Designated,
		},
		Countermeasures: CountermeasureConfig{
			ChaffFactor:    1,
			JammerStrength: raw.Countermeasures.JammerStrength,
			RadarSignature: raw.Countermeasures.RadarSignature,
			Smoke:          raw.Countermeasures.Smoke,
		},
		LauncherRadar: raw.Support.LauncherRadar,
		Illuminator:   raw.Support.Illuminator,
		Designator:    raw.Support.Designator,
		GroundLevel:   raw.GroundLevelM,
	}
	if raw.World != nil {
		sc.World = *raw.World
	}
	if raw.Countermeasures.ChaffFactor != nil {
		sc.Countermeasures.ChaffFactor = *raw.Countermeasures.ChaffFactor
	}

	var err error
	if sc.Epoch, err = parseEpoch(raw.Epoch); err != nil {
		return nil, err
	}
	if sc.Launcher, err = raw.Launcher.entity(); err != nil {
		return nil, fmt.Errorf("launcher: %w", err)
	}
	if sc.Target, err = raw.Target.entity(); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Tick <= 0 {
		sc.Tick = 20 * time.Millisecond
	}
	if sc.Duration <= 0 {
		sc.Duration = 60 * time.Second
	}
	if sc.BodyRadius <= 0 {
		sc.BodyRadius = 6371000
	}
	if sc.Airframe.MaxSpeed <= 0 {
		sc.Airframe.MaxSpeed = 600
	}
	if sc.Airframe.TurnRate <= 0 {
		sc.Airframe.TurnRate = 30
	}
	if sc.Airframe.Acceleration <= 0 {
		sc.Airframe.Acceleration = 100
	}
	if sc.Launcher.ID == "" {
		sc.Launcher.ID = "launcher"
	}
	if sc.Target.ID == "" {
		sc.Target.ID = "target"
	}
	if sc.Target.Radius <= 0 {
		sc.Target.Radius = 5
	}
	if sc.Launcher.Radius <= 0 {
		sc.Launcher.Radius = 10
	}
}

// Validate checks scenario-level invariants and the munition definition.
func (sc *Scenario) Validate() error {
	switch {
	case sc.Launcher.ID == sc.Target.ID:
		return fmt.Errorf("%w: launcher and target share ID %q", ErrInvalidScenario, sc.Target.ID)
	case sc.Launch.Velocity.IsZero():
		return fmt.Errorf("%w: launch velocity must be non-zero", ErrInvalidScenario)
	case sc.Tick > time.Second:
		return fmt.Errorf("%w: tick %v is longer than a second", ErrInvalidScenario, sc.Tick)
	}
	if err := sc.Munition.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

func (e entityJSON) entity() (Entity, error) {
	class, err := parseClass(e.Class)
	if err != nil {
		return Entity{}, err
	}
	out := Entity{
		ID:            e.ID,
		Team:          e.Team,
		Class:         class,
		Radius:        e.Radius,
		Heat:          e.Heat,
		RadarEmitting: e.RadarEmitting,
		Position:      e.Position.vec(),
		Velocity:      e.Velocity.vec(),
	}
	switch len(e.TLE) {
	case 0:
	case 2:
		out.TLE = [2]string{e.TLE[0], e.TLE[1]}
	default:
		return Entity{}, fmt.Errorf("%w: tle needs exactly two lines, got %d", ErrInvalidScenario, len(e.TLE))
	}
	return out, nil
}

func parseClass(s string) (core.ContactClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "air":
		return core.ClassAir, nil
	case "ground":
		return core.ClassGround, nil
	case "missile":
		return core.ClassMissile, nil
	case "underwater":
		return core.ClassUnderwater, nil
	default:
		return core.ClassUnknown, fmt.Errorf("%w: unknown contact class %q", ErrInvalidScenario, s)
	}
}

func parseEpoch(s string) (time.Time, error) {
	if s == "" {
		return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: epoch: %w", ErrInvalidScenario, err)
	}
	return t.UTC(), nil
}
