package model

import (
	"fmt"
	"strings"
)

// TargetingMode selects the seeker modality of a munition.
type TargetingMode int

const (
	TargetingNone TargetingMode = iota
	TargetingRadar
	TargetingHeat
	TargetingLaser
	TargetingGPS
	TargetingAntiRad
)

var targetingNames = []string{"none", "radar", "heat", "laser", "gps", "antirad"}

func (m TargetingMode) String() string { return enumName(targetingNames, int(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m TargetingMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *TargetingMode) UnmarshalText(b []byte) error {
	return parseEnum(targetingNames, "targeting mode", b, (*int)(m))
}

// GuidanceMode selects how steering is derived from the seeker's aim point.
type GuidanceMode int

const (
	// GuidancePure steers straight at the aim point.
	GuidancePure GuidanceMode = iota
	// GuidanceLead is air-to-air lead pursuit.
	GuidanceLead
	// GuidanceCruise runs the cruise flight-phase state machine.
	GuidanceCruise
	// GuidanceBomb is unpowered free fall.
	GuidanceBomb
)

var guidanceNames = []string{"pure", "lead", "cruise", "bomb"}

func (m GuidanceMode) String() string { return enumName(guidanceNames, int(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m GuidanceMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *GuidanceMode) UnmarshalText(b []byte) error {
	return parseEnum(guidanceNames, "guidance mode", b, (*int)(m))
}

// IsAirToAir reports whether the mode engages airborne targets.
func (m GuidanceMode) IsAirToAir() bool {
	return m == GuidancePure || m == GuidanceLead
}

// WarheadType selects the fuse query geometry.
type WarheadType int

const (
	WarheadStandard WarheadType = iota
	WarheadContinuousRod
	WarheadEMP
	WarheadNuke
)

var warheadNames = []string{"standard", "continuous_rod", "emp", "nuke"}

func (w WarheadType) String() string { return enumName(warheadNames, int(w)) }

// MarshalText implements encoding.TextMarshaler.
func (w WarheadType) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WarheadType) UnmarshalText(b []byte) error {
	return parseEnum(warheadNames, "warhead type", b, (*int)(w))
}

// WeaponClass is the airframe category.
type WeaponClass int

const (
	ClassMissile WeaponClass = iota
	ClassBomb
	// ClassSLW is a sea-skimming / submarine-launched weapon.
	ClassSLW
)

var weaponClassNames = []string{"missile", "bomb", "slw"}

func (c WeaponClass) String() string { return enumName(weaponClassNames, int(c)) }

// MarshalText implements encoding.TextMarshaler.
func (c WeaponClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *WeaponClass) UnmarshalText(b []byte) error {
	return parseEnum(weaponClassNames, "weapon class", b, (*int)(c))
}

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return names[i]
}

func parseEnum(names []string, kind string, b []byte, out *int) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range names {
		if n == s {
			*out = i
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", kind, string(b))
}
