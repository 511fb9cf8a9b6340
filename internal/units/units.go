// Package units holds the float32 angle helpers shared by the checks and the
// speed unit used when printing track speeds over ground.
package units

import (
	"fmt"
	"strings"
)

// SpeedUnit selects how a track speed, carried in m/s, is printed.
// It implements flag.Value.
type SpeedUnit string

const (
	MPS  SpeedUnit = "mps"
	MPH  SpeedUnit = "mph"
	KMPH SpeedUnit = "kmph"
	KPH  SpeedUnit = "kph"
)

var speedUnits = []SpeedUnit{MPS, MPH, KMPH, KPH}

// mpsToMPH is exact to float32 precision.
const mpsToMPH float32 = 3600 / 1609.344

// ParseSpeedUnit returns the unit named s.
func ParseSpeedUnit(s string) (SpeedUnit, error) {
	for _, u := range speedUnits {
		if string(u) == s {
			return u, nil
		}
	}
	return "", fmt.Errorf("invalid speed unit %q, expected one of %s", s, SpeedUnitNames())
}

// SpeedUnitNames lists the accepted unit names for usage and error text.
func SpeedUnitNames() string {
	names := make([]string, len(speedUnits))
	for i, u := range speedUnits {
		names[i] = string(u)
	}
	return strings.Join(names, ", ")
}

func (u SpeedUnit) String() string { return string(u) }

// Set implements flag.Value.
func (u *SpeedUnit) Set(s string) error {
	parsed, err := ParseSpeedUnit(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// FromMPS converts a speed in m/s. The zero unit is m/s.
func (u SpeedUnit) FromMPS(v float32) float32 {
	switch u {
	case MPH:
		return v * mpsToMPH
	case KMPH, KPH:
		return v * 3.6
	default:
		return v
	}
}

// Label is the short suffix printed after a converted speed.
func (u SpeedUnit) Label() string {
	switch u {
	case MPH:
		return "mph"
	case KMPH, KPH:
		return "km/h"
	default:
		return "m/s"
	}
}
