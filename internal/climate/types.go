// Package climate maps texture archives onto climate sets and computes the
// climate- and weather-specific archive a texture should be decoded from.
package climate

import (
	"fmt"
	"strings"
)

// Type is a climate base. Its value is the archive offset of the climate's
// texture range.
type Type int

const (
	None      Type = -1
	Desert    Type = 0
	Mountain  Type = 100
	Temperate Type = 300
	Swamp     Type = 400
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Desert:
		return "desert"
	case Mountain:
		return "mountain"
	case Temperate:
		return "temperate"
	case Swamp:
		return "swamp"
	default:
		return fmt.Sprintf("climate(%d)", int(t))
	}
}

// ParseType parses a climate name as printed by Type.String.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "desert":
		return Desert, nil
	case "mountain":
		return Mountain, nil
	case "temperate":
		return Temperate, nil
	case "swamp":
		return Swamp, nil
	default:
		return None, fmt.Errorf("unknown climate %q", s)
	}
}

// Weather selects a seasonal texture variant. Its value is the archive offset
// of the variant relative to the substituted archive.
type Weather int

const (
	Normal Weather = 0
	Winter Weather = 1
	Rain   Weather = 2
)

func (w Weather) String() string {
	switch w {
	case Normal:
		return "normal"
	case Winter:
		return "winter"
	case Rain:
		return "rain"
	default:
		return fmt.Sprintf("weather(%d)", int(w))
	}
}

// ParseWeather parses a weather name as printed by Weather.String.
func ParseWeather(s string) (Weather, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "summer":
		return Normal, nil
	case "winter", "snow":
		return Winter, nil
	case "rain":
		return Rain, nil
	default:
		return Normal, fmt.Errorf("unknown weather %q", s)
	}
}

// Context is the climate state a resolver works under.
type Context struct {
	Type    Type
	Weather Weather
}

func (c Context) String() string {
	return c.Type.String() + "/" + c.Weather.String()
}
