package routing

import "github.com/motocraft35/moto-asistan-sub000/internal/shared/geo"

type Modifier string

const (
	ModifierLeft     Modifier = "left"
	ModifierRight    Modifier = "right"
	ModifierStraight Modifier = "straight"
	ModifierUnknown  Modifier = "unknown"
)

// Step is one maneuver in a route. Immutable once part of a Route.
type Step struct {
	Instruction string    `json:"instruction"`
	Modifier    Modifier  `json:"modifier"`
	DistanceM   float64   `json:"distance_m"`
	Maneuver    geo.Point `json:"maneuver"`
}

// Route is a computed path from the routing provider. Replaced wholesale on
// every recompute, never mutated in place.
type Route struct {
	Geometry  []geo.Point `json:"geometry"`
	Steps     []Step      `json:"steps"`
	DistanceM float64     `json:"distance_m"`
	DurationS float64     `json:"duration_s"`
}

// Destination is a navigation target, optionally named (party destinations
// carry the spot name set by the leader).
type Destination struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name,omitempty"`
}

func (d Destination) Point() geo.Point {
	return geo.Point{Lat: d.Lat, Lng: d.Lng}
}

func parseModifier(raw string) Modifier {
	switch raw {
	case "left", "slight left", "sharp left":
		return ModifierLeft
	case "right", "slight right", "sharp right":
		return ModifierRight
	case "straight":
		return ModifierStraight
	default:
		return ModifierUnknown
	}
}
