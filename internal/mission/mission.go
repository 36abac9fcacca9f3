// Package mission holds the static incident catalog, the per-mission geofence
// rules, and the append-only mission log.
package mission

import (
	"github.com/sreenidhis29/niyantrana-sos/internal/geo"
)

// Zone is a highlighted operational area drawn on the tactical map.
type Zone struct {
	ID           string     `json:"id"`
	Label        string     `json:"label"`
	Center       geo.LatLng `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
	Color        string     `json:"color"`
}

// GeofenceRule bounds dispatch targets to a maximum range around an anchor.
type GeofenceRule struct {
	Anchor         geo.LatLng `json:"anchor"`
	MaxRangeMeters float64    `json:"max_range_meters"`
}

// Mission is a named incident context. Geofence is nil for unrestricted dispatch.
type Mission struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ThemeColor  string        `json:"theme_color"`
	Center      geo.LatLng    `json:"center"`
	Zones       []Zone        `json:"zones"`
	Geofence    *GeofenceRule `json:"geofence,omitempty"`
}

var catalog = []Mission{
	{
		ID:          "alpha",
		Title:       "INCIDENT ALPHA: FIRE",
		Description: "Major structural fire in commercial zone. High risk of spread.",
		ThemeColor:  "rose",
		Center:      geo.LatLng{Lat: 13.0118, Lng: 77.5552},
		Zones: []Zone{
			{ID: "z1", Label: "Quarantine", Center: geo.LatLng{Lat: 13.0118, Lng: 77.5552}, RadiusMeters: 1000, Color: "#f43f5e"},
		},
		Geofence: &GeofenceRule{
			Anchor:         geo.LatLng{Lat: 13.0118, Lng: 77.5552},
			MaxRangeMeters: 100,
		},
	},
	{
		ID:          "beta",
		Title:       "INCIDENT BETA: FLOOD",
		Description: "Flash flooding reported in low-lying areas. Evacuation required.",
		ThemeColor:  "blue",
		Center:      geo.LatLng{Lat: 11.7480, Lng: 79.7714},
		Zones: []Zone{
			{ID: "z1", Label: "Quarantine", Center: geo.LatLng{Lat: 11.7480, Lng: 79.7714}, RadiusMeters: 1000, Color: "#3b82f6"},
		},
	},
	{
		ID:          "gamma",
		Title:       "INCIDENT GAMMA: AVIATION",
		Description: "Aviation emergency. Aircraft off runway. Mass casualty potential.",
		ThemeColor:  "amber",
		Center:      geo.LatLng{Lat: 11.1367, Lng: 75.9553},
		Zones: []Zone{
			{ID: "z1", Label: "Quarantine", Center: geo.LatLng{Lat: 11.1367, Lng: 75.9553}, RadiusMeters: 1000, Color: "#f59e0b"},
		},
	},
}

// Catalog returns every known mission in declaration order.
func Catalog() []Mission {
	out := make([]Mission, len(catalog))
	copy(out, catalog)
	return out
}

// ByID looks up a mission by identifier.
func ByID(id string) (Mission, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Mission{}, false
}
