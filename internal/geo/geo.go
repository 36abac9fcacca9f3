// Package geo provides the geospatial primitives shared by the dispatch
// validator, the position interpolator and the signal lifecycle manager.
package geo

import (
	"math"
	"math/rand"
)

const (
	earthRadiusMeters = 6371000.0
	// metersPerDegreeLat is the small-angle approximation used when
	// converting planar offsets back to coordinates.
	metersPerDegreeLat = 111111.0
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMeters returns the great-circle (haversine) distance between two points.
func DistanceMeters(a, b LatLng) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// RandomPointInCircle samples a point uniformly over the disk of radiusMeters
// around center. The sqrt on the radial draw makes the sampling area-uniform
// rather than radius-uniform.
func RandomPointInCircle(rng *rand.Rand, center LatLng, radiusMeters float64) LatLng {
	r := radiusMeters * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi
	dy := r * math.Sin(theta)
	dx := r * math.Cos(theta)
	// The longitude scaling degenerates at the poles; clamping the latitude
	// keeps the result finite there.
	scaleLat := math.Min(math.Abs(center.Lat), 89.9)
	return LatLng{
		Lat: center.Lat + dy/metersPerDegreeLat,
		Lng: center.Lng + dx/(metersPerDegreeLat*math.Cos(scaleLat*math.Pi/180)),
	}
}

// Lerp interpolates linearly between from and to, applying t to each axis
// independently. t is clamped to [0, 1].
func Lerp(from, to LatLng, t float64) LatLng {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return LatLng{
		Lat: from.Lat + (to.Lat-from.Lat)*t,
		Lng: from.Lng + (to.Lng-from.Lng)*t,
	}
}
