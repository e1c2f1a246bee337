/*
Package geo provides great-circle distance math for location samples.

PURPOSE:
  All distance inference in the system runs on raw coordinate pairs coming
  from a device location provider. This package is the single home for the
  Haversine formula and coordinate formatting, so every component measures
  distance the same way.

UNITS:
  Distances are in statute miles (Earth radius 3,959 mi) because trip
  records, odometer readings, and per-diem rules are all mileage-based.

SEE ALSO:
  - tracking/: accumulates Haversine deltas between successive samples
  - perdiem/: compares day mileage and distance-from-base against rules
*/
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMiles is the mean Earth radius in statute miles.
const EarthRadiusMiles = 3959.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceMiles returns the great-circle distance between two points
// using the Haversine formula.
func DistanceMiles(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMiles * c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// RoundTenth rounds a distance to the nearest tenth of a mile.
// Accumulation always happens unrounded; rounding is applied only at the
// point a value is exposed to a caller.
func RoundTenth(miles float64) float64 {
	return math.Round(miles*10) / 10
}

// String formats the point as "lat, lon" to 6 decimal places. This is the
// degraded display form used when reverse geocoding is unavailable.
func (p Point) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lon)
}
