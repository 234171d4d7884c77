// Package geo holds the coordinate math behind the /radius directive and
// location resorting.
package geo

import (
	"fmt"
	"math"
	"strconv"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// MaxRadiusKm bounds a search circle to half the Earth's circumference.
const MaxRadiusKm = math.Pi * EarthRadiusKm

// Circle is a search area around a center point. The zero value means "no filter".
type Circle struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// NewCircle validates coordinates and radius.
func NewCircle(lat, lon, radiusKm float64) (Circle, error) {
	if !ValidateCoordinates(lat, lon) {
		return Circle{}, fmt.Errorf("coordinates out of range: %g,%g", lat, lon)
	}
	if radiusKm <= 0 || radiusKm > MaxRadiusKm || math.IsNaN(radiusKm) {
		return Circle{}, fmt.Errorf("radius must be in (0, %.0f] km, got %g", MaxRadiusKm, radiusKm)
	}
	return Circle{Lat: lat, Lon: lon, RadiusKm: radiusKm}, nil
}

// IsZero reports whether the circle is unset.
func (c Circle) IsZero() bool { return c == Circle{} }

// Contains reports whether the point lies inside the circle.
func (c Circle) Contains(lat, lon float64) bool {
	if c.IsZero() {
		return true
	}
	return Haversine(c.Lat, c.Lon, lat, lon) <= c.RadiusKm
}

// DistanceKm returns the great-circle distance from the center to the point.
func (c Circle) DistanceKm(lat, lon float64) float64 {
	return Haversine(c.Lat, c.Lon, lat, lon)
}

// String renders the circle in /radius directive form.
func (c Circle) String() string {
	return "/radius/" + formatFloat(c.Lat) + "/" + formatFloat(c.Lon) + "/" + formatFloat(c.RadiusKm)
}

// Haversine returns the great-circle distance in kilometers between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
