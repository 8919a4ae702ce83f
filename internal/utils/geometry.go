// Package utils holds small geographic helpers used for stop lookups.
package utils

import "math"

const (
	// RadiusOfEarthInMeters is the mean Earth radius.
	RadiusOfEarthInMeters = 6371010.0
)

// CoordinateBounds is a latitude/longitude box.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the great-circle distance in meters between two points.
// Points less than 0.2 degrees apart, which covers any pair of stops in the
// territory, use the equirectangular approximation.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180

	if math.Abs(lat2-lat1) < 0.2 && math.Abs(lon2-lon1) < 0.2 {
		x := (lon2 - lon1) * rad * math.Cos((lat1+lat2)*rad/2)
		y := (lat2 - lat1) * rad
		return RadiusOfEarthInMeters * math.Sqrt(x*x+y*y)
	}

	phi1, phi2 := lat1*rad, lat2*rad
	dLambda := (lon2 - lon1) * rad

	y := math.Hypot(
		math.Cos(phi2)*math.Sin(dLambda),
		math.Cos(phi1)*math.Sin(phi2)-math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda),
	)
	x := math.Sin(phi1)*math.Sin(phi2) + math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return RadiusOfEarthInMeters * math.Atan2(y, x)
}

// CalculateBounds returns the box extending distance meters around a point.
func CalculateBounds(lat, lon, distance float64) CoordinateBounds {
	latOffset := distance / RadiusOfEarthInMeters * 180 / math.Pi
	lonOffset := distance / (math.Cos(lat*math.Pi/180) * RadiusOfEarthInMeters) * 180 / math.Pi

	return CoordinateBounds{
		MinLat: lat - latOffset,
		MaxLat: lat + latOffset,
		MinLon: lon - lonOffset,
		MaxLon: lon + lonOffset,
	}
}

// Extend grows b to include the point. A zero box adopts the point.
func (b CoordinateBounds) Extend(lat, lon float64, empty bool) CoordinateBounds {
	if empty {
		return CoordinateBounds{MinLat: lat, MaxLat: lat, MinLon: lon, MaxLon: lon}
	}
	return CoordinateBounds{
		MinLat: math.Min(b.MinLat, lat),
		MaxLat: math.Max(b.MaxLat, lat),
		MinLon: math.Min(b.MinLon, lon),
		MaxLon: math.Max(b.MaxLon, lon),
	}
}

// IsOutOfBounds returns true only if the inner bounds have no overlap
// with the outer bounds.
func IsOutOfBounds(inner, outer CoordinateBounds) bool {
	return inner.MaxLat < outer.MinLat ||
		inner.MinLat > outer.MaxLat ||
		inner.MaxLon < outer.MinLon ||
		inner.MinLon > outer.MaxLon
}
