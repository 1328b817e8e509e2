package property

import "math"

// earthRadiusMiles is the mean Earth radius used by the haversine formula.
const earthRadiusMiles = 3958.8

// DistanceMiles returns the great-circle distance between two records in
// statute miles, or -1 when either record lacks coordinates so callers can
// distinguish "far away" from "unknown".
func DistanceMiles(a, b Record) float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return -1
	}
	return haversineMiles(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// haversineMiles computes the great-circle distance between two lat/lon
// points in miles.
//
// Formula:
//
//	a = sin²(Δφ/2) + cos φ1 × cos φ2 × sin²(Δλ/2)
//	d = 2R × asin(√a)
func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}
