package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Haversine returns the great-circle distance between a and b in kilometers.
// https://www.movable-type.co.uk/scripts/latlong.html
func Haversine(a, b Point) float64 {
	if a == b {
		return 0
	}

	rad := func(d float64) float64 { return d / 180 * math.Pi }
	lat1, lon1 := rad(a.Lat), rad(a.Lng)
	lat2, lon2 := rad(b.Lat), rad(b.Lng)
	dlat, dlon := lat2-lat1, lon2-lon1

	sdlat, sdlon := math.Sin(dlat/2), math.Sin(dlon/2)
	x := sdlat*sdlat + math.Cos(lat1)*math.Cos(lat2)*sdlon*sdlon
	c := 2 * math.Atan2(math.Sqrt(x), math.Sqrt(1-x))

	return EarthRadiusKm * c
}

// RouteKm sums the great-circle distance along an ordered list of points.
func RouteKm(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}
