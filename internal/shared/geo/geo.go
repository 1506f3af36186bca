package geo

import "math"

const earthRadiusM = 6371000.0

// Point is a WGS-84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceM returns the haversine great-circle distance between two points in meters.
func DistanceM(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLng*sinLng
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceM(Point{Lat: lat1, Lng: lng1}, Point{Lat: lat2, Lng: lng2}) / 1000
}

// DistanceToPolylineM returns the minimum distance in meters from p to the
// vertices of line. This is a nearest-vertex approximation, not a true segment
// projection: road-router geometry is dense enough at riding scales that the
// nearest vertex is within a few meters of the true nearest point. Scans stop
// early once a vertex closer than 5 m is found.
func DistanceToPolylineM(p Point, line []Point) float64 {
	min := math.Inf(1)
	for _, v := range line {
		if d := DistanceM(p, v); d < min {
			min = d
		}
		if min < 5 {
			break
		}
	}
	return min
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
