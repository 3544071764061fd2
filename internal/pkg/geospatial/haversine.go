package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/samirrijal/campusride/internal/core/domain"
)

const (
	earthRadiusMeters = 6371000.0

	// WalkingSpeedMps is the assumed walking pace.
	WalkingSpeedMps = 1.4
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// DistanceMeters is Haversine over GeoPoints.
func DistanceMeters(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PointDistance is Haversine over [lon, lat] points.
func PointDistance(a, b orb.Point) float64 {
	return Haversine(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// WalkTimeMinutes converts a walking distance to whole minutes, rounding up.
// Zero distance is zero minutes; any positive distance is at least one.
func WalkTimeMinutes(distanceMeters float64) int {
	if !(distanceMeters > 0) {
		return 0
	}
	return int(math.Ceil(distanceMeters / WalkingSpeedMps / 60))
}

// TravelMinutes is WalkTimeMinutes for an arbitrary speed.
func TravelMinutes(distanceMeters, speedMps float64) int {
	if !(distanceMeters > 0) || !(speedMps > 0) {
		return 0
	}
	return int(math.Ceil(distanceMeters / speedMps / 60))
}

// NearestStop returns the stop closest to point. Ties keep the earlier stop.
// ok is false when stops is empty.
func NearestStop(point domain.GeoPoint, stops []domain.Stop) (nearest domain.Stop, ok bool) {
	best := math.Inf(1)
	for _, s := range stops {
		d := DistanceMeters(point, s.Location)
		if !ok || d < best {
			best = d
			nearest = s
			ok = true
		}
	}
	return nearest, ok
}

// Bearing returns the forward azimuth from a to b in degrees (0=north, 90=east).
func Bearing(a, b orb.Point) float64 {
	phi1 := toRad(a.Lat())
	phi2 := toRad(b.Lat())
	deltaLambda := toRad(b.Lon() - a.Lon())

	x := math.Sin(deltaLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	bearing := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// LineLength sums the haversine length of a polyline.
func LineLength(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += PointDistance(line[i-1], line[i])
	}
	return total
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
