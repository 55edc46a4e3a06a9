package domain

import (
	"math"
	"sort"
)

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies in range and is not the (0,0)
// placeholder.
func (c Coordinate) Valid() bool {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return false
	}
	return c.Lat != 0 || c.Lon != 0
}

// LandingZone is one record of the static landing zone table. The selector
// only reads and ranks zones; marking a zone busy is the fleet manager's job.
type LandingZone struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Coord        Coordinate `json:"coord"`
	Area         string     `json:"area,omitempty"` // landing pad dimensions, e.g. "20 x 20 m"
	Capacity     int        `json:"capacity,omitempty"`
	SafetyRating string     `json:"safety_rating,omitempty"`
	Operational  bool       `json:"operational"`
}

// ZoneSelection is a ranked landing zone with distance and flight metrics
// relative to the patient coordinate.
type ZoneSelection struct {
	Zone          LandingZone `json:"zone"`
	DistanceKM    float64     `json:"distance_km"`
	BearingDeg    float64     `json:"bearing_deg"`
	Cardinal      string      `json:"cardinal"`
	FlightTimeMin float64     `json:"flight_time_min"`
}

// Haversine returns the great-circle distance in kilometers between two
// coordinates on a sphere of radius EarthRadiusKM.
func Haversine(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial compass bearing in degrees [0, 360) from a to b.
func Bearing(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	x := math.Sin(dLon) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(degrees(math.Atan2(x, y))+360, 360)
}

// CardinalDirection maps a bearing to one of the eight compass points.
func CardinalDirection(bearingDeg float64) string {
	directions := [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	return directions[int(math.Round(bearingDeg/45))%8]
}

// TravelMinutes estimates travel time in minutes for a distance at a cruise
// speed. Non-positive inputs yield 0.
func TravelMinutes(distanceKM, speedKMH float64) float64 {
	if distanceKM <= 0 || speedKMH <= 0 {
		return 0
	}
	return distanceKM / speedKMH * 60
}

// RankZones returns all operational zones with valid coordinates ordered by
// ascending haversine distance from the patient, ties broken by zone ID.
func RankZones(patient Coordinate, zones []LandingZone, droneSpeedKMH float64) []ZoneSelection {
	ranked := make([]ZoneSelection, 0, len(zones))
	for _, z := range zones {
		if !z.Operational || !z.Coord.Valid() {
			continue
		}
		dist := Haversine(patient, z.Coord)
		brg := Bearing(patient, z.Coord)
		ranked = append(ranked, ZoneSelection{
			Zone:          z,
			DistanceKM:    dist,
			BearingDeg:    brg,
			Cardinal:      CardinalDirection(brg),
			FlightTimeMin: TravelMinutes(dist, droneSpeedKMH),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DistanceKM != ranked[j].DistanceKM {
			return ranked[i].DistanceKM < ranked[j].DistanceKM
		}
		return ranked[i].Zone.ID < ranked[j].Zone.ID
	})
	return ranked
}

// SelectLandingZone returns the nearest operational landing zone to the
// patient, or NoAvailableZoneError when none qualifies.
func SelectLandingZone(patient Coordinate, zones []LandingZone, droneSpeedKMH float64) (ZoneSelection, error) {
	ranked := RankZones(patient, zones, droneSpeedKMH)
	if len(ranked) == 0 {
		return ZoneSelection{}, &NoAvailableZoneError{Total: len(zones)}
	}
	return ranked[0], nil
}

// ZonesWithinRadius returns the ranked zones not farther than radiusKM.
func ZonesWithinRadius(patient Coordinate, zones []LandingZone, radiusKM, droneSpeedKMH float64) []ZoneSelection {
	ranked := RankZones(patient, zones, droneSpeedKMH)
	cut := sort.Search(len(ranked), func(i int) bool { return ranked[i].DistanceKM > radiusKM })
	return ranked[:cut]
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
