// Package geodesy projects WGS84 coordinates onto the UTM grid using the
// closed-form transverse Mercator series.
package geodesy

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid and UTM constants.
const (
	semiMajorAxis = 6378137.0
	flattening    = 1 / 298.257223563
	scaleFactor   = 0.9996

	falseEasting  = 500000.0
	falseNorthing = 10000000.0
)

// bands are the 8° latitude bands from 80°S, skipping I and O.
const bands = "CDEFGHJKLMNPQRSTUVWX"

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// IsZero reports whether c is the unset sentinel.
func (c Coordinate) IsZero() bool {
	return c.Latitude == 0 || c.Longitude == 0
}

// Validate checks the WGS84 range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// Projected is a UTM grid position. The zero value means "not projected".
type Projected struct {
	Zone     int     `json:"zone"`
	Band     string  `json:"band"`
	Easting  float64 `json:"easting"`
	Northing float64 `json:"northing"`
}

func (p Projected) IsZero() bool { return p.Zone == 0 }

// String renders the grid reference, e.g. "22J 479011 6677361".
func (p Projected) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d%s %.0f %.0f", p.Zone, p.Band, p.Easting, p.Northing)
}

// ProjectCoordinate is Project for a Coordinate.
func ProjectCoordinate(c Coordinate) Projected {
	return Project(c.Latitude, c.Longitude)
}

// Project converts lat/lon to UTM. A zero latitude or longitude (or NaN) is
// treated as unset and yields the zero Projected. Bands outside 80°S..84°N
// clamp to C and X.
func Project(lat, lon float64) Projected {
	if lat == 0 || lon == 0 || math.IsNaN(lat) || math.IsNaN(lon) {
		return Projected{}
	}

	zone := Zone(lon)
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	lambda0 := float64((zone-1)*6-180+3) * math.Pi / 180

	e2 := 2*flattening - flattening*flattening
	ep2 := e2 / (1 - e2)
	sinPhi, cosPhi, tanPhi := math.Sin(phi), math.Cos(phi), math.Tan(phi)

	n := semiMajorAxis / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lambda - lambda0) * cosPhi
	m := meridionalArc(phi, e2)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	easting := falseEasting + scaleFactor*n*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*e2)*a5/120)

	northing := scaleFactor * (m + n*tanPhi*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*e2)*a6/720))
	if lat < 0 {
		northing += falseNorthing
	}

	return Projected{
		Zone:     zone,
		Band:     Band(lat),
		Easting:  easting,
		Northing: northing,
	}
}

// Zone returns the 6° UTM zone for lon, with 180° folded into zone 60.
func Zone(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone > 60 {
		zone = 60
	}
	if zone < 1 {
		zone = 1
	}
	return zone
}

// Band returns the latitude band letter, clamped to the alphabet ends.
func Band(lat float64) string {
	idx := int(math.Floor((lat + 80) / 8))
	if idx < 0 {
		idx = 0
	}
	if idx > len(bands)-1 {
		idx = len(bands) - 1
	}
	return bands[idx : idx+1]
}

// meridionalArc is the four-term series for the arc length from the equator.
func meridionalArc(phi, e2 float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajorAxis * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}
