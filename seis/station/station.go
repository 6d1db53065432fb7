// Package station holds station-channel identity and coordinates, and the
// geodesic distance/azimuth computations between station pairs.
package station

import "fmt"

// Station identifies one station-channel with its coordinates.
// Elevation is in meters, coordinates in decimal degrees.
type Station struct {
	Net  string
	Sta  string
	Loc  string
	Chan string

	Lon float64
	Lat float64
	Ele float64
}

// NetSta returns the "NET.STA" form used to key station pairs.
func (s Station) NetSta() string {
	return s.Net + "." + s.Sta
}

// SEED returns the full "NET.STA.LOC.CHAN" identifier.
func (s Station) SEED() string {
	return fmt.Sprintf("%s.%s.%s.%s", s.Net, s.Sta, s.Loc, s.Chan)
}

func (s Station) String() string {
	return fmt.Sprintf("%s (%.4f, %.4f, %.1f m)", s.SEED(), s.Lon, s.Lat, s.Ele)
}
