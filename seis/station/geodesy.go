package station

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
)

const (
	vincentyTol     = 1e-12
	vincentyMaxIter = 200
)

// DistAzBaz returns the geodesic distance in kilometers between two points
// on the WGS84 ellipsoid, plus azimuth (bearing at point 1 toward point 2)
// and back-azimuth (bearing at point 2 toward point 1), both in degrees
// clockwise from north.
//
// It uses Vincenty's inverse formula, which fails to converge for nearly
// antipodal points; that case returns an error.
func DistAzBaz(lat1, lon1, lat2, lon2 float64) (distKM, az, baz float64, err error) {
	if math.Abs(lat1) > 90 || math.Abs(lat2) > 90 {
		return 0, 0, 0, fmt.Errorf("station: latitude out of range [-90, 90]: %g, %g", lat1, lat2)
	}

	if lat1 == lat2 && lon1 == lon2 {
		return 0, 0, 0, nil
	}

	f := wgs84F
	b := wgs84A * (1 - f)

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	captL := (lon2 - lon1) * math.Pi / 180

	u1 := math.Atan((1 - f) * math.Tan(phi1))
	u2 := math.Atan((1 - f) * math.Tan(phi2))

	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := captL

	var (
		sinSigma, cosSigma, sigma float64
		cos2Alpha, cos2SigmaM     float64
		sinLambda, cosLambda      float64
	)

	converged := false
	for range vincentyMaxIter {
		sinLambda, cosLambda = math.Sincos(lambda)

		t1 := cosU2 * sinLambda
		t2 := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSigma = math.Sqrt(t1*t1 + t2*t2)
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)

		if sinSigma == 0 {
			// Coincident points on the ellipsoid.
			return 0, 0, 0, nil
		}

		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cos2Alpha = 1 - sinAlpha*sinAlpha

		if cos2Alpha == 0 {
			// Equatorial line.
			cos2SigmaM = 0
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		}

		c := f / 16 * cos2Alpha * (4 + f*(4-3*cos2Alpha))
		lambdaPrev := lambda
		lambda = captL + (1-c)*f*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-lambdaPrev) < vincentyTol {
			converged = true
			break
		}
	}

	if !converged {
		return 0, 0, 0, fmt.Errorf("station: vincenty did not converge for (%g, %g) -> (%g, %g)",
			lat1, lon1, lat2, lon2)
	}

	u2sq := cos2Alpha * (wgs84A*wgs84A - b*b) / (b * b)
	bigA := 1 + u2sq/16384*(4096+u2sq*(-768+u2sq*(320-175*u2sq)))
	bigB := u2sq / 1024 * (256 + u2sq*(-128+u2sq*(74-47*u2sq)))

	deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*
		(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	distM := b * bigA * (sigma - deltaSigma)

	alpha1 := math.Atan2(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda)
	alpha2 := math.Atan2(cosU1*sinLambda, -sinU1*cosU2+cosU1*sinU2*cosLambda)

	az = math.Mod(alpha1*180/math.Pi+360, 360)
	baz = math.Mod(alpha2*180/math.Pi+180+360, 360)

	return distM / 1000, az, baz, nil
}

// PairGeometry returns distance (km), azimuth and back-azimuth from a
// source station to a receiver station.
func PairGeometry(src, rcv Station) (distKM, az, baz float64, err error) {
	return DistAzBaz(src.Lat, src.Lon, rcv.Lat, rcv.Lon)
}
