package obs

import (
	"fmt"
	"math"
	"math/cmplx"
)

// directionStep is the azimuth grid spacing of the tilt scan in degrees.
const directionStep = 10.0

// Rotation holds the spectra of the horizontal component rotated to the
// tilt direction, plus the direction scan that found it. Coh and Ph are
// the band-averaged coherence and phase per scanned direction.
type Rotation struct {
	CHH      []float64    // rotated horizontal power
	CHZ, CHP []complex128 // rotated horizontal against vertical and pressure
	Admt     []float64    // admittance |CHZ|/CHH per frequency

	Direc []float64 // scanned directions, degrees from the component-1 axis
	Coh   []float64
	Ph    []float64 // radians

	Tilt       float64 // direction of maximum vertical coherence
	CohValue   float64
	PhaseValue float64

	WindowSecs float64
	Overlap    float64
	Freq       []float64
}

// TiltScan rotates the horizontal spectra through the full azimuth range
// and returns the direction whose rotated component is most coherent with
// the vertical inside [freqMin, freqMax]. Rotation of the averaged
// spectra is exact because the horizontal rotation is linear per window.
// A near-opposite phase at the best direction flips the tilt azimuth by
// 180 degrees so the admittance stays positive.
func TiltScan(pw *Power, cr *Cross, freqMin, freqMax float64) (*Rotation, error) {
	if err := checkContainers(pw, cr); err != nil {
		return nil, err
	}

	var band []int
	for k, f := range pw.Freq {
		if f > freqMin && f < freqMax {
			band = append(band, k)
		}
	}
	if len(band) == 0 {
		return nil, fmt.Errorf("obs: no frequency bins inside [%v, %v] Hz", freqMin, freqMax)
	}

	ndir := int(360 / directionStep)
	rot := &Rotation{
		Direc:      make([]float64, ndir),
		Coh:        make([]float64, ndir),
		Ph:         make([]float64, ndir),
		WindowSecs: pw.WindowSecs,
		Overlap:    pw.Overlap,
		Freq:       pw.Freq,
	}

	best := 0
	for i := 0; i < ndir; i++ {
		deg := float64(i) * directionStep
		rot.Direc[i] = deg

		var cohSum, phSum float64
		for _, k := range band {
			chh, chz := rotatedPair(pw, cr, deg, k)
			cohSum += coherence(chz, chh, pw.CZZ[k])
			phSum += cmplx.Phase(chz)
		}
		rot.Coh[i] = cohSum / float64(len(band))
		rot.Ph[i] = phSum / float64(len(band))

		if rot.Coh[i] > rot.Coh[best] {
			best = i
		}
	}

	rot.Tilt = rot.Direc[best]
	rot.CohValue = rot.Coh[best]
	rot.PhaseValue = rot.Ph[best]

	// The coherence is periodic over 180 degrees, so the scan cannot tell
	// a tilt axis from its opposite. The cross-spectrum phase can.
	if math.Abs(rot.PhaseValue) > math.Pi/2 {
		rot.Tilt += 180
		if rot.Tilt >= 360 {
			rot.Tilt -= 360
		}
	}

	half := len(pw.Freq)
	rot.CHH = make([]float64, half)
	rot.CHZ = make([]complex128, half)
	rot.CHP = make([]complex128, half)
	rot.Admt = make([]float64, half)
	for k := 0; k < half; k++ {
		chh, chz := rotatedPair(pw, cr, rot.Tilt, k)
		a := rot.Tilt * math.Pi / 180
		chp := complex(math.Cos(a), 0)*cr.C1P[k] + complex(math.Sin(a), 0)*cr.C2P[k]

		rot.CHH[k] = chh
		rot.CHZ[k] = chz
		rot.CHP[k] = chp
		if chh > 0 {
			rot.Admt[k] = cmplx.Abs(chz) / chh
		}
	}
	return rot, nil
}

// rotatedPair returns the rotated horizontal power and its cross-spectrum
// with the vertical at frequency bin k, for a rotation of deg degrees from
// the component-1 axis toward component 2.
func rotatedPair(pw *Power, cr *Cross, deg float64, k int) (chh float64, chz complex128) {
	a := deg * math.Pi / 180
	c, s := math.Cos(a), math.Sin(a)

	chh = c*c*pw.C11[k] + s*s*pw.C22[k] + 2*c*s*real(cr.C12[k])
	chz = complex(c, 0)*cr.C1Z[k] + complex(s, 0)*cr.C2Z[k]
	return chh, chz
}

// coherence is |Gxy|^2 / (Gxx Gyy), clamped to zero when a denominator
// vanishes.
func coherence(gxy complex128, gxx, gyy float64) float64 {
	if gxx <= 0 || gyy <= 0 {
		return 0
	}
	return absSq(gxy) / (gxx * gyy)
}

func checkContainers(pw *Power, cr *Cross) error {
	if pw == nil || cr == nil {
		return fmt.Errorf("obs: nil spectra container")
	}
	n := len(pw.Freq)
	if n == 0 {
		return fmt.Errorf("obs: empty frequency axis")
	}
	if len(pw.C11) != n || len(pw.C22) != n || len(pw.CZZ) != n {
		return fmt.Errorf("obs: power spectra out of step with the frequency axis")
	}
	if len(cr.C12) != n || len(cr.C1Z) != n || len(cr.C2Z) != n ||
		len(cr.C1P) != n || len(cr.C2P) != n {
		return fmt.Errorf("obs: cross spectra out of step with the frequency axis")
	}
	return nil
}
