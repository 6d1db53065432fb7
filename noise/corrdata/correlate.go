package corrdata

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/noisexc/noisexc/noise/fftdata"
	"github.com/noisexc/noisexc/seis/station"
)

// Method selects how the cross-spectrum is normalized before the inverse
// transform.
type Method int

const (
	// MethodXCorr is the raw cross-correlation conj(S)*R.
	MethodXCorr Method = iota
	// MethodDeconv divides by the smoothed source power spectrum.
	MethodDeconv
	// MethodCoherency divides by both smoothed amplitude spectra.
	MethodCoherency
)

func (m Method) String() string {
	switch m {
	case MethodDeconv:
		return "deconv"
	case MethodCoherency:
		return "coherency"
	default:
		return "xcorr"
	}
}

// ParseMethod maps a config string to a correlation Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "xcorr", "cc":
		return MethodXCorr, nil
	case "deconv":
		return MethodDeconv, nil
	case "coherency":
		return MethodCoherency, nil
	}
	return MethodXCorr, fmt.Errorf("corrdata: unknown correlation method %q", s)
}

// Config controls Correlate.
type Config struct {
	// MaxLag bounds the output lag axis in seconds.
	MaxLag float64
	Method Method
	// SmoothN is the spectral running-mean half width for the deconv and
	// coherency normalizations.
	SmoothN int
	// Substack keeps one row per window instead of averaging them.
	Substack bool
}

// Correlate cross-correlates two whitened station-channel spectra into a
// CorrData. Windows are paired one to one and must line up in time. With
// Substack each window produces a row; otherwise the cross-spectra average
// into a single correlation function whose Ngood counts the windows.
func Correlate(src, rcv *fftdata.FFTData, cfg Config) (*CorrData, error) {
	if err := checkPair(src, rcv, cfg); err != nil {
		return nil, err
	}

	nfft := src.NFFT
	half := nfft / 2
	smoothN := cfg.SmoothN
	if smoothN <= 0 {
		smoothN = 20
	}

	nwin := src.NumWindows()
	spectra := make([][]complex128, nwin)
	for i := 0; i < nwin; i++ {
		spectra[i] = crossSpectrum(src.Data[i], rcv.Data[i], half, cfg.Method, smoothN)
	}

	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, fmt.Errorf("corrdata: fft plan for %d: %w", nfft, err)
	}

	lagN := int(cfg.MaxLag / src.Dt)
	out := newFromPair(src, rcv, cfg)

	if cfg.Substack {
		out.Data = make([][]float64, nwin)
		out.Ngood = make([]int64, nwin)
		out.Time = append([]float64(nil), src.Time...)
		for i, sp := range spectra {
			row, err := invertSpectrum(plan, sp, nfft, lagN)
			if err != nil {
				return nil, err
			}
			out.Data[i] = row
			out.Ngood[i] = 1
		}
		out.Substack = true
		return out, nil
	}

	mean := make([]complex128, half)
	for _, sp := range spectra {
		for k, v := range sp {
			mean[k] += v
		}
	}
	scale := complex(float64(nwin), 0)
	for k := range mean {
		mean[k] /= scale
	}

	row, err := invertSpectrum(plan, mean, nfft, lagN)
	if err != nil {
		return nil, err
	}
	out.Data = [][]float64{row}
	out.Ngood = []int64{int64(nwin)}
	out.Time = []float64{src.Time[0]}
	out.Substack = false
	return out, nil
}

func checkPair(src, rcv *fftdata.FFTData, cfg Config) error {
	if cfg.MaxLag <= 0 {
		return fmt.Errorf("corrdata: max lag must be positive, got %v", cfg.MaxLag)
	}
	if src.NumWindows() == 0 || rcv.NumWindows() == 0 {
		return fmt.Errorf("corrdata: no windows to correlate")
	}
	if src.NumWindows() != rcv.NumWindows() {
		return fmt.Errorf("corrdata: window count mismatch: %d vs %d",
			src.NumWindows(), rcv.NumWindows())
	}
	if src.NFFT != rcv.NFFT {
		return fmt.Errorf("corrdata: fft length mismatch: %d vs %d", src.NFFT, rcv.NFFT)
	}
	if src.Dt != rcv.Dt {
		return fmt.Errorf("corrdata: sample interval mismatch: %v vs %v", src.Dt, rcv.Dt)
	}
	for i := range src.Time {
		if math.Abs(src.Time[i]-rcv.Time[i]) > src.Dt/2 {
			return fmt.Errorf("corrdata: window %d times misaligned: %v vs %v",
				i, src.Time[i], rcv.Time[i])
		}
	}
	if n := int(cfg.MaxLag / src.Dt); 2*n+1 > src.NFFT {
		return fmt.Errorf("corrdata: max lag %v s needs %d samples, fft length is %d",
			cfg.MaxLag, 2*n+1, src.NFFT)
	}
	return nil
}

// crossSpectrum multiplies conj(S)*R on the positive-frequency half and
// applies the method's spectral normalization.
func crossSpectrum(s, r []complex128, half int, method Method, smoothN int) []complex128 {
	out := make([]complex128, half)
	for k := 0; k < half; k++ {
		out[k] = cmplx.Conj(s[k]) * r[k]
	}

	switch method {
	case MethodDeconv:
		amp := make([]float64, half)
		for k := 0; k < half; k++ {
			amp[k] = cmplx.Abs(s[k])
		}
		ave := fftdata.MovingAverage(amp, smoothN)
		for k := range out {
			out[k] /= complex(ave[k]*ave[k], 0)
		}
	case MethodCoherency:
		ampS := make([]float64, half)
		ampR := make([]float64, half)
		for k := 0; k < half; k++ {
			ampS[k] = cmplx.Abs(s[k])
			ampR[k] = cmplx.Abs(r[k])
		}
		aveS := fftdata.MovingAverage(ampS, smoothN)
		aveR := fftdata.MovingAverage(ampR, smoothN)
		for k := range out {
			out[k] /= complex(aveS[k]*aveR[k], 0)
		}
	}
	return out
}

// invertSpectrum rebuilds the Hermitian full spectrum, inverse transforms
// it, and cuts the circular result to the -lagN..lagN window.
func invertSpectrum(plan *algofft.Plan[complex128], sp []complex128, nfft, lagN int) ([]float64, error) {
	half := nfft / 2

	full := make([]complex128, nfft)
	copy(full, sp)
	for k := 1; k < half; k++ {
		full[nfft-k] = cmplx.Conj(sp[k])
	}

	td := make([]complex128, nfft)
	if err := plan.Inverse(td, full); err != nil {
		return nil, fmt.Errorf("corrdata: inverse fft: %w", err)
	}

	row := make([]float64, 2*lagN+1)
	for j := range row {
		lag := j - lagN
		idx := lag
		if lag < 0 {
			idx = nfft + lag
		}
		row[j] = real(td[idx])
	}
	return row, nil
}

func newFromPair(src, rcv *fftdata.FFTData, cfg Config) *CorrData {
	out := &CorrData{
		Net:  [2]string{src.Sta.Net, rcv.Sta.Net},
		Sta:  [2]string{src.Sta.Sta, rcv.Sta.Sta},
		Loc:  [2]string{src.Sta.Loc, rcv.Sta.Loc},
		Chan: [2]string{src.Sta.Chan, rcv.Sta.Chan},
		Lon:  [2]float64{src.Sta.Lon, rcv.Sta.Lon},
		Lat:  [2]float64{src.Sta.Lat, rcv.Sta.Lat},
		Ele:  [2]float64{src.Sta.Ele, rcv.Sta.Ele},
		Comp: compLetter(src.Sta.Chan) + compLetter(rcv.Sta.Chan),

		MaxLag: cfg.MaxLag,
		Dt:     src.Dt,
		Misc:   map[string]string{"cc_method": cfg.Method.String()},
	}

	if dist, az, baz, err := station.PairGeometry(src.Sta, rcv.Sta); err == nil {
		out.Dist, out.Az, out.Baz = dist, az, baz
	}
	return out
}

func compLetter(chanName string) string {
	if chanName == "" {
		return ""
	}
	return chanName[len(chanName)-1:]
}
