// Package sacio reads and writes evenly sampled SAC binary waveform files.
//
// Only the time-series fields used by correlation output are exposed;
// everything else is written as the SAC undefined sentinel. Readers accept
// both byte orders, writers take an explicit binary.ByteOrder because the
// surrounding tooling historically exchanges big-endian files.
package sacio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	numFloats  = 70
	numInts    = 40
	numChars   = 192
	headerSize = numFloats*4 + numInts*4 + numChars

	// Undef fills every header slot without a meaningful value.
	Undef    = -12345.0
	UndefInt = -12345

	headerVersion = 6
	fileTypeTime  = 1 // iftype ITIME
	refTimeBegin  = 9 // iztype IB
)

// Header carries the SAC fields meaningful to correlation traces. Zero
// values of location and geometry fields are written as given; callers
// wanting "unset" use Undef.
type Header struct {
	Delta float64
	B     float64
	E     float64 // derived on write
	Npts  int     // derived on write

	// Reference time, split SAC-style.
	Nzyear, Nzjday, Nzhour, Nzmin, Nzsec, Nzmsec int

	Stla, Stlo, Stel       float64
	Evla, Evlo, Evel, Evdp float64
	Dist, Az, Baz          float64

	Kstnm, Kevnm, Khole, Kcmpnm, Knetwk string
}

// NewHeader returns a Header with every field set to the SAC undefined
// sentinel.
func NewHeader() Header {
	return Header{
		Delta: Undef, B: Undef, E: Undef,
		Nzyear: UndefInt, Nzjday: UndefInt, Nzhour: UndefInt,
		Nzmin: UndefInt, Nzsec: UndefInt, Nzmsec: UndefInt,
		Stla: Undef, Stlo: Undef, Stel: Undef,
		Evla: Undef, Evlo: Undef, Evel: Undef, Evdp: Undef,
		Dist: Undef, Az: Undef, Baz: Undef,
	}
}

// Write encodes hdr and data to w in the given byte order. Npts, E and the
// dependent amplitude fields are derived from data.
func Write(w io.Writer, hdr Header, data []float64, order binary.ByteOrder) error {
	if hdr.Delta <= 0 {
		return fmt.Errorf("sacio: delta must be positive, got %v", hdr.Delta)
	}
	if len(data) == 0 {
		return fmt.Errorf("sacio: no samples to write")
	}

	var floats [numFloats]float32
	for i := range floats {
		floats[i] = Undef
	}
	var ints [numInts]int32
	for i := range ints {
		ints[i] = UndefInt
	}
	var chars [numChars]byte
	for i := range chars {
		chars[i] = ' '
	}

	depmin, depmax, depmen := amplitudeStats(data)

	floats[0] = float32(hdr.Delta)
	floats[1] = float32(depmin)
	floats[2] = float32(depmax)
	floats[5] = float32(hdr.B)
	floats[6] = float32(hdr.B + hdr.Delta*float64(len(data)-1))
	floats[31] = float32(hdr.Stla)
	floats[32] = float32(hdr.Stlo)
	floats[33] = float32(hdr.Stel)
	floats[35] = float32(hdr.Evla)
	floats[36] = float32(hdr.Evlo)
	floats[37] = float32(hdr.Evel)
	floats[38] = float32(hdr.Evdp)
	floats[50] = float32(hdr.Dist)
	floats[51] = float32(hdr.Az)
	floats[52] = float32(hdr.Baz)
	floats[56] = float32(depmen)

	ints[0] = int32(hdr.Nzyear)
	ints[1] = int32(hdr.Nzjday)
	ints[2] = int32(hdr.Nzhour)
	ints[3] = int32(hdr.Nzmin)
	ints[4] = int32(hdr.Nzsec)
	ints[5] = int32(hdr.Nzmsec)
	ints[6] = headerVersion
	ints[9] = int32(len(data))
	ints[15] = fileTypeTime
	ints[17] = refTimeBegin
	ints[35] = 1 // leven: evenly sampled
	ints[36] = 0 // lpspol
	ints[37] = 1 // lovrok
	ints[38] = 1 // lcalda

	putString(chars[0:8], hdr.Kstnm)
	putString(chars[8:24], hdr.Kevnm)
	putString(chars[24:32], hdr.Khole)
	putString(chars[160:168], hdr.Kcmpnm)
	putString(chars[168:176], hdr.Knetwk)

	if err := binary.Write(w, order, floats[:]); err != nil {
		return fmt.Errorf("sacio: writing float header: %w", err)
	}
	if err := binary.Write(w, order, ints[:]); err != nil {
		return fmt.Errorf("sacio: writing int header: %w", err)
	}
	if _, err := w.Write(chars[:]); err != nil {
		return fmt.Errorf("sacio: writing string header: %w", err)
	}

	samples := make([]float32, len(data))
	for i, v := range data {
		samples[i] = float32(v)
	}
	if err := binary.Write(w, order, samples); err != nil {
		return fmt.Errorf("sacio: writing samples: %w", err)
	}
	return nil
}

// WriteFile writes a SAC file at path.
func WriteFile(path string, hdr Header, data []float64, order binary.ByteOrder) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sacio: %w", err)
	}
	if err := Write(f, hdr, data, order); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sacio: closing %s: %w", path, err)
	}
	return nil
}

// Read decodes a SAC file from r, detecting the byte order from the header
// version field.
func Read(r io.Reader) (Header, []float64, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Header{}, nil, fmt.Errorf("sacio: reading header: %w", err)
	}

	order, err := detectOrder(raw)
	if err != nil {
		return Header{}, nil, err
	}

	var hdr Header
	getF := func(i int) float64 {
		return float64(math.Float32frombits(order.Uint32(raw[i*4 : i*4+4])))
	}
	getI := func(i int) int {
		return int(int32(order.Uint32(raw[numFloats*4+i*4 : numFloats*4+i*4+4])))
	}
	getS := func(off, n int) string {
		return trimPad(raw[numFloats*4+numInts*4+off : numFloats*4+numInts*4+off+n])
	}

	hdr.Delta = getF(0)
	hdr.B = getF(5)
	hdr.E = getF(6)
	hdr.Stla = getF(31)
	hdr.Stlo = getF(32)
	hdr.Stel = getF(33)
	hdr.Evla = getF(35)
	hdr.Evlo = getF(36)
	hdr.Evel = getF(37)
	hdr.Evdp = getF(38)
	hdr.Dist = getF(50)
	hdr.Az = getF(51)
	hdr.Baz = getF(52)

	hdr.Nzyear = getI(0)
	hdr.Nzjday = getI(1)
	hdr.Nzhour = getI(2)
	hdr.Nzmin = getI(3)
	hdr.Nzsec = getI(4)
	hdr.Nzmsec = getI(5)
	hdr.Npts = getI(9)

	hdr.Kstnm = getS(0, 8)
	hdr.Kevnm = getS(8, 16)
	hdr.Khole = getS(24, 8)
	hdr.Kcmpnm = getS(160, 8)
	hdr.Knetwk = getS(168, 8)

	if hdr.Npts < 0 {
		return Header{}, nil, fmt.Errorf("sacio: invalid npts %d", hdr.Npts)
	}

	samples := make([]float32, hdr.Npts)
	if err := binary.Read(r, order, samples); err != nil {
		return Header{}, nil, fmt.Errorf("sacio: reading %d samples: %w", hdr.Npts, err)
	}

	data := make([]float64, hdr.Npts)
	for i, v := range samples {
		data[i] = float64(v)
	}
	return hdr, data, nil
}

// ReadFile reads a SAC file at path.
func ReadFile(path string) (Header, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("sacio: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func detectOrder(raw []byte) (binary.ByteOrder, error) {
	versionAt := (numFloats + 6) * 4
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		if int32(order.Uint32(raw[versionAt:versionAt+4])) == headerVersion {
			return order, nil
		}
	}
	return nil, fmt.Errorf("sacio: not a SAC header (version field mismatch in both byte orders)")
}

func amplitudeStats(data []float64) (depmin, depmax, depmen float64) {
	depmin, depmax = data[0], data[0]
	var sum float64
	for _, v := range data {
		if v < depmin {
			depmin = v
		}
		if v > depmax {
			depmax = v
		}
		sum += v
	}
	return depmin, depmax, sum / float64(len(data))
}

func putString(dst []byte, s string) {
	if s == "" {
		return
	}
	copy(dst, s)
}

func trimPad(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}
