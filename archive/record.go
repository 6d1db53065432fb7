package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"

	"github.com/noisexc/noisexc/noise/corrdata"
)

var byteOrder = binary.LittleEndian

// encodeRecord serializes one correlation result into the record body
// layout: pair identity strings, substack flag, geometry, the free-form
// metadata map in key order, then the window bookkeeping and the matrix
// as raw float64 bits.
func encodeRecord(c *corrdata.CorrData) ([]byte, error) {
	var b bytes.Buffer

	for i := 0; i < 2; i++ {
		for _, s := range []string{c.Net[i], c.Sta[i], c.Loc[i], c.Chan[i]} {
			if err := writeString(&b, s); err != nil {
				return nil, err
			}
		}
	}
	if err := writeString(&b, c.Comp); err != nil {
		return nil, err
	}

	flags := byte(0)
	if c.Substack {
		flags = 1
	}
	b.WriteByte(flags)

	geom := []float64{
		c.Dt, c.MaxLag, c.Dist, c.Az, c.Baz,
		c.Lon[0], c.Lat[0], c.Ele[0],
		c.Lon[1], c.Lat[1], c.Ele[1],
	}
	if err := binary.Write(&b, byteOrder, geom); err != nil {
		return nil, fmt.Errorf("archive: encoding geometry: %w", err)
	}

	keys := slices.Sorted(maps.Keys(c.Misc))
	if len(keys) > math.MaxUint16 {
		return nil, fmt.Errorf("archive: %d metadata entries exceed the record limit", len(keys))
	}
	if err := binary.Write(&b, byteOrder, uint16(len(keys))); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := writeString(&b, k); err != nil {
			return nil, err
		}
		if err := writeString(&b, c.Misc[k]); err != nil {
			return nil, err
		}
	}

	dims := []uint32{uint32(len(c.Data)), uint32(len(c.Data[0]))}
	if err := binary.Write(&b, byteOrder, dims); err != nil {
		return nil, err
	}
	if err := binary.Write(&b, byteOrder, c.Ngood); err != nil {
		return nil, err
	}
	if err := binary.Write(&b, byteOrder, c.Time); err != nil {
		return nil, err
	}
	for _, row := range c.Data {
		if err := binary.Write(&b, byteOrder, row); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}

func decodeRecord(body []byte) (*corrdata.CorrData, error) {
	d := recordDecoder{r: bytes.NewReader(body)}
	c := &corrdata.CorrData{Misc: map[string]string{}}

	for i := 0; i < 2; i++ {
		c.Net[i] = d.str()
		c.Sta[i] = d.str()
		c.Loc[i] = d.str()
		c.Chan[i] = d.str()
	}
	c.Comp = d.str()
	c.Substack = d.byte() != 0

	c.Dt = d.f64()
	c.MaxLag = d.f64()
	c.Dist = d.f64()
	c.Az = d.f64()
	c.Baz = d.f64()
	for i := 0; i < 2; i++ {
		c.Lon[i] = d.f64()
		c.Lat[i] = d.f64()
		c.Ele[i] = d.f64()
	}

	nmisc := d.u16()
	for i := 0; i < int(nmisc) && d.err == nil; i++ {
		k := d.str()
		c.Misc[k] = d.str()
	}

	nrows := int64(d.u32())
	ncols := int64(d.u32())
	if d.err != nil {
		return nil, fmt.Errorf("archive: record truncated: %w", d.err)
	}
	if want := 8*nrows + 8*nrows + 8*nrows*ncols; int64(d.r.Len()) != want {
		return nil, fmt.Errorf("archive: record body has %d bytes of samples, want %d", d.r.Len(), want)
	}

	c.Ngood = make([]int64, nrows)
	d.read(c.Ngood)
	c.Time = make([]float64, nrows)
	d.read(c.Time)
	c.Data = make([][]float64, nrows)
	for i := range c.Data {
		c.Data[i] = make([]float64, ncols)
		d.read(c.Data[i])
	}

	if d.err != nil {
		return nil, fmt.Errorf("archive: record truncated: %w", d.err)
	}
	return c, nil
}

// recordDecoder reads body fields in sequence and keeps the first error,
// so the field-by-field decode above stays free of per-read checks.
type recordDecoder struct {
	r   *bytes.Reader
	err error
}

func (d *recordDecoder) read(v any) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, byteOrder, v)
}

func (d *recordDecoder) str() string {
	if d.err != nil {
		return ""
	}
	var n uint16
	if d.err = binary.Read(d.r, byteOrder, &n); d.err != nil {
		return ""
	}
	buf := make([]byte, n)
	if _, d.err = io.ReadFull(d.r, buf); d.err != nil {
		return ""
	}
	return string(buf)
}

func (d *recordDecoder) byte() byte {
	var v byte
	d.read(&v)
	return v
}

func (d *recordDecoder) u16() uint16 {
	var v uint16
	d.read(&v)
	return v
}

func (d *recordDecoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

func (d *recordDecoder) f64() float64 {
	var v float64
	d.read(&v)
	return v
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("archive: string field of %d bytes exceeds the record limit", len(s))
	}
	if err := binary.Write(w, byteOrder, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}
