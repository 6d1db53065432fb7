package corrdata

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/noisexc/noisexc/seis/sacio"
)

// ToSAC writes the correlation rows as big-endian SAC files under dir.
// Substacked data produces one file per window, named by the window start
// time; stacked data produces a single file. The receiver side fills the
// station header fields and the virtual source fills the event fields.
// Returns the written paths.
func (c *CorrData) ToSAC(dir string) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, c.NumRows())
	for i, row := range c.Data {
		hdr := c.sacHeader(i)
		name := fmt.Sprintf("%s_%s_%s.sac",
			c.PairID(), c.ChanPair(), c.TimeAt(i).Format("20060102T150405Z"))
		path := filepath.Join(dir, name)
		if err := sacio.WriteFile(path, hdr, row, binary.BigEndian); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (c *CorrData) sacHeader(i int) sacio.Header {
	hdr := sacio.NewHeader()
	hdr.Delta = c.Dt
	hdr.B = -c.MaxLag

	t := c.TimeAt(i)
	hdr.Nzyear = t.Year()
	hdr.Nzjday = t.YearDay()
	hdr.Nzhour = t.Hour()
	hdr.Nzmin = t.Minute()
	hdr.Nzsec = t.Second()
	hdr.Nzmsec = t.Nanosecond() / 1e6

	hdr.Stla = c.Lat[1]
	hdr.Stlo = c.Lon[1]
	hdr.Stel = c.Ele[1]
	hdr.Evla = c.Lat[0]
	hdr.Evlo = c.Lon[0]
	hdr.Evel = c.Ele[0]
	hdr.Evdp = c.Ele[0]

	hdr.Dist = c.Dist
	hdr.Az = c.Az
	hdr.Baz = c.Baz

	hdr.Kstnm = c.Sta[1]
	hdr.Knetwk = c.Net[1]
	hdr.Khole = c.Loc[1]
	hdr.Kcmpnm = c.Chan[1]
	hdr.Kevnm = c.Net[0] + "." + c.Sta[0]
	return hdr
}
