// Package archive stores cross-correlation results in a chunked,
// zstd-compressed container. Each record holds one CorrData object and is
// addressed by a tag and a path: correlation files tag records by station
// pair ("NET1.STA1_NET2.STA2") with the channel pair as path, stacked
// files tag by stacking method ("Allstack0linear") with the component
// pair as path. Records round-trip every field, the matrices bit-exactly.
package archive

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/noisexc/noisexc/noise/corrdata"
	"github.com/noisexc/noisexc/noise/stack"
)

var fileMagic = [4]byte{'N', 'X', 'C', 'F'}

const formatVersion = 1

// ErrNotFound reports that no record matches a tag/path address.
var ErrNotFound = errors.New("record not found")

const stackTagPrefix = "Allstack0"

// StackTag returns the record tag stacked archives use for a stacking
// method, e.g. "Allstack0linear".
func StackTag(m stack.Method) string {
	return stackTagPrefix + m.String()
}

// IsStackTag reports whether tag names an all-time stack record.
func IsStackTag(tag string) bool {
	return strings.HasPrefix(tag, stackTagPrefix)
}

// Writer appends correlation records to a new archive file.
type Writer struct {
	f   *os.File
	enc *zstd.Encoder
}

// Create opens a new archive file at name, truncating any existing one.
func Create(name string) (*Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}

	var hdr [6]byte
	copy(hdr[:4], fileMagic[:])
	byteOrder.PutUint16(hdr[4:], formatVersion)
	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: writing %s: %w", name, err)
	}
	return &Writer{f: f, enc: enc}, nil
}

// Write appends c addressed by its station pair and channel pair.
func (w *Writer) Write(c *corrdata.CorrData) error {
	return w.WriteTagged(c.PairID(), c.ChanPair(), c)
}

// WriteStack appends a stacked result addressed by stacking method and
// component pair, the layout the moveout tooling scans.
func (w *Writer) WriteStack(m stack.Method, c *corrdata.CorrData) error {
	return w.WriteTagged(StackTag(m), c.Comp, c)
}

// WriteTagged appends c under an explicit tag and path.
func (w *Writer) WriteTagged(tag, path string, c *corrdata.CorrData) error {
	if err := c.Validate(); err != nil {
		return err
	}
	body, err := encodeRecord(c)
	if err != nil {
		return err
	}
	blob := w.enc.EncodeAll(body, nil)

	var hdr bytes.Buffer
	if err := writeString(&hdr, tag); err != nil {
		return err
	}
	if err := writeString(&hdr, path); err != nil {
		return err
	}
	if err := binary.Write(&hdr, byteOrder, uint32(len(blob))); err != nil {
		return err
	}
	if _, err := w.f.Write(hdr.Bytes()); err != nil {
		return fmt.Errorf("archive: writing record %s/%s: %w", tag, path, err)
	}
	if _, err := w.f.Write(blob); err != nil {
		return fmt.Errorf("archive: writing record %s/%s: %w", tag, path, err)
	}
	return nil
}

// Close flushes and closes the archive file.
func (w *Writer) Close() error {
	err := w.enc.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// File reads an archive. Open scans the record frames once; record bodies
// stay on disk until read.
type File struct {
	f       *os.File
	dec     *zstd.Decoder
	entries []entry
	tags    []string
}

type entry struct {
	tag  string
	path string
	off  int64
	size int64
}

// RecordInfo is one record address inside an archive.
type RecordInfo struct {
	Tag  string
	Path string
}

// Open opens an archive file for reading and indexes its records.
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	var hdr [6]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil || !bytes.Equal(hdr[:4], fileMagic[:]) {
		f.Close()
		return nil, fmt.Errorf("archive: %s is not a correlation archive", name)
	}
	if v := byteOrder.Uint16(hdr[4:]); v != formatVersion {
		f.Close()
		return nil, fmt.Errorf("archive: %s: unsupported format version %d", name, v)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}

	a := &File{f: f, dec: dec}
	if err := a.scan(name); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// scan walks the record frames, collecting addresses and body offsets.
func (a *File) scan(name string) error {
	br := bufio.NewReader(a.f)
	off := int64(6)
	seen := map[string]bool{}

	for {
		tag, err := scanString(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: %s: reading record header: %w", name, err)
		}
		path, err := scanString(br)
		if err != nil {
			return fmt.Errorf("archive: %s: truncated record header: %w", name, err)
		}
		var size uint32
		if err := binary.Read(br, byteOrder, &size); err != nil {
			return fmt.Errorf("archive: %s: truncated record header: %w", name, err)
		}

		off += int64(2+len(tag)) + int64(2+len(path)) + 4
		a.entries = append(a.entries, entry{tag: tag, path: path, off: off, size: int64(size)})
		if !seen[tag] {
			seen[tag] = true
			a.tags = append(a.tags, tag)
		}

		if _, err := io.CopyN(io.Discard, br, int64(size)); err != nil {
			return fmt.Errorf("archive: %s: truncated record body: %w", name, err)
		}
		off += int64(size)
	}
}

// Tags returns the record tags in first-appearance order: station pairs
// in correlation files, stack types in stacked files.
func (a *File) Tags() []string {
	return append([]string(nil), a.tags...)
}

// Paths returns the record paths stored under a tag, in file order.
func (a *File) Paths(tag string) []string {
	var out []string
	for _, e := range a.entries {
		if e.tag == tag {
			out = append(out, e.path)
		}
	}
	return out
}

// Records lists every record address in file order.
func (a *File) Records() []RecordInfo {
	out := make([]RecordInfo, len(a.entries))
	for i, e := range a.entries {
		out[i] = RecordInfo{Tag: e.tag, Path: e.path}
	}
	return out
}

// Read decompresses and decodes the record at tag/path. Missing records
// report ErrNotFound.
func (a *File) Read(tag, path string) (*corrdata.CorrData, error) {
	for _, e := range a.entries {
		if e.tag != tag || e.path != path {
			continue
		}
		blob := make([]byte, e.size)
		if _, err := a.f.ReadAt(blob, e.off); err != nil {
			return nil, fmt.Errorf("archive: reading %s/%s: %w", tag, path, err)
		}
		body, err := a.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("archive: decompressing %s/%s: %w", tag, path, err)
		}
		c, err := decodeRecord(body)
		if err != nil {
			return nil, fmt.Errorf("archive: %s/%s: %w", tag, path, err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("archive: %s/%s: %w", tag, path, ErrNotFound)
}

// Close releases the decoder and the underlying file.
func (a *File) Close() error {
	a.dec.Close()
	return a.f.Close()
}

func scanString(br *bufio.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return "", err
	}
	buf := make([]byte, byteOrder.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(br, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(buf), nil
}
