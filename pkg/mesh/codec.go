package mesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Fragment file errors.
var (
	ErrInvalidMagic       = errors.New("invalid fragment magic: expected 'MFRG'")
	ErrUnsupportedVersion = errors.New("unsupported fragment version")
	ErrTruncated          = errors.New("truncated fragment data")
	ErrRecordCount        = errors.New("record count out of range")
	ErrUnknownType        = errors.New("unknown component type")
	ErrTrailingData       = errors.New("component payload has trailing data")
	ErrPartialFace        = errors.New("index count is not a whole number of faces")
)

const (
	fragmentMagic   = "MFRG"
	fragmentVersion = 1

	maxRecords          = 1 << 26
	maxComponents       = 256
	maxMorphTargets     = 1024
	maxMeshletVertices  = 256
	maxMeshletTriangles = 512
)

// Factory creates an empty component instance for a persisted type name.
type Factory func(typeName string) (Component, error)

// Encode writes f in the fragment file format: magic, version, name, then
// every component as type name, payload size and payload.
func Encode(w io.Writer, f *Fragment) error {
	var hdr []byte
	hdr = append(hdr, fragmentMagic...)
	hdr = binary.LittleEndian.AppendUint16(hdr, fragmentVersion)
	hdr = appendString(hdr, f.Name)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(f.order)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	var payload bytes.Buffer
	for _, name := range f.order {
		c := f.components[name]
		payload.Reset()
		if _, err := c.WriteTo(&payload); err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		rec := appendString(nil, c.TypeName())
		rec = binary.LittleEndian.AppendUint32(rec, uint32(payload.Len()))
		if _, err := w.Write(rec); err != nil {
			return err
		}
		if _, err := payload.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a fragment written by Encode. Component instances are created
// through factory so that externally registered types round-trip.
func Decode(r io.Reader, factory Factory) (*Fragment, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, ErrTruncated
	}
	if string(magic[:]) != fragmentMagic {
		return nil, ErrInvalidMagic
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, ErrTruncated
	}
	if version != fragmentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	f := NewFragment(name)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ErrTruncated
	}
	if count > maxComponents {
		return nil, fmt.Errorf("%w: %d components", ErrRecordCount, count)
	}

	for i := uint32(0); i < count; i++ {
		typeName, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, ErrTruncated
		}

		c, err := factory(typeName)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		n, err := c.ReadFrom(io.LimitReader(r, int64(size)))
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", typeName, err)
		}
		if n != int64(size) {
			return nil, fmt.Errorf("decoding %s: %w (%d of %d bytes used)", typeName, ErrTrailingData, n, size)
		}
		f.Add(c)
	}
	return f, nil
}

// ReadFile decodes a fragment file from disk.
func ReadFile(path string, factory Factory) (*Fragment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fragment file: %w", err)
	}
	defer file.Close()
	return Decode(bufio.NewReader(file), factory)
}

// WriteFile encodes f to path.
func WriteFile(path string, f *Fragment) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating fragment file: %w", err)
	}
	w := bufio.NewWriter(file)
	if err := Encode(w, f); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// countingReader tracks how many bytes a ReadFrom implementation consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func readCount(r io.Reader) (int, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, ErrTruncated
	}
	if count > maxRecords {
		return 0, fmt.Errorf("%w: %d", ErrRecordCount, count)
	}
	return int(count), nil
}

// remaining returns how many bytes r can still deliver, or -1 when the
// reader does not know.
func remaining(r io.Reader) int64 {
	switch v := r.(type) {
	case *countingReader:
		return remaining(v.r)
	case *io.LimitedReader:
		return v.N
	case interface{ Len() int }:
		return int64(v.Len())
	default:
		return -1
	}
}

// checkFits rejects count records of at least size bytes that cannot fit in
// what is left of r, before anything is allocated for them.
func checkFits(r io.Reader, count, size int) error {
	left := remaining(r)
	if left >= 0 && int64(count)*int64(size) > left {
		return fmt.Errorf("%w: %d records of %d bytes, %d bytes left", ErrRecordCount, count, size, left)
	}
	return nil
}

// readRecords reads a record count followed by count records of size bytes.
func readRecords(r io.Reader, size int) ([]byte, int64, error) {
	cr := &countingReader{r: r}
	count, err := readCount(cr)
	if err != nil {
		return nil, cr.n, err
	}
	if err := checkFits(cr, count, size); err != nil {
		return nil, cr.n, err
	}
	raw := make([]byte, count*size)
	if _, err := io.ReadFull(cr, raw); err != nil {
		return nil, cr.n, ErrTruncated
	}
	return raw, cr.n, nil
}

func appendString(dst []byte, s string) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...)
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", ErrTruncated
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ErrTruncated
	}
	return string(buf), nil
}
