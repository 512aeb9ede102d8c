package archive

import (
	"encoding/binary"
	"fmt"
	"io"
)

// magic is the 10-byte archive signature (spec §4.15).
var magic = [10]byte{'M', 'C', 'M', 'A', 'R', 'C', 'H', 'I', 'V', 'E'}

// CurrentMajor, CurrentMinor are the version this package writes and
// the newest version it accepts on read.
const (
	CurrentMajor = 1
	CurrentMinor = 0
)

// sentinelValue is the LEB128 value written immediately after the
// compressed metadata block, a corruption tripwire (spec §4.15, §7).
const sentinelValue = 1234

// Header is the archive container's 14-byte fixed preamble.
type Header struct {
	Major uint16
	Minor uint16
}

// WriteHeader writes the magic and version fields.
func WriteHeader(w io.Writer, h Header) error {
	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("archive: write magic: %w", err)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint16(buf[0:2], h.Major)
	binary.LittleEndian.PutUint16(buf[2:4], h.Minor)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("archive: write version: %w", err)
	}
	return nil
}

// ReadHeader reads and validates the magic and version fields.
func ReadHeader(r io.Reader) (Header, error) {
	var got [10]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return Header{}, fmt.Errorf("archive: read magic: %w", err)
	}
	if got != magic {
		return Header{}, ErrBadMagic
	}
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("archive: read version: %w", err)
	}
	h := Header{Major: binary.LittleEndian.Uint16(buf[0:2]), Minor: binary.LittleEndian.Uint16(buf[2:4])}
	if h.Major != CurrentMajor || h.Minor > CurrentMinor {
		return h, ErrVersionMismatch
	}
	return h, nil
}
