package archive

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/go-mcm/mcm/internal/bio"
)

// maxPlausibleCount bounds every LEB128-decoded item count read from
// metadata: a corrupt or truncated stream can produce an enormous
// varint, and without a sanity ceiling the decoder would try to
// allocate a slice of that length before ever reading a single byte
// of it (spec §7, CorruptMetadata: "LEB128 size implausible (> 10 M
// items)").
const maxPlausibleCount = 10_000_000

// Range is one contiguous run of a solid block's bytes belonging to a
// single destination file, expressed as a length plus a delta against
// the previous range's end offset (spec §4.15).
type Range struct {
	Length      uint64
	DeltaOffset int64
}

// Segment is one destination stream's share of a solid block: the
// stream it writes to, the offset its first range begins at, and the
// list of ranges carved out of the block for that stream.
type Segment struct {
	StreamIdx  uint64
	BaseOffset uint64
	Ranges     []Range
}

// BlockDescriptor records the algorithm a solid block was compressed
// with plus the segments the decompressed block scatters into.
type BlockDescriptor struct {
	MemUsage byte
	AlgoID   byte
	LZP      byte
	Filter   byte
	Profile  byte

	Segments []Segment
}

// FileEntry is one archived file's name and attributes. Name is stored
// decoded (shared-prefix-compression is an encoding-time detail, not
// part of the in-memory representation); SharedPrefixLen records how
// many leading bytes the wire form actually shared with the previous
// entry. DecodeMetadata fills it in; EncodeMetadata ignores it and
// recomputes the common prefix from the names.
type FileEntry struct {
	Name            string
	SharedPrefixLen int
	Attributes      byte
}

// Metadata is the decompressed form of the metadata block preceding an
// archive's solid blocks (spec §4.15).
type Metadata struct {
	Blocks []BlockDescriptor
	Files  []FileEntry
}

// EncodeMetadata serializes m into the wire layout of spec §4.15.
func EncodeMetadata(m *Metadata) []byte {
	var buf bytes.Buffer
	buf.Grow(256)

	writeUvarint(&buf, uint64(len(m.Blocks)))
	for _, b := range m.Blocks {
		buf.WriteByte(b.MemUsage)
		buf.WriteByte(b.AlgoID)
		buf.WriteByte(b.LZP)
		buf.WriteByte(b.Filter)
		buf.WriteByte(b.Profile)

		writeUvarint(&buf, uint64(len(b.Segments)))
		for _, seg := range b.Segments {
			writeUvarint(&buf, seg.StreamIdx)
			writeUvarint(&buf, seg.BaseOffset)
			writeUvarint(&buf, uint64(len(seg.Ranges)))
			for _, rg := range seg.Ranges {
				writeUvarint(&buf, rg.Length)
			}
			for _, rg := range seg.Ranges {
				writeVarint(&buf, rg.DeltaOffset)
			}
		}
	}

	writeUvarint(&buf, uint64(len(m.Files)))
	sharedLens := make([]int, len(m.Files))
	prev := ""
	for i, f := range m.Files {
		sharedLens[i] = sharedPrefixLen(prev, f.Name)
		buf.WriteString(f.Name[sharedLens[i]:])
		buf.WriteByte(0)
		prev = f.Name
	}
	for _, n := range sharedLens {
		writeUvarint(&buf, uint64(n))
	}
	for _, f := range m.Files {
		buf.WriteByte(f.Attributes)
	}

	return buf.Bytes()
}

func sharedPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// DecodeMetadata parses the wire layout written by EncodeMetadata.
func DecodeMetadata(data []byte) (*Metadata, error) {
	r := bufio.NewReader(bytes.NewReader(data))
	m := &Metadata{}

	numBlocks, err := readCountUvarint(r)
	if err != nil {
		return nil, err
	}
	m.Blocks = make([]BlockDescriptor, 0, numBlocks)
	for i := uint64(0); i < numBlocks; i++ {
		var b BlockDescriptor
		hdr := make([]byte, 5)
		if _, err := readFull(r, hdr); err != nil {
			return nil, fmt.Errorf("%w: block header: %v", ErrCorruptMetadata, err)
		}
		b.MemUsage, b.AlgoID, b.LZP, b.Filter, b.Profile = hdr[0], hdr[1], hdr[2], hdr[3], hdr[4]

		numSegments, err := readCountUvarint(r)
		if err != nil {
			return nil, err
		}
		b.Segments = make([]Segment, 0, numSegments)
		for j := uint64(0); j < numSegments; j++ {
			var seg Segment
			if seg.StreamIdx, err = bio.ReadUvarint(r); err != nil {
				return nil, fmt.Errorf("%w: stream_idx: %v", ErrCorruptMetadata, err)
			}
			if seg.BaseOffset, err = bio.ReadUvarint(r); err != nil {
				return nil, fmt.Errorf("%w: base_offset: %v", ErrCorruptMetadata, err)
			}
			numRanges, err := readCountUvarint(r)
			if err != nil {
				return nil, err
			}
			seg.Ranges = make([]Range, numRanges)
			for k := range seg.Ranges {
				if seg.Ranges[k].Length, err = bio.ReadUvarint(r); err != nil {
					return nil, fmt.Errorf("%w: range length: %v", ErrCorruptMetadata, err)
				}
			}
			for k := range seg.Ranges {
				dv, err := bio.ReadUvarint(r)
				if err != nil {
					return nil, fmt.Errorf("%w: range delta: %v", ErrCorruptMetadata, err)
				}
				seg.Ranges[k].DeltaOffset = zigzagDecode(dv)
			}
			b.Segments = append(b.Segments, seg)
		}
		m.Blocks = append(m.Blocks, b)
	}

	numFiles, err := readCountUvarint(r)
	if err != nil {
		return nil, err
	}
	suffixes := make([]string, numFiles)
	for i := range suffixes {
		s, err := readNullTerminated(r)
		if err != nil {
			return nil, fmt.Errorf("%w: file name: %v", ErrCorruptMetadata, err)
		}
		suffixes[i] = s
	}
	sharedLens := make([]int, numFiles)
	for i := range sharedLens {
		v, err := readCountUvarint(r)
		if err != nil {
			return nil, err
		}
		sharedLens[i] = int(v)
	}

	m.Files = make([]FileEntry, numFiles)
	prev := ""
	for i := range m.Files {
		shared := sharedLens[i]
		if shared > len(prev) {
			return nil, fmt.Errorf("%w: shared_prefix_len exceeds previous name length", ErrCorruptMetadata)
		}
		name := prev[:shared] + suffixes[i]
		m.Files[i] = FileEntry{Name: name, SharedPrefixLen: shared}
		prev = name
	}
	for i := range m.Files {
		a, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: attributes: %v", ErrCorruptMetadata, err)
		}
		m.Files[i].Attributes = a
	}

	return m, nil
}

func writeUvarint(buf *bytes.Buffer, x uint64) {
	var tmp [bio.MaxVarintLen64]byte
	n := bio.PutUvarint(tmp[:], x)
	buf.Write(tmp[:n])
}

// writeVarint zigzag-encodes a signed delta offset so small negative
// deltas (a range that starts before the previous one ended, e.g. on
// overlapping writes) stay short instead of sign-extending to the full
// 64-bit varint width.
func writeVarint(buf *bytes.Buffer, x int64) {
	writeUvarint(buf, zigzagEncode(x))
}

func zigzagEncode(x int64) uint64 {
	return uint64(x<<1) ^ uint64(x>>63)
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func readCountUvarint(r byteReader) (uint64, error) {
	v, err := bio.ReadUvarint(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
	}
	if v > maxPlausibleCount {
		return 0, fmt.Errorf("%w: count %d exceeds sanity limit", ErrCorruptMetadata, v)
	}
	return v, nil
}

type byteReader interface {
	ReadByte() (byte, error)
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		b, err := r.ReadByte()
		if err != nil {
			return n, err
		}
		buf[n] = b
		n++
	}
	return n, nil
}

func readNullTerminated(r *bufio.Reader) (string, error) {
	s, err := r.ReadString(0)
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}
