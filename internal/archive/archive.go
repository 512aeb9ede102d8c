// Package archive implements the on-disk container format described in
// spec §4.15: a magic header, a CM-compressed metadata record describing
// the solid blocks and the files they scatter into, and the solid
// blocks themselves in descending-size order.
//
// This package does not itself run the content compressor over file
// bytes — callers (the top-level mcm package) hand it already-compressed
// block payloads to write, and already-compressed payloads to read back.
// The one exception is the metadata record, which archive compresses
// and decompresses itself with a fixed "weak" CM configuration, mirroring
// Archive::createMetaDataCompressor in the original mcm source: metadata is
// small and uniform enough that a lightweight model pays for itself
// without needing the caller's chosen profile.
package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/go-mcm/mcm/internal/bio"
	"github.com/go-mcm/mcm/internal/cm"
	"github.com/go-mcm/mcm/internal/rangecoder"
)

// metadataMemLevel fixes the hash-table sizing used for the metadata
// block's Simple profile; metadata is tiny, so this never needs to
// scale with the caller's compression level.
const metadataMemLevel = 0

// lengthFieldSize is the padded width of each solid block's encoded
// length prefix (spec §4.15: "padded to 10 bytes with zeros"), matching
// bio.MaxVarintLen64 so any representable length fits unpadded.
const lengthFieldSize = bio.MaxVarintLen64

// Writer serializes a header, a metadata record, and a sequence of
// solid blocks to an underlying stream in the wire order of spec §4.15.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w for archive container output.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the container's magic and version preamble. It
// must be the first call made on a fresh Writer.
func (aw *Writer) WriteHeader() error {
	return WriteHeader(aw.w, Header{Major: CurrentMajor, Minor: CurrentMinor})
}

// WriteMetadata compresses m with the fixed metadata CM configuration
// and writes it as `[size LEB128][compressed bytes][sentinel LEB128]`.
func (aw *Writer) WriteMetadata(m *Metadata) error {
	plain := EncodeMetadata(m)
	compressed := compressMetadata(plain)

	var sizeBuf [bio.MaxVarintLen64]byte
	n := bio.PutUvarint(sizeBuf[:], uint64(len(compressed)))
	if _, err := aw.w.Write(sizeBuf[:n]); err != nil {
		return fmt.Errorf("archive: write metadata size: %w", err)
	}
	if _, err := aw.w.Write(compressed); err != nil {
		return fmt.Errorf("archive: write metadata: %w", err)
	}

	var sentBuf [bio.MaxVarintLen64]byte
	n = bio.PutUvarint(sentBuf[:], sentinelValue)
	if _, err := aw.w.Write(sentBuf[:n]); err != nil {
		return fmt.Errorf("archive: write sentinel: %w", err)
	}
	return nil
}

// WriteBlock writes one already-compressed solid block, length-prefixed
// per spec §4.15. Blocks should be supplied in descending uncompressed
// size order by the caller (the Writer does not reorder them).
func (aw *Writer) WriteBlock(compressed []byte) error {
	var lenBuf [lengthFieldSize]byte
	n := bio.PutUvarint(lenBuf[:], uint64(len(compressed)))
	for i := n; i < lengthFieldSize; i++ {
		lenBuf[i] = 0
	}
	if _, err := aw.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("archive: write block length: %w", err)
	}
	if _, err := aw.w.Write(compressed); err != nil {
		return fmt.Errorf("archive: write block: %w", err)
	}
	return nil
}

// Flush flushes any buffered output to the underlying writer.
func (aw *Writer) Flush() error {
	return aw.w.Flush()
}

// Reader parses an archive container written by Writer.
type Reader struct {
	r      *bufio.Reader
	Header Header
}

// NewReader wraps r for archive container input.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadHeader reads and validates the magic and version preamble. It
// must be the first call made on a fresh Reader.
func (ar *Reader) ReadHeader() error {
	h, err := ReadHeader(ar.r)
	if err != nil {
		return err
	}
	ar.Header = h
	return nil
}

// ReadMetadata reads and decompresses the metadata record, verifying
// the sentinel that follows it.
func (ar *Reader) ReadMetadata() (*Metadata, error) {
	size, err := bio.ReadUvarint(ar.r)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata size: %v", ErrCorruptMetadata, err)
	}
	if size > maxPlausibleCount {
		return nil, fmt.Errorf("%w: metadata size %d exceeds sanity limit", ErrCorruptMetadata, size)
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(ar.r, compressed); err != nil {
		return nil, fmt.Errorf("%w: metadata body: %v", ErrCorruptMetadata, err)
	}

	sentinel, err := bio.ReadUvarint(ar.r)
	if err != nil {
		return nil, fmt.Errorf("%w: sentinel: %v", ErrCorruptMetadata, err)
	}
	if sentinel != sentinelValue {
		return nil, fmt.Errorf("%w: sentinel %d != %d", ErrCorruptMetadata, sentinel, sentinelValue)
	}

	plain, err := decompressMetadata(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
	}
	return DecodeMetadata(plain)
}

// ReadBlock reads one length-prefixed solid block and returns its
// still-compressed bytes.
func (ar *Reader) ReadBlock() ([]byte, error) {
	var lenBuf [lengthFieldSize]byte
	if _, err := io.ReadFull(ar.r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("archive: read block length: %w", err)
	}
	size, err := bio.ReadUvarint(bytes.NewReader(lenBuf[:]))
	if err != nil {
		return nil, fmt.Errorf("%w: block length: %v", ErrCorruptMetadata, err)
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(ar.r, compressed); err != nil {
		return nil, fmt.Errorf("archive: read block body: %w", err)
	}
	return compressed, nil
}

// compressMetadata runs the metadata bytes through a Simple-profile CM
// instance, the "weak CM configuration" spec §4.15 calls for. The
// plaintext length is written as a LEB128 prefix ahead of the
// range-coded bytes so decompressMetadata knows how many bytes to ask
// the decoder for; this is an internal detail of the compressed-blob
// layout and not part of the §4.15 wire format itself.
func compressMetadata(plain []byte) []byte {
	out := bio.AppendUvarint(nil, uint64(len(plain)))
	buf := bytes.NewBuffer(out)

	enc := rangecoder.NewEncoder(buf)
	c := cm.NewCM(cm.NewSimpleProfile(metadataMemLevel))
	c.Encode(enc, plain)
	enc.Flush()
	return buf.Bytes()
}

func decompressMetadata(compressed []byte) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(compressed))
	plainLen, err := bio.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("metadata plaintext length: %w", err)
	}
	if plainLen > maxPlausibleCount*64 {
		return nil, fmt.Errorf("metadata plaintext length %d exceeds sanity limit", plainLen)
	}
	dec := rangecoder.NewDecoder(br)
	c := cm.NewCM(cm.NewSimpleProfile(metadataMemLevel))
	return c.Decode(dec, int(plainLen)), nil
}
