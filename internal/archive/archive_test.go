package archive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-mcm/mcm/internal/bio"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	meta := sampleMetadata()
	blocks := [][]byte{
		bytes.Repeat([]byte{0xAB}, 300),
		[]byte("small block"),
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := w.WriteMetadata(meta); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	for _, b := range blocks {
		if err := w.WriteBlock(b); err != nil {
			t.Fatalf("WriteBlock: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewReader(&buf)
	if err := r.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if r.Header.Major != CurrentMajor || r.Header.Minor != CurrentMinor {
		t.Fatalf("header = %+v, want major=%d minor=%d", r.Header, CurrentMajor, CurrentMinor)
	}

	gotMeta, err := r.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if len(gotMeta.Blocks) != len(meta.Blocks) || len(gotMeta.Files) != len(meta.Files) {
		t.Fatalf("metadata shape mismatch: got %d blocks / %d files, want %d / %d",
			len(gotMeta.Blocks), len(gotMeta.Files), len(meta.Blocks), len(meta.Files))
	}

	for i, want := range blocks {
		got, err := r.ReadBlock()
		if err != nil {
			t.Fatalf("ReadBlock(%d): %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("block %d mismatch: got %d bytes, want %d bytes", i, len(got), len(want))
		}
	}
}

func TestReaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NOTANARCHIV")
	buf.Write([]byte{0, 1, 0, 0})
	r := NewReader(&buf)
	if err := r.ReadHeader(); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("ReadHeader error = %v, want ErrBadMagic", err)
	}
}

func TestReaderRejectsVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, Header{Major: CurrentMajor + 1, Minor: 0}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	r := NewReader(&buf)
	if err := r.ReadHeader(); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("ReadHeader error = %v, want ErrVersionMismatch", err)
	}
}

func TestReaderRejectsBadSentinel(t *testing.T) {
	plain := EncodeMetadata(&Metadata{})
	compressed := compressMetadata(plain)

	var buf bytes.Buffer
	var sizeBuf [bio.MaxVarintLen64]byte
	n := bio.PutUvarint(sizeBuf[:], uint64(len(compressed)))
	buf.Write(sizeBuf[:n])
	buf.Write(compressed)
	n = bio.PutUvarint(sizeBuf[:], 9999) // wrong sentinel
	buf.Write(sizeBuf[:n])

	r := NewReader(&buf)
	if _, err := r.ReadMetadata(); !errors.Is(err, ErrCorruptMetadata) {
		t.Fatalf("ReadMetadata error = %v, want ErrCorruptMetadata", err)
	}
}

func TestMetadataCompressionRoundTrip(t *testing.T) {
	plain := EncodeMetadata(sampleMetadata())
	compressed := compressMetadata(plain)
	got, err := decompressMetadata(compressed)
	if err != nil {
		t.Fatalf("decompressMetadata: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("metadata compression round trip mismatch: got %d bytes, want %d bytes", len(got), len(plain))
	}
}
