package mcm

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-mcm/mcm/internal/archive"
)

// memWriterAt is a growable in-memory io.WriterAt standing in for a
// destination file in tests.
type memWriterAt struct {
	data []byte
}

func (b *memWriterAt) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if int64(len(b.data)) < end {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[off:end], p)
	return len(p), nil
}

func decompressToMemory(t *testing.T, archiveBytes []byte, n int) []*memWriterAt {
	t.Helper()
	buffers := make([]*memWriterAt, n)
	_, err := Decompress(context.Background(), bytes.NewReader(archiveBytes), func(idx uint64) (io.WriterAt, error) {
		if buffers[idx] == nil {
			buffers[idx] = &memWriterAt{}
		}
		return buffers[idx], nil
	})
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	return buffers
}

func sampleText(word string, repeats int) string {
	return strings.Repeat(word+" ", repeats)
}

func TestCompressDecompressRoundTripText(t *testing.T) {
	files := []FileInfo{
		{Name: "a.txt", Data: []byte(sampleText("the quick brown fox jumps over the lazy dog", 40)), Attributes: 0x06},
		{Name: "b.txt", Data: []byte(sampleText("the lazy dog sleeps while the quick fox runs", 40)), Attributes: 0x06},
	}

	var buf bytes.Buffer
	total, err := Compress(&buf, files, DefaultOptions())
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	var want uint64
	for _, f := range files {
		want += uint64(len(f.Data))
	}
	if total != want {
		t.Fatalf("Compress total = %d, want %d", total, want)
	}

	buffers := decompressToMemory(t, buf.Bytes(), len(files))
	for i, f := range files {
		if !bytes.Equal(buffers[i].data, f.Data) {
			t.Fatalf("file %d round trip mismatch: got %d bytes, want %d bytes", i, len(buffers[i].data), len(f.Data))
		}
	}
}

func TestCompressDecompressRoundTripBinary(t *testing.T) {
	data := make([]byte, 2000)
	for i := range data {
		data[i] = byte(i*37 + 11)
	}
	files := []FileInfo{{Name: "blob.bin", Data: data, Attributes: 0x02}}

	var buf bytes.Buffer
	if _, err := Compress(&buf, files, DefaultOptions()); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	buffers := decompressToMemory(t, buf.Bytes(), len(files))
	if !bytes.Equal(buffers[0].data, data) {
		t.Fatalf("binary round trip mismatch: got %d bytes, want %d", len(buffers[0].data), len(data))
	}
}

func TestCompressDecompressMixedProfilesSplitIntoBlocks(t *testing.T) {
	files := []FileInfo{
		{Name: "doc.txt", Data: []byte(sampleText("alpha beta gamma delta epsilon alpha beta", 30))},
		{Name: "blob.bin", Data: bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 200)},
	}

	var buf bytes.Buffer
	if _, err := Compress(&buf, files, DefaultOptions()); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	ar := archive.NewReader(bytes.NewReader(buf.Bytes()))
	if err := ar.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	meta, err := ar.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if len(meta.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (one per dominant profile)", len(meta.Blocks))
	}

	buffers := decompressToMemory(t, buf.Bytes(), len(files))
	for i, f := range files {
		if !bytes.Equal(buffers[i].data, f.Data) {
			t.Fatalf("file %d mismatch: got %d bytes, want %d", i, len(buffers[i].data), len(f.Data))
		}
	}
}

func TestCompressStoreLevelIsPassthrough(t *testing.T) {
	files := []FileInfo{{Name: "raw.dat", Data: []byte("not actually compressed")}}
	opts := &Options{Level: LevelStore, MemLevel: DefaultMemLevel, Filter: FilterAuto, LZP: LZPAuto}

	var buf bytes.Buffer
	if _, err := Compress(&buf, files, opts); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	buffers := decompressToMemory(t, buf.Bytes(), len(files))
	if !bytes.Equal(buffers[0].data, files[0].Data) {
		t.Fatalf("store round trip mismatch: got %q, want %q", buffers[0].data, files[0].Data)
	}
}

func TestCompressForcedFilters(t *testing.T) {
	for _, tag := range []FilterMode{FilterNone, FilterDict, FilterX86} {
		tag := tag
		t.Run(tag.String(), func(t *testing.T) {
			files := []FileInfo{{Name: "f", Data: []byte(sampleText("repeated word token stream", 20))}}
			opts := &Options{Level: LevelMid, MemLevel: DefaultMemLevel, Filter: tag, LZP: LZPAuto}

			var buf bytes.Buffer
			if _, err := Compress(&buf, files, opts); err != nil {
				t.Fatalf("Compress: %v", err)
			}
			buffers := decompressToMemory(t, buf.Bytes(), len(files))
			if !bytes.Equal(buffers[0].data, files[0].Data) {
				t.Fatalf("round trip mismatch under filter %v", tag)
			}
		})
	}
}

func TestCompressLZPDisabled(t *testing.T) {
	files := []FileInfo{{Name: "f", Data: []byte(sampleText("mississippi river delta", 50))}}
	opts := &Options{Level: LevelMid, MemLevel: DefaultMemLevel, Filter: FilterAuto, LZP: LZPDisabled}

	var buf bytes.Buffer
	if _, err := Compress(&buf, files, opts); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	buffers := decompressToMemory(t, buf.Bytes(), len(files))
	if !bytes.Equal(buffers[0].data, files[0].Data) {
		t.Fatalf("round trip mismatch with LZP disabled")
	}
}

func TestList(t *testing.T) {
	files := []FileInfo{
		{Name: "one.txt", Data: []byte("hello"), Attributes: 0x06},
		{Name: "two.txt", Data: []byte("world!"), Attributes: 0x06},
	}

	var buf bytes.Buffer
	if _, err := Compress(&buf, files, DefaultOptions()); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	entries, err := List(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != len(files) {
		t.Fatalf("got %d entries, want %d", len(entries), len(files))
	}
	for i, f := range files {
		if entries[i].Name != f.Name {
			t.Fatalf("entry %d name = %q, want %q", i, entries[i].Name, f.Name)
		}
		if entries[i].Size != uint64(len(f.Data)) {
			t.Fatalf("entry %d size = %d, want %d", i, entries[i].Size, len(f.Data))
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Level != LevelMid {
		t.Errorf("Level = %v, want LevelMid", opts.Level)
	}
	if opts.MemLevel != DefaultMemLevel {
		t.Errorf("MemLevel = %d, want %d", opts.MemLevel, DefaultMemLevel)
	}
	if opts.Filter != FilterAuto {
		t.Errorf("Filter = %v, want FilterAuto", opts.Filter)
	}
	if opts.LZP != LZPAuto {
		t.Errorf("LZP = %v, want LZPAuto", opts.LZP)
	}
}

func TestOptionsClampsMemLevel(t *testing.T) {
	opts := &Options{MemLevel: -5}
	if got := opts.clamp().MemLevel; got != 0 {
		t.Errorf("clamp() MemLevel = %d, want 0", got)
	}
	opts = &Options{MemLevel: 999}
	if got := opts.clamp().MemLevel; got != MaxMemLevel {
		t.Errorf("clamp() MemLevel = %d, want %d", got, MaxMemLevel)
	}
}
