package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
)

// memFile is a growable in-memory io.WriterAt, standing in for an
// *os.File in tests.
type memFile struct {
	mu   sync.Mutex
	data []byte
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := off + int64(len(p))
	if int64(len(f.data)) < end {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[off:end], p)
	return len(p), nil
}

func TestScatterWriteSingleSegmentContiguous(t *testing.T) {
	block := []byte("helloworld")
	segments := []Segment{
		{StreamIdx: 0, BaseOffset: 0, Ranges: []Range{{Length: 5, DeltaOffset: 0}, {Length: 5, DeltaOffset: 0}}},
	}

	files := map[uint64]*memFile{0: {}}
	err := ScatterWrite(context.Background(), block, segments, func(idx uint64) (io.WriterAt, error) {
		return files[idx], nil
	})
	if err != nil {
		t.Fatalf("ScatterWrite: %v", err)
	}
	if !bytes.Equal(files[0].data, block) {
		t.Fatalf("got %q, want %q", files[0].data, block)
	}
}

func TestScatterWriteMultipleStreams(t *testing.T) {
	// Two files interleaved in one block's concatenated bytes: "AAA" for
	// stream 0 then "BBBB" for stream 1.
	block := []byte("AAABBBB")
	segments := []Segment{
		{StreamIdx: 0, BaseOffset: 0, Ranges: []Range{{Length: 3, DeltaOffset: 0}}},
		{StreamIdx: 1, BaseOffset: 10, Ranges: []Range{{Length: 4, DeltaOffset: 0}}},
	}

	files := map[uint64]*memFile{0: {}, 1: {}}
	err := ScatterWrite(context.Background(), block, segments, func(idx uint64) (io.WriterAt, error) {
		return files[idx], nil
	})
	if err != nil {
		t.Fatalf("ScatterWrite: %v", err)
	}
	if !bytes.Equal(files[0].data, []byte("AAA")) {
		t.Fatalf("stream 0 = %q, want %q", files[0].data, "AAA")
	}
	want1 := append(make([]byte, 10), []byte("BBBB")...)
	if !bytes.Equal(files[1].data, want1) {
		t.Fatalf("stream 1 = %q, want %q", files[1].data, want1)
	}
}

func TestScatterWriteRejectsOutOfBoundsRange(t *testing.T) {
	block := []byte("short")
	segments := []Segment{
		{StreamIdx: 0, BaseOffset: 0, Ranges: []Range{{Length: 1000, DeltaOffset: 0}}},
	}
	err := ScatterWrite(context.Background(), block, segments, func(idx uint64) (io.WriterAt, error) {
		return &memFile{}, nil
	})
	if err == nil {
		t.Fatal("expected an error for a range exceeding the block's bounds")
	}
}

func TestScatterWriteOpenerError(t *testing.T) {
	block := []byte("data")
	segments := []Segment{
		{StreamIdx: 7, BaseOffset: 0, Ranges: []Range{{Length: 4, DeltaOffset: 0}}},
	}
	wantErr := fmt.Errorf("boom")
	err := ScatterWrite(context.Background(), block, segments, func(idx uint64) (io.WriterAt, error) {
		return nil, wantErr
	})
	if err == nil {
		t.Fatal("expected the opener's error to propagate")
	}
}
