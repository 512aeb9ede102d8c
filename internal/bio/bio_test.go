package bio

import (
	"bytes"
	"math"
	"testing"
)

func TestBitRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	bits := []int{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 1}
	for _, b := range bits {
		if err := w.WriteBit(b); err != nil {
			t.Fatalf("WriteBit: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	for i, want := range bits {
		got, err := r.ReadBit()
		if err != nil {
			t.Fatalf("ReadBit(%d): %v", i, err)
		}
		if got != want {
			t.Fatalf("bit %d = %d, want %d", i, got, want)
		}
	}
}

func TestBitsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBits(0x2D3, 12); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := r.ReadBits(12)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x2D3 {
		t.Fatalf("ReadBits = %#x, want 0x2D3", got)
	}
}

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 129, 300, 1 << 20, math.MaxUint32, math.MaxUint64}
	var buf []byte
	for _, v := range values {
		buf = AppendUvarint(buf, v)
	}
	r := bytes.NewReader(buf)
	for _, want := range values {
		got, err := ReadUvarint(r)
		if err != nil {
			t.Fatalf("ReadUvarint(%d): %v", want, err)
		}
		if got != want {
			t.Fatalf("ReadUvarint = %d, want %d", got, want)
		}
	}
}

func TestUvarintSingleByte(t *testing.T) {
	var tmp [MaxVarintLen64]byte
	for v := uint64(0); v < 128; v++ {
		n := PutUvarint(tmp[:], v)
		if n != 1 {
			t.Fatalf("PutUvarint(%d) used %d bytes, want 1", v, n)
		}
	}
}

func TestUvarintOverflow(t *testing.T) {
	// 10 bytes, all continuation except a last byte that overflows 64 bits.
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}
	if _, err := ReadUvarint(bytes.NewReader(buf)); err != ErrVarintOverflow {
		t.Fatalf("ReadUvarint overflow = %v, want ErrVarintOverflow", err)
	}
}
