package rangecoder

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestEncodeDecodeBits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var bits []int
	var probs []uint32
	const n = 20000
	for i := 0; i < n; i++ {
		p := uint32(1 + rng.Intn(4094))
		bit := 0
		if rng.Intn(4096) < int(p) {
			bit = 1
		}
		bits = append(bits, bit)
		probs = append(probs, p)
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i, bit := range bits {
		enc.Encode(bit, probs[i], 12)
	}
	enc.Flush()

	dec := NewDecoder(bytes.NewReader(buf.Bytes()))
	for i, want := range bits {
		got := dec.Decode(probs[i], 12)
		if got != want {
			t.Fatalf("bit %d = %d, want %d (p=%d)", i, got, want, probs[i])
		}
	}
}

func TestEncodeDecodeDirectBits(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	var values []uint32
	var widths []int
	for i := 0; i < 2000; i++ {
		w := 1 + rng.Intn(24)
		values = append(values, uint32(rng.Int63())&((1<<uint(w))-1))
		widths = append(widths, w)
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i, v := range values {
		enc.EncodeBits(v, widths[i])
	}
	enc.Flush()

	dec := NewDecoder(bytes.NewReader(buf.Bytes()))
	for i, want := range values {
		got := dec.DecodeBits(widths[i])
		if got != want {
			t.Fatalf("value %d = %#x, want %#x (width %d)", i, got, want, widths[i])
		}
	}
}

func TestEncodeDecodeMixed(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.Encode(1, 2048, 12)
	enc.EncodeBits(0xABCD, 16)
	enc.Encode(0, 100, 12)
	enc.EncodeBits(7, 3)
	enc.Flush()

	dec := NewDecoder(bytes.NewReader(buf.Bytes()))
	if got := dec.Decode(2048, 12); got != 1 {
		t.Fatalf("bit1 = %d", got)
	}
	if got := dec.DecodeBits(16); got != 0xABCD {
		t.Fatalf("direct16 = %#x", got)
	}
	if got := dec.Decode(100, 12); got != 0 {
		t.Fatalf("bit2 = %d", got)
	}
	if got := dec.DecodeBits(3); got != 7 {
		t.Fatalf("direct3 = %d", got)
	}
}

func TestSquashStretchRoundTrip(t *testing.T) {
	for p := int32(1); p < 4095; p++ {
		d := Stretch(p)
		q := Squash(d)
		if diff := q - p; diff < -40 || diff > 40 {
			t.Fatalf("squash(stretch(%d))=%d, too far off", p, q)
		}
	}
	for _, d := range []int32{-2047, -1000, -1, 0, 1, 1000, 2047} {
		p := Squash(d)
		if p <= 0 || p >= 4096 {
			t.Fatalf("Squash(%d) = %d out of bounds", d, p)
		}
	}
}

func TestSquashMonotonic(t *testing.T) {
	prev := Squash(-2047)
	for d := int32(-2046); d <= 2047; d++ {
		cur := Squash(d)
		if cur < prev {
			t.Fatalf("Squash not monotonic at %d: %d < %d", d, cur, prev)
		}
		prev = cur
	}
}
