package filter

import (
	"bytes"
	"testing"
)

// FuzzX86FilterRoundTrip checks reverse(forward(x)) == x for the x86
// filter over arbitrary bytes, the property that would have caught the
// truncated-opcode-near-EOF bug (a trailing opcode byte that happens to
// equal x86Marker/x86Escape with no room left for a full record).
func FuzzX86FilterRoundTrip(f *testing.F) {
	f.Add([]byte{0x90, 0x90, 0xE8, 0x10, 0x00, 0x00, 0x00, 0x90})
	f.Add([]byte{0xE9, 0x01, 0x02, 0x03, 0x42})
	f.Add([]byte{0xE8, byte(x86Marker), 0x11, 0x22, 0x42})
	f.Add([]byte{0x0F, 0x84, 0x00, 0x01, 0x00, 0xFF})
	f.Add([]byte{0xE8, byte(x86Marker)})
	f.Add([]byte{0xE8, byte(x86Escape)})
	f.Add([]byte{0xE8})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		forward := NewX86Filter().Forward(data)
		back, err := NewX86Filter().Reverse(forward)
		if err != nil {
			t.Fatalf("Reverse(Forward(x)) returned an error: %v", err)
		}
		if !bytes.Equal(back, data) {
			t.Fatalf("round trip mismatch:\n got: % x\nwant: % x", back, data)
		}
	})
}
