package filter

import (
	"bytes"
	"testing"

	"github.com/go-mcm/mcm/internal/detect"
)

// FuzzDictionaryRoundTrip checks reverse(forward(x)) == x for the
// dictionary filter over arbitrary bytes, the property that would have
// caught the mixed-case substitution bug (an internal-capital word like
// "McDonald" losing its casing across the round trip).
func FuzzDictionaryRoundTrip(f *testing.F) {
	f.Add([]byte("the quick brown fox"))
	f.Add([]byte("McDonald and iPhone and iOS"))
	f.Add([]byte("THE QUICK the Quick"))
	f.Add(append([]byte("quick "), 0x80, 0xFF, 0xB2, 0xFE, 0xFD, 0xFC, 0xFB))
	f.Add([]byte{})

	words := append(sampleWords(),
		detect.WordInfo{Word: "mcdonald", Count: 50, Class: detect.CaseNone},
		detect.WordInfo{Word: "iphone", Count: 50, Class: detect.CaseNone},
	)
	d := BuildDictionary(words)

	f.Fuzz(func(t *testing.T, data []byte) {
		forward := d.Forward(data)
		back, err := d.Reverse(forward)
		if err != nil {
			// A corrupt or adversarial filtered stream may not parse,
			// but Forward's own output must always parse successfully.
			t.Fatalf("Reverse(Forward(x)) returned an error: %v", err)
		}
		if !bytes.Equal(back, data) {
			t.Fatalf("round trip mismatch:\n got: %q\nwant: %q", back, data)
		}
	})
}
