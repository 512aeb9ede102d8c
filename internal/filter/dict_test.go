package filter

import (
	"bytes"
	"testing"

	"github.com/go-mcm/mcm/internal/detect"
)

func sampleWords() []detect.WordInfo {
	return []detect.WordInfo{
		{Word: "the", Count: 500, Class: detect.CaseNone},
		{Word: "compression", Count: 40, Class: detect.CaseNone},
		{Word: "quick", Count: 20, Class: detect.CaseNone},
		{Word: "brown", Count: 15, Class: detect.CaseNone},
		{Word: "fox", Count: 12, Class: detect.CaseNone},
		{Word: "a", Count: 3, Class: detect.CaseNone}, // below min-occurrence or too short to help
	}
}

func TestDictionaryRoundTripPlainWords(t *testing.T) {
	d := BuildDictionary(sampleWords())
	input := []byte("the quick brown fox jumps over the compression scheme.")
	forward := d.Forward(input)
	back, err := d.Reverse(forward)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if !bytes.Equal(back, input) {
		t.Fatalf("round trip mismatch:\n got: %q\nwant: %q", back, input)
	}
}

func TestDictionaryRoundTripPreservesCase(t *testing.T) {
	d := BuildDictionary(sampleWords())
	input := []byte("THE Quick the the THE")
	forward := d.Forward(input)
	back, err := d.Reverse(forward)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if !bytes.Equal(back, input) {
		t.Fatalf("round trip mismatch:\n got: %q\nwant: %q", back, input)
	}
}

func TestDictionaryRoundTripUnreconstructibleCasingStaysLiteral(t *testing.T) {
	// "mcdonald" and "iphone" are both in the codebook, but the runs in
	// the input carry internal-capital casing ("McDonald") or a leading
	// lowercase letter with an internal capital ("iPhone"), fitting none
	// of the three patterns Reverse can reconstruct (all-lower,
	// all-upper, first-upper-rest-lower). Forward must leave these runs
	// untouched rather than substitute and lose the casing.
	words := append(sampleWords(),
		detect.WordInfo{Word: "mcdonald", Count: 50, Class: detect.CaseNone},
		detect.WordInfo{Word: "iphone", Count: 50, Class: detect.CaseNone},
	)
	d := BuildDictionary(words)

	input := []byte("McDonald and iPhone and the quick mcdonald IPHONE Iphone")
	forward := d.Forward(input)
	back, err := d.Reverse(forward)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if !bytes.Equal(back, input) {
		t.Fatalf("round trip mismatch:\n got: %q\nwant: %q", back, input)
	}
}

func TestDictionaryRoundTripHighBytesAndBinaryMix(t *testing.T) {
	d := BuildDictionary(sampleWords())
	input := append([]byte("the quick "), 0x80, 0xFF, 0xB2, 0xFE, 0xFD, 0xFC, 0xFB)
	input = append(input, []byte(" brown fox")...)
	forward := d.Forward(input)
	back, err := d.Reverse(forward)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if !bytes.Equal(back, input) {
		t.Fatalf("round trip mismatch:\n got: %v\nwant: %v", back, input)
	}
}

func TestDictionarySaveLoadRoundTrip(t *testing.T) {
	d := BuildDictionary(sampleWords())
	saved := d.SaveDictionary()
	loaded, err := LoadDictionary(saved)
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}

	input := []byte("the quick brown fox and the compression scheme")
	if !bytes.Equal(d.Forward(input), loaded.Forward(input)) {
		t.Fatal("loaded dictionary produced different Forward output than the original")
	}
}

func TestDictionaryEmptyCodebookIsIdentity(t *testing.T) {
	d := BuildDictionary(nil)
	input := []byte("nothing here matches any codeword at all")
	forward := d.Forward(input)
	if !bytes.Equal(forward, input) {
		t.Fatalf("empty codebook should pass ASCII text through unchanged, got %q", forward)
	}
}
