package detect

import "unicode/utf8"

// lookaheadWindow bounds how far the text heuristic scans ahead before
// giving up on a region (spec §4.12: "256 KB lookahead deque"). Buffering
// the region in a plain slice rather than a ring-backed deque is a
// deliberate simplification — Classify already requires its caller to
// hand it a bounded region (Analyzer reads one file at a time), so there
// is no streaming state to evict.
const lookaheadWindow = 256 << 10

// minTextLen, minSpaceRatioPct and the run-length bounds below are the
// heuristic's literal constants from spec §4.12.
const (
	minTextLen       = 64
	minSpaceRatioPct = 100
	wordRunMin       = 3
	wordRunMax       = 31
	digitRunMin      = 1
	digitRunMax      = 12
)

// Classify splits data into a sequence of classified, coalesced Blocks.
func Classify(data []byte) []Block {
	var blocks []Block
	i := 0
	n := len(data)
	for i < n {
		if l, ok := detectWave16(data, i); ok {
			blocks = appendBlock(blocks, Block{KindWave16, int64(i), int64(l)})
			i += l
			continue
		}
		if l, ok := detectText(data, i); ok {
			blocks = appendBlock(blocks, Block{KindText, int64(i), int64(l)})
			i += l
			continue
		}
		blocks = appendBlock(blocks, Block{KindBinary, int64(i), 1})
		i++
	}
	return blocks
}

func appendBlock(blocks []Block, b Block) []Block {
	if n := len(blocks); n > 0 {
		last := &blocks[n-1]
		if last.Kind == b.Kind && last.Offset+last.Length == b.Offset {
			last.Length += b.Length
			return blocks
		}
	}
	return append(blocks, b)
}

// isForbiddenControl reports whether c is a control byte the text
// heuristic refuses to run through (spec §4.12): everything below
// space except the common whitespace controls, and DEL.
func isForbiddenControl(c byte) bool {
	if c == '\t' || c == '\n' || c == '\r' {
		return false
	}
	return c < 0x20 || c == 0x7F
}

// detectText implements spec §4.12's text heuristic starting at i: it
// accumulates text_len while UTF-8 stays valid and no forbidden control
// byte appears, scoring space frequency, word-character runs, and
// digit runs, penalizing runs of repeated non-space non-digit bytes.
func detectText(data []byte, i int) (int, bool) {
	end := i + lookaheadWindow
	if end > len(data) {
		end = len(data)
	}

	textLen := 0
	spaceCount := 0
	score := 0

	pos := i
	var wordRun, digitRun int
	var prevByte byte
	var havePrev bool

	for pos < end {
		c := data[pos]
		if isForbiddenControl(c) {
			break
		}

		size := 1
		if c >= 0x80 {
			r, sz := utf8.DecodeRune(data[pos:end])
			if r == utf8.RuneError && sz <= 1 {
				break
			}
			size = sz
		}

		if c == ' ' {
			spaceCount++
			// Space frequency is itself a scoring factor (spec §4.12),
			// separate from the space_count*100>text_len gate below: a
			// word-separated stream scores higher per separator than a
			// dense run of the same byte class would.
			score++
		}

		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'

		if isLetter {
			wordRun++
			digitRun = 0
		} else if isDigit {
			digitRun++
			if wordRun >= wordRunMin && wordRun <= wordRunMax {
				score += wordRun + 2
			}
			wordRun = 0
		} else {
			if wordRun >= wordRunMin && wordRun <= wordRunMax {
				score += wordRun + 2
			}
			if digitRun >= digitRunMin && digitRun <= digitRunMax {
				score++
			}
			wordRun, digitRun = 0, 0
		}
		if havePrev && prevByte == c && c != ' ' && !isDigit {
			score--
		}

		prevByte = c
		havePrev = true
		textLen += size
		pos += size
	}
	if wordRun >= wordRunMin && wordRun <= wordRunMax {
		score += wordRun + 2
	}
	if digitRun >= digitRunMin && digitRun <= digitRunMax {
		score++
	}

	if textLen > minTextLen && spaceCount*minSpaceRatioPct > textLen && score > textLen {
		return textLen, true
	}
	return 0, false
}

// detectWave16 looks for a RIFF/WAVE/fmt signature with a stereo
// (num_channels=2), uncompressed-PCM (audio_format=1) format chunk
// starting at i, and returns the span through the end of the following
// "data" chunk (spec §4.12).
func detectWave16(data []byte, i int) (int, bool) {
	if i+12 > len(data) {
		return 0, false
	}
	if string(data[i:i+4]) != "RIFF" || string(data[i+8:i+12]) != "WAVE" {
		return 0, false
	}

	pos := i + 12
	sawFmt := false
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := le32(data[pos+4 : pos+8])
		payload := pos + 8

		if chunkID == "fmt " {
			if payload+4 > len(data) {
				return 0, false
			}
			audioFormat := le16(data[payload : payload+2])
			numChannels := le16(data[payload+2 : payload+4])
			if audioFormat != 1 || numChannels != 2 {
				return 0, false
			}
			sawFmt = true
		}

		end := payload + int(chunkSize)
		if chunkSize%2 == 1 {
			end++ // RIFF chunks are word-aligned
		}
		if end > len(data) || end <= payload {
			return 0, false
		}

		if chunkID == "data" {
			if !sawFmt {
				return 0, false
			}
			return end - i, true
		}
		pos = end
	}
	return 0, false
}

func le16(b []byte) int { return int(b[0]) | int(b[1])<<8 }
func le32(b []byte) int64 {
	return int64(b[0]) | int64(b[1])<<8 | int64(b[2])<<16 | int64(b[3])<<24
}
