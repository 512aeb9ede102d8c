package cm

import "github.com/go-mcm/mcm/internal/statemap"

// isWordChar reports whether c participates in a word, per
// original_source/Util.hpp's IsWordChar: letters and digits only —
// punctuation and whitespace both terminate and separate words.
func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// wordCaseClass is the word-level case classification supplemented from
// original_source/WordModel.hpp's case handling (SPEC_FULL.md §C.2):
// the word starts with a non-capital, starts with a capital but is not
// all capitals, or consists only of capitals.
type wordCaseClass int

const (
	caseNone wordCaseClass = iota
	caseFirstCap
	caseAllCap
)

// WordModel tracks the in-progress word, the previously completed word,
// and their combination, each hashed the way original_source/WordModel.hpp
// builds its rolling hash: h = h*43 + c, length capped at 16 bytes so a
// long identifier doesn't dilute the hash down to noise.
type WordModel struct {
	curHash, curLen   uint32
	prevHash          uint32
	caps, allCaps     bool
	sawCap            bool
	caseClass         wordCaseClass

	word1, word2, word12 *OrderModel
}

const wordMaxLen = 16

func newWordModel(bits uint) *WordModel {
	return &WordModel{
		word1:  &OrderModel{salt: 0xA1, ht: NewHashTable(bits), pm: statemap.New()},
		word2:  &OrderModel{salt: 0xA2, ht: NewHashTable(bits), pm: statemap.New()},
		word12: &OrderModel{salt: 0xA3, ht: NewHashTable(bits), pm: statemap.New()},
	}
}

// Consume feeds the byte just coded into the rolling word state, rolling
// the current word over to "previous" at a word boundary.
func (w *WordModel) Consume(c byte) {
	if isWordChar(c) {
		if w.curLen == 0 {
			w.sawCap = c >= 'A' && c <= 'Z'
			w.allCaps = w.sawCap
		} else {
			isUpper := c >= 'A' && c <= 'Z'
			if !isUpper {
				w.allCaps = false
			}
		}
		if w.curLen < wordMaxLen {
			w.curHash = w.curHash*43 + uint32(c)
			w.curLen++
		}
		return
	}
	if w.curLen > 0 {
		switch {
		case w.allCaps:
			w.caseClass = caseAllCap
		case w.sawCap:
			w.caseClass = caseFirstCap
		default:
			w.caseClass = caseNone
		}
		w.prevHash = w.curHash
		w.curHash, w.curLen = 0, 0
		w.allCaps, w.sawCap = false, false
	}
}

// BeginByte recomputes the three word-context base hashes ahead of
// coding the next byte.
func (w *WordModel) BeginByte() {
	w.word1.baseHash = w.curHash*0x01000193 ^ uint32(w.caseClass)
	w.word2.baseHash = w.prevHash * 0x2545F491
	w.word12.baseHash = (w.curHash*0x01000193 ^ w.prevHash) + 0x9E3779B9
}

// Predict returns the three word models' stretched probabilities for
// bit context c0, in (word1, word2, word12) order.
func (w *WordModel) Predict(c0 int) (p1, p2, p12 int32) {
	return w.word1.Predict(c0), w.word2.Predict(c0), w.word12.Predict(c0)
}

// Update trains all three word models on the bit actually coded.
func (w *WordModel) Update(bit int) {
	w.word1.Update(bit)
	w.word2.Update(bit)
	w.word12.Update(bit)
}
