package cm

import "github.com/go-mcm/mcm/internal/rangecoder"

// Match-model tuning constants, named and valued after
// original_source/MatchModel.hpp: minMatch is the shortest context the
// rolling hash commits to a candidate on, maxMatch caps how far the
// length bucket grows (matches longer than this are modeled no more
// confidently than exactly this long), and minLZPLen is the length at
// which the CM core trusts the match enough to code a single
// match/no-match bit instead of the full byte (spec §4.11 step 1).
const (
	matchMinMatch  = 6
	matchMaxMatch  = 80
	matchMinLZPLen = 32
	matchHashBits  = 20
)

// matchProb is a small adaptive probability counter used for the match
// model's own per-(length-bucket, bit-position) confidence — a plain
// probability, not a bit-history state, since what's being modeled here
// is "how often does reality agree with the match" rather than a
// general bit history.
type matchProb struct{ p int32 }

func newMatchProb() matchProb { return matchProb{p: 2048} }

func (m *matchProb) stretched() int32 { return rangecoder.Stretch(m.p) }

func (m *matchProb) update(bit int) {
	target := int32(0)
	if bit != 0 {
		target = 4095
	}
	m.p += (target - m.p) >> 6
	if m.p < 1 {
		m.p = 1
	} else if m.p > 4095 {
		m.p = 4095
	}
}

// MatchModel is the LZP-style match predictor (spec §4.7): a rolling
// hash of the last matchMinMatch bytes looks up a hash table of prior
// buffer positions; when the bytes there actually agree with recent
// history, the model tracks "what came after this context last time"
// and predicts the current byte will repeat it, growing more confident
// (via lenBucket) the longer the streak holds.
type MatchModel struct {
	hashTable []uint32 // hash -> buffer position of byte *after* that context
	mask      uint32

	rollHash uint32

	matchPos uint32
	len      int
	expected byte

	// probs[lenBucket*8+bitIndex] tracks confidence that the coded bit
	// equals the expected bit, independently per bit position within
	// the byte and per coarse match-length bucket.
	probs [lenBuckets * 8]matchProb

	// lzp tracks, per length bucket above matchMinLZPLen, the confidence
	// that the *whole byte* will match — the single-bit shortcut input.
	lzp [lenBuckets]matchProb
}

const lenBuckets = 16

func newMatchModel() *MatchModel {
	m := &MatchModel{
		hashTable: make([]uint32, 1<<matchHashBits),
		mask:      1<<matchHashBits - 1,
	}
	for i := range m.probs {
		m.probs[i] = newMatchProb()
	}
	for i := range m.lzp {
		m.lzp[i] = newMatchProb()
	}
	return m
}

func lenBucket(n int) int {
	b := n * lenBuckets / (matchMaxMatch + 1)
	if b >= lenBuckets {
		b = lenBuckets - 1
	}
	return b
}

// Active reports whether a match is currently tracked.
func (m *MatchModel) Active() bool { return m.len > 0 }

// Len returns the current match length, capped at matchMaxMatch.
func (m *MatchModel) Len() int { return m.len }

// Expected returns the byte the match predicts comes next. Only
// meaningful when Active reports true.
func (m *MatchModel) Expected() byte { return m.expected }

// BeginByte advances the rolling context hash with the byte just
// written to buf, and — if no match is currently active — looks up a
// new candidate from the hash table, verifying it against real history
// before committing (a plain hash hit is not enough: without
// verification the model would "match" on hash collisions as often as
// on real repeats).
func (m *MatchModel) BeginByte(buf *CyclicBuffer) {
	pos := buf.Pos()
	if pos >= matchMinMatch {
		// Recomputed fresh each byte rather than carried incrementally:
		// a true fixed-window hash needs the oldest byte evicted as the
		// newest is folded in, which a simple running multiply-add
		// can't do without tracking matchMinMatch separately anyway.
		m.rollHash = hashBytes(buf, matchMinMatch, 0x9E3779B1)
		m.rollHash += rotl32(m.rollHash, 10)
		m.rollHash ^= m.rollHash >> 6
	}

	if m.len > 0 {
		m.expected = buf.At(m.matchPos)
		return
	}

	if pos < matchMinMatch {
		return
	}
	slot := &m.hashTable[m.rollHash&m.mask]
	cand := *slot
	*slot = pos
	if cand == 0 || cand >= pos {
		return
	}
	if m.verify(buf, cand, pos) {
		m.matchPos = cand
		m.len = matchMinMatch
		m.expected = buf.At(m.matchPos)
	}
}

// verify compares up to matchMinMatch bytes immediately preceding cand
// and pos, rejecting hash collisions that don't correspond to a real
// repeat.
func (m *MatchModel) verify(buf *CyclicBuffer, cand, pos uint32) bool {
	for i := uint32(1); i <= matchMinMatch; i++ {
		if cand < i || pos < i {
			return false
		}
		if buf.At(cand-i) != buf.At(pos-i) {
			return false
		}
	}
	return true
}

func rotl32(x uint32, n uint) uint32 { return x<<n | x>>(32-n) }

// Predict returns the match model's contribution for bitIndex (0 =
// MSB) of the byte currently being coded. An inactive match contributes
// 0 — neutral — matching original_source/MatchModel.hpp's
// "if (!len) return 0".
func (m *MatchModel) Predict(bitIndex int) int32 {
	if m.len == 0 {
		return 0
	}
	expectedBit := int((m.expected >> (7 - uint(bitIndex))) & 1)
	sign := int32(1)
	if expectedBit == 0 {
		sign = -1
	}
	b := lenBucket(m.len)
	return sign * m.probs[b*8+bitIndex].stretched()
}

// UpdateBit trains the match model on the bit actually coded at
// bitIndex, and drops the match the instant it disagrees with the coded
// bit (spec §4.7: "if bit == expected_bit remain active; else drop").
func (m *MatchModel) UpdateBit(bitIndex, bit int) {
	if m.len == 0 {
		return
	}
	expectedBit := int((m.expected >> (7 - uint(bitIndex))) & 1)
	agree := 0
	if bit == expectedBit {
		agree = 1
	}
	b := lenBucket(m.len)
	m.probs[b*8+bitIndex].update(agree)
	if agree == 0 {
		m.len = 0
	}
}

// LZPEligible reports whether the match is long enough for the CM core
// to spend a single shortcut bit instead of coding all 8 bits.
func (m *MatchModel) LZPEligible() bool { return m.len >= matchMinLZPLen }

// PredictLZP returns the stretched probability that the whole byte
// matches, for the current length bucket.
func (m *MatchModel) PredictLZP() int32 {
	return m.lzp[lenBucket(m.len)].stretched()
}

// UpdateLZP trains the LZP shortcut confidence and, on a miss, drops
// the match before the fallback bit-by-bit coding begins.
func (m *MatchModel) UpdateLZP(matched bool) {
	b := lenBucket(m.len)
	bit := 0
	if matched {
		bit = 1
	}
	m.lzp[b].update(bit)
	if !matched {
		m.len = 0
	}
}

// Consume advances the active match one byte, growing its length up to
// matchMaxMatch, once the whole byte c has been coded.
func (m *MatchModel) Consume(c byte) {
	if m.len == 0 {
		return
	}
	if c != m.expected {
		m.len = 0
		return
	}
	m.matchPos++
	if m.len < matchMaxMatch {
		m.len++
	}
}
