package mixer

import "github.com/go-mcm/mcm/internal/rangecoder"

// stemBits quantizes the stretched-probability axis of an SSE table into
// 32 intervals (spec §4.6: "5-bit quantization"); kStems adds the extra
// right-edge anchor needed for linear interpolation between the last two
// stems.
const (
	stemBits = 5
	kStems   = 1<<stemBits + 1
	// stemLearnShift sets how fast an individual stem adapts: each update
	// moves the stem 1/64 of the way toward the coded bit, a fixed rate
	// inside the statemap's 4..9 shift range.
	stemLearnShift = 6
)

type sseStem struct {
	p int32 // probability in [1,4095]
}

// SSE implements secondary symbol estimation (spec §4.6): a per-context
// table of stems spaced across the stretched-probability axis, queried
// by linear interpolation between the two stems nearest the mixer's
// prediction, each independently adapted toward the bit actually coded.
type SSE struct {
	stems   []sseStem
	numCtx  int
	lastIdx int
}

// NewSSE creates an SSE table with numCtx independent contexts, each
// seeded so that, before any updates, it approximately reproduces its
// input probability (SSE starts close to the identity function; linear
// interpolation between stems adds a small error).
func NewSSE(numCtx int) *SSE {
	s := &SSE{stems: make([]sseStem, numCtx*kStems), numCtx: numCtx}
	for ctx := 0; ctx < numCtx; ctx++ {
		base := ctx * kStems
		for i := 0; i < kStems; i++ {
			// Stem i sits at stretched value -2048 + i*128.
			stretched := int32(i<<(12-stemBits)) - 2048
			if stretched > 2047 {
				stretched = 2047
			}
			s.stems[base+i].p = rangecoder.Squash(stretched)
		}
	}
	return s
}

// Refine maps a mixer-predicted probability p (squashed, [1,4095]) under
// context ctx to a refined probability, via linear interpolation between
// the two stems nearest Stretch(p). The nearer stem is remembered so the
// next Update call trains it.
func (s *SSE) Refine(p int32, ctx int) int32 {
	stp := rangecoder.Stretch(p)
	shifted := stp + 2048 // [1,4095]
	idx := shifted >> (12 - stemBits)
	frac := shifted & ((1 << (12 - stemBits)) - 1)
	base := ctx*kStems + int(idx)
	p0 := s.stems[base].p
	p1 := s.stems[base+1].p
	out := (p0*(128-frac) + p1*frac) >> (12 - stemBits)
	if frac < 64 {
		s.lastIdx = base
	} else {
		s.lastIdx = base + 1
	}
	if out < 1 {
		out = 1
	} else if out > 4095 {
		out = 4095
	}
	return out
}

// Update trains the stem nearest the last Refine call toward bit.
func (s *SSE) Update(bit int) {
	target := int32(0)
	if bit != 0 {
		target = 4095
	}
	st := &s.stems[s.lastIdx]
	st.p += (target - st.p) >> stemLearnShift
	if st.p < 1 {
		st.p = 1
	} else if st.p > 4095 {
		st.p = 4095
	}
}
