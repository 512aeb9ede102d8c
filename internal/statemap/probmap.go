package statemap

import "github.com/go-mcm/mcm/internal/rangecoder"

const (
	probBits = 12
	probMax  = 1 << probBits
)

type probEntry struct {
	p  uint16 // current probability, 12 bits, 0 < p < 4096
	st int16  // cached Stretch(p)
}

// ProbMap is the adaptive probability map of spec §4.4: one probEntry
// per bit-history state, holding a 12-bit probability and its cached
// stretched value so Predict doesn't re-run the stretch lookup on every
// call. Each context model in the CM bank owns its own ProbMap instance
// (the table itself, statemap.Global, is shared).
type ProbMap struct {
	entries [NumStates]probEntry
}

// New builds a ProbMap seeded from the bit-history counts each state
// packs, so a freshly allocated map already predicts roughly the right
// probability before it has seen any updates at all.
func New() *ProbMap {
	m := &ProbMap{}
	for s := 0; s < NumStates; s++ {
		n0, n1 := Global.Counts(uint8(s))
		p := (int32(n1)*2 + 1) * probMax / (int32(n0+n1)*2 + 2)
		if p < 1 {
			p = 1
		} else if p > probMax-1 {
			p = probMax - 1
		}
		m.entries[s] = probEntry{p: uint16(p), st: int16(rangecoder.Stretch(p))}
	}
	return m
}

// learnShift scales the update rate by how saturated a state's counters
// are: a freshly seen state (low total count) adapts fast (small shift),
// a long-run state adapts slowly (large shift), within the spec's 4..9
// band.
func learnShift(s uint8) uint {
	n0, n1 := Global.Counts(s)
	total := n0 + n1
	shift := 4 + uint(total)/4
	if shift > 9 {
		shift = 9
	}
	return shift
}

// P returns the current probability (1..4095) for state s.
func (m *ProbMap) P(s uint8) int32 {
	return int32(m.entries[s].p)
}

// Stretched returns the cached stretched probability for state s.
func (m *ProbMap) Stretched(s uint8) int32 {
	return int32(m.entries[s].st)
}

// Update adjusts the probability stored for state s toward the observed
// bit, at a rate set by learnShift, and refreshes the cached stretch.
func (m *ProbMap) Update(s uint8, bit int) {
	e := &m.entries[s]
	target := int32(0)
	if bit != 0 {
		target = probMax - 1
	}
	shift := learnShift(s)
	p := int32(e.p) + ((target - int32(e.p)) >> shift)
	if p < 1 {
		p = 1
	} else if p > probMax-1 {
		p = probMax - 1
	}
	e.p = uint16(p)
	e.st = int16(rangecoder.Stretch(p))
}
