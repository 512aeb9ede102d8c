// Package mixer implements the logistic mixer network and secondary
// symbol estimation (SSE) stages that sit between the context model bank
// and the range coder (spec §4.5, §4.6): each high-level context selects
// one mixer, which combines the bank's per-model stretched probabilities
// into a single prediction via a weighted sum updated by online gradient
// descent, optionally refined by an SSE stage before it reaches the
// coder.
package mixer

import "github.com/go-mcm/mcm/internal/rangecoder"

// wShift is the fixed-point shift applied to the mixer's dot product
// (spec §4.5: "prediction = clamp((Σ w_i·s_i + skew) >> prob_shift, ...)").
const wShift = 16

// Default online-learning constants (spec §4.5's Update step), named the
// way original_source/Mixer.hpp names them.
const (
	defaultLimit      = 1024 // cap on the online learn-rate counter
	defaultDeltaRound = 250  // dead-band: skip the update if |err| is this small
	defaultSkewLearn  = 1
	defaultLearnMult  = 31
	defaultShift      = 16
)

// Mixer is one logistic mixer: a weight per input model plus a skew
// (bias) weight, trained online.
type Mixer struct {
	w     []int32
	skew  int32
	learn int32
}

// New creates a Mixer for numInputs stretched-probability inputs, with
// weights initialized so the mixer starts out as a plain average of its
// inputs (spec §4.5: weights begin uniform).
func New(numInputs int) *Mixer {
	m := &Mixer{w: make([]int32, numInputs)}
	if numInputs > 0 {
		init := (int32(1) << wShift) / int32(numInputs)
		for i := range m.w {
			m.w[i] = init
		}
	}
	return m
}

// Predict computes the mixed stretched prediction from per-model
// stretched probabilities in, clamped to the stretch domain.
func (m *Mixer) Predict(in []int32) int32 {
	var total int64 = int64(m.skew)
	for i, s := range in {
		total += int64(s) * int64(m.w[i])
	}
	stp := int32(total >> wShift)
	if stp > 2047 {
		stp = 2047
	} else if stp < -2047 {
		stp = -2047
	}
	return stp
}

// PredictProb is Predict followed by Squash, returning a coder-ready
// probability in [1,4095].
func (m *Mixer) PredictProb(in []int32) (stp, p int32) {
	stp = m.Predict(in)
	return stp, rangecoder.Squash(stp)
}

// Update trains the mixer's weights on the observed bit, given the last
// prediction p (squashed, [1,4095]) and the inputs that produced it.
// Updates below the dead-band (spec §4.5's delta_round) are skipped
// entirely, including the per-model probability-map and state updates
// the CM core gates on this same return value.
func (m *Mixer) Update(bit int, p int32, in []int32) bool {
	target := int32(0)
	if bit != 0 {
		target = 1 << 12
	}
	err := (target - p) * defaultLearnMult
	if err > -defaultDeltaRound && err < defaultDeltaRound {
		return false
	}
	for i, s := range in {
		m.w[i] += (err * s) >> defaultShift
	}
	m.skew += err << defaultSkewLearn
	if m.learn < defaultLimit {
		m.learn++
	}
	return true
}

// Set is an array of Mixers indexed by a composite context (spec §4.5:
// "Mixers are held in arrays indexed by a composite context"). The
// current context is selected with SetContext before Predict/Update.
type Set struct {
	mixers []*Mixer
	cur    *Mixer
}

// NewSet creates count independent mixers, each accepting numInputs
// stretched-probability inputs.
func NewSet(count, numInputs int) *Set {
	s := &Set{mixers: make([]*Mixer, count)}
	for i := range s.mixers {
		s.mixers[i] = New(numInputs)
	}
	if count > 0 {
		s.cur = s.mixers[0]
	}
	return s
}

// SetContext selects the mixer used by subsequent Predict/Update calls.
func (s *Set) SetContext(ctx int) {
	s.cur = s.mixers[ctx]
}

// Current returns the selected mixer.
func (s *Set) Current() *Mixer {
	return s.cur
}
