package cm

import (
	"github.com/go-mcm/mcm/internal/mixer"
	"github.com/go-mcm/mcm/internal/rangecoder"
)

// mixerContexts is the size of the composite-context mixer array (spec
// §4.5): match-active flag (2) times small byte class (7 text classes,
// rounded up to 8). Binary's 16 high-nibble classes wrap modulo
// mixerContexts, so its match-active and inactive contexts share slots.
const mixerContexts = 16

// sseLZPContexts is the number of length buckets the LZP shortcut bit's
// SSE stage is keyed by.
const sseLZPContexts = lenBuckets

// CM is one context-mixing coder instance: the model bank for a single
// Profile, plus the mixer/SSE stack that combines their predictions
// (spec §4.11). A CM is created once per compressed block and driven
// bit-by-bit in lockstep by Encode and Decode, which must read and
// update every model identically so the decoder reconstructs exactly
// the probabilities the encoder coded against.
type CM struct {
	profile *Profile
	buf     *CyclicBuffer

	orders  []*OrderModel
	sparses []*OrderModel
	word    *WordModel
	bracket *BracketModel
	special *LastSpecialCharModel
	interval *IntervalModel
	match   *MatchModel

	mixers     *mixer.Set
	sseGeneral *mixer.SSE
	sseLZP     *mixer.SSE

	inputs []int32 // scratch, reused across bits to avoid per-bit allocation
}

// NewCM builds a CM instance for profile, with a cyclic buffer large
// enough to cover the longest context any instantiated model reads
// (the deepest order, or matchMaxMatch for the match model).
func NewCM(profile *Profile) *CM {
	bufBits := uint(20)
	c := &CM{
		profile: profile,
		buf:     NewCyclicBuffer(1 << bufBits),
	}

	for i, order := range profile.Orders {
		c.orders = append(c.orders, newOrderModel(order, 0xD0+uint32(i), profile.HashBits))
	}
	for i, gap := range profile.SparseGaps {
		c.sparses = append(c.sparses, newSparseModel(gap, 0xE0+uint32(i), profile.HashBits))
	}
	if profile.UseWord {
		c.word = newWordModel(profile.HashBits)
	}
	if profile.UseBracket {
		c.bracket = newBracketModel(profile.HashBits)
		c.special = newLastSpecialCharModel(profile.HashBits)
	}
	if profile.UseInterval {
		c.interval = newIntervalModel(profile.HashBits, profile.Kind == ProfileText)
	}
	if profile.UseMatch {
		c.match = newMatchModel()
	}

	n := profile.NumInputs()
	c.mixers = mixer.NewSet(mixerContexts, n)
	c.sseGeneral = mixer.NewSSE(mixerContexts)
	c.sseLZP = mixer.NewSSE(sseLZPContexts)
	c.inputs = make([]int32, n)
	return c
}

// beginByte recomputes every model's per-byte context hash ahead of
// coding the next byte's bits, and returns the composite mixer/SSE
// context for that byte.
func (c *CM) beginByte() int {
	for _, m := range c.orders {
		m.BeginByte(c.buf)
	}
	for _, m := range c.sparses {
		m.BeginByte(c.buf)
	}
	if c.word != nil {
		c.word.BeginByte()
	}
	if c.bracket != nil {
		c.bracket.BeginByte()
		c.special.BeginByte()
	}
	if c.interval != nil {
		c.interval.BeginByte()
	}
	if c.match != nil {
		c.match.BeginByte(c.buf)
	}

	small := 0
	if c.interval != nil {
		// SmallClass groups by ASCII value, so undo the profile's reorder.
		last := c.buf.Last()
		if c.profile.Reorder != nil {
			last = c.profile.Reorder.Decode(last)
		}
		small = c.interval.SmallClass(last)
	}
	active := 0
	if c.match != nil && c.match.Active() {
		active = 1
	}
	return (active*8 + small) % mixerContexts
}

// predictBit assembles this bit's inputs into c.inputs and returns the
// mixed, SSE-refined probability, ready for the range coder. bitIndex
// is 0 for the MSB down to 7 for the LSB; c0 is the in-byte bit context
// (1..255) the order/sparse/word/bracket models hash against.
func (c *CM) predictBit(mixCtx, bitIndex, c0 int) (p int32) {
	in := c.inputs[:0]
	for _, m := range c.orders {
		in = append(in, m.Predict(c0))
	}
	for _, m := range c.sparses {
		in = append(in, m.Predict(c0))
	}
	if c.word != nil {
		p1, p2, p12 := c.word.Predict(c0)
		in = append(in, p1, p2, p12)
	}
	if c.bracket != nil {
		in = append(in, c.bracket.Predict(c0), c.special.Predict(c0))
	}
	if c.interval != nil {
		pi1, pi2 := c.interval.Predict(c0)
		in = append(in, pi1, pi2)
	}
	if c.match != nil {
		in = append(in, c.match.Predict(bitIndex))
	}
	c.inputs = in

	c.mixers.SetContext(mixCtx)
	_, mixed := c.mixers.Current().PredictProb(in)
	return c.sseGeneral.Refine(mixed, mixCtx)
}

// updateBit trains every model on the bit actually coded, mirroring
// predictBit's traversal order so encode and decode stay in lockstep.
func (c *CM) updateBit(mixCtx, bitIndex, bit int, p int32) {
	if c.mixers.Current().Update(bit, p, c.inputs) {
		for _, m := range c.orders {
			m.Update(bit)
		}
		for _, m := range c.sparses {
			m.Update(bit)
		}
		if c.word != nil {
			c.word.Update(bit)
		}
		if c.bracket != nil {
			c.bracket.Update(bit)
			c.special.Update(bit)
		}
		if c.interval != nil {
			c.interval.Update(bit)
		}
	}
	if c.match != nil {
		c.match.UpdateBit(bitIndex, bit)
	}
	c.sseGeneral.Update(bit)
}

// consumeByte feeds a fully-coded byte into every model's rolling state
// so the next beginByte sees it as history.
func (c *CM) consumeByte(ch byte) {
	// ch is in reordered form; the word, bracket and special-char models
	// classify bytes by their ASCII values, so they see it un-reordered.
	raw := ch
	if c.profile.Reorder != nil {
		raw = c.profile.Reorder.Decode(ch)
	}
	if c.word != nil {
		c.word.Consume(raw)
	}
	if c.bracket != nil {
		c.bracket.Consume(raw)
		c.special.Consume(raw)
	}
	if c.interval != nil {
		c.interval.Consume(c.buf, ch)
	}
	if c.match != nil {
		c.match.Consume(ch)
	}
	c.buf.Push(ch)
}

// Encode compresses data, writing n coded bytes' worth of range-coder
// output through enc. The caller is responsible for flushing enc once
// all blocks for a stream have been encoded.
func (c *CM) Encode(enc *rangecoder.Encoder, data []byte) {
	for _, ch := range data {
		c.encodeByte(enc, ch)
	}
}

func (c *CM) encodeByte(enc *rangecoder.Encoder, ch byte) {
	if c.profile.Reorder != nil {
		ch = c.profile.Reorder.Encode(ch)
	}
	mixCtx := c.beginByte()

	if c.match != nil && c.match.LZPEligible() {
		matched := ch == c.match.Expected()
		p := c.sseLZP.Refine(c.match.PredictLZP(), lenBucket(c.match.Len()))
		bit := 0
		if matched {
			bit = 1
		}
		enc.Encode(bit, uint32(p), 12)
		c.sseLZP.Update(bit)
		c.match.UpdateLZP(matched)
		if matched {
			c.consumeByte(ch)
			return
		}
	}

	c0 := 1
	for i := 0; i < 8; i++ {
		bit := int((ch >> uint(7-i)) & 1)
		p := c.predictBit(mixCtx, i, c0)
		enc.Encode(bit, uint32(p), 12)
		c.updateBit(mixCtx, i, bit, p)
		c0 = c0*2 + bit
	}
	c.consumeByte(ch)
}

// Decode reconstructs n bytes from enc's range-coder stream, mirroring
// Encode's traversal exactly.
func (c *CM) Decode(dec *rangecoder.Decoder, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = c.decodeByte(dec)
	}
	return out
}

func (c *CM) decodeByte(dec *rangecoder.Decoder) byte {
	mixCtx := c.beginByte()

	if c.match != nil && c.match.LZPEligible() {
		p := c.sseLZP.Refine(c.match.PredictLZP(), lenBucket(c.match.Len()))
		bit := dec.Decode(uint32(p), 12)
		matched := bit != 0
		c.sseLZP.Update(bit)
		c.match.UpdateLZP(matched)
		if matched {
			ch := c.match.Expected()
			c.consumeByte(ch)
			if c.profile.Reorder != nil {
				ch = c.profile.Reorder.Decode(ch)
			}
			return ch
		}
	}

	c0 := 1
	for i := 0; i < 8; i++ {
		p := c.predictBit(mixCtx, i, c0)
		bit := dec.Decode(uint32(p), 12)
		c.updateBit(mixCtx, i, bit, p)
		c0 = c0*2 + bit
	}
	ch := byte(c0 & 0xFF)
	c.consumeByte(ch)
	if c.profile.Reorder != nil {
		ch = c.profile.Reorder.Decode(ch)
	}
	return ch
}
