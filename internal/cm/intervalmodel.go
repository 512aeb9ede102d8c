package cm

import "github.com/go-mcm/mcm/internal/statemap"

// IntervalModel predicts from the byte-distance since a byte's own last
// occurrence (spec §4.10): regularly-spaced structures — binary record
// fields, columns in tabular text — tend to repeat the same byte at the
// same stride, so the interval itself is a useful context. interval is
// the distance from the most recently coded byte that had occurred
// before to its previous occurrence; interval2 is the value interval
// held before that update. SmallClass buckets the instantaneous byte
// into one of up to 16 classes the mixer keys its array on (spec §4.5's
// "composite context").
type IntervalModel struct {
	lastSeen [256]uint32 // buffer position each byte value was last seen
	interval uint32      // distance from the latest repeated byte back to its previous occurrence
	interval2 uint32

	isText bool

	interval1 *OrderModel
	interval2Model *OrderModel
}

func newIntervalModel(bits uint, isText bool) *IntervalModel {
	return &IntervalModel{
		isText:         isText,
		interval1:      &OrderModel{salt: 0xC1, ht: NewHashTable(bits), pm: statemap.New()},
		interval2Model: &OrderModel{salt: 0xC2, ht: NewHashTable(bits), pm: statemap.New()},
	}
}

// Consume updates the last-seen table and interval registers with the
// byte just coded.
func (m *IntervalModel) Consume(buf *CyclicBuffer, c byte) {
	pos := buf.Pos() // position c is about to be written to (CM pushes c afterwards)
	prev := m.lastSeen[c]
	if prev != 0 {
		newInterval := pos - prev
		m.interval2 = m.interval
		m.interval = newInterval
	}
	m.lastSeen[c] = pos
}

// BeginByte recomputes the interval models' context hashes ahead of
// coding the next byte.
func (m *IntervalModel) BeginByte() {
	m.interval1.baseHash = m.interval * 0x9E3779B1
	m.interval2Model.baseHash = m.interval2 * 0x85EBCA6B
}

// Predict returns (interval, interval2) stretched probabilities for bit
// context c0.
func (m *IntervalModel) Predict(c0 int) (p1, p2 int32) {
	return m.interval1.Predict(c0), m.interval2Model.Predict(c0)
}

// Update trains both interval models on the bit actually coded.
func (m *IntervalModel) Update(bit int) {
	m.interval1.Update(bit)
	m.interval2Model.Update(bit)
}

// SmallClass buckets a byte into one of up to 16 classes used as part of
// the mixer/SSE composite context: for text, 7 letter-case/digit/space/
// punct groups; for binary, simply the high nibble.
func (m *IntervalModel) SmallClass(c byte) int {
	if !m.isText {
		return int(c >> 4)
	}
	switch {
	case c >= 'a' && c <= 'z':
		return 0
	case c >= 'A' && c <= 'Z':
		return 1
	case c >= '0' && c <= '9':
		return 2
	case c == ' ':
		return 3
	case c == '\n' || c == '\r' || c == '\t':
		return 4
	case isSpecialChar(c):
		return 5
	default:
		return 6
	}
}
