package cm

import "github.com/go-mcm/mcm/internal/statemap"

// OrderModel is the generic order-N / sparse context model (spec §4.2's
// order-0..12 contiguous models and §4.2's sparse-2/3/4 skip models share
// one implementation: both reduce to "hash some subset of recent bytes,
// look up a bit-history state, map it to a probability"). salt keeps
// different orders and sparse selectors from sharing hash table regions
// by accident even though they're drawn from the same CyclicBuffer.
type OrderModel struct {
	order int // contiguous models: number of trailing bytes hashed
	gap   int // sparse models: single byte this many positions back (0 = contiguous)
	salt  uint32
	ht    *HashTable
	pm    *statemap.ProbMap

	baseHash uint32
	slot     *uint8
}

// newOrderModel builds a contiguous order-N model.
func newOrderModel(order int, salt uint32, bits uint) *OrderModel {
	return &OrderModel{order: order, salt: salt, ht: NewHashTable(bits), pm: statemap.New()}
}

// newSparseModel builds a model keyed by the single byte gap positions
// before the byte being coded (spec §4.2: "sparse-2/3/4 — a single byte
// N positions back, skipping the bytes in between").
func newSparseModel(gap int, salt uint32, bits uint) *OrderModel {
	return &OrderModel{gap: gap, salt: salt, ht: NewHashTable(bits), pm: statemap.New()}
}

// BeginByte recomputes this model's base context hash from buf, ahead
// of coding the next byte's 8 bits. Must be called once per byte before
// any Predict/Update calls for that byte.
func (m *OrderModel) BeginByte(buf *CyclicBuffer) {
	if m.gap != 0 {
		c := buf.At(buf.Pos() - uint32(m.gap))
		m.baseHash = m.salt*0x01000193 ^ uint32(c)
		return
	}
	m.baseHash = hashBytes(buf, m.order, m.salt)
}

// Predict returns the stretched probability for bit context c0 (spec
// §4.11's in-byte bit context), looking up and caching the hash table
// slot for the subsequent Update call.
func (m *OrderModel) Predict(c0 int) int32 {
	m.slot = m.ht.Slot(hashMix(m.baseHash, c0))
	return m.pm.Stretched(*m.slot)
}

// Update trains the cached slot's bit-history state and its shared
// probability map entry on the bit actually coded.
func (m *OrderModel) Update(bit int) {
	m.pm.Update(*m.slot, bit)
	*m.slot = statemap.Global.Next(*m.slot, bit)
}
