package cm

// HashTable is the direct-mapped bit-history table shared by every
// context model in the bank (spec §3: "Hash table: entries are
// bit-history states; no collision resolution"). Each slot holds one
// statemap.Table state byte, addressed by hash & mask; a colliding
// context silently clobbers whatever was there, trading prediction
// accuracy for O(1), allocation-free lookups — the same trade the
// original makes (original_source/Util.hpp's hash_table sizing).
type HashTable struct {
	states []uint8
	mask   uint32
}

// NewHashTable creates a table with 2^bits slots, all starting in
// state 0 (statemap.Global's "never seen a bit" state).
func NewHashTable(bits uint) *HashTable {
	size := uint32(1) << bits
	return &HashTable{states: make([]uint8, size), mask: size - 1}
}

// Slot returns a pointer to the state byte for hash, so callers can
// read-modify-write it in place without a second lookup.
func (h *HashTable) Slot(hash uint32) *uint8 {
	return &h.states[hash&h.mask]
}

// hashMix combines a base context hash with the in-byte bit context
// c0 (spec §4.11's nibble-indexed bit context), matching the
// multiply-and-fold mixing original_source/Util.hpp builds its word
// and bracket hashes from (h*43 + c, kept 32-bit and xor-folded).
func hashMix(base uint32, c0 int) uint32 {
	h := base*0x9E3779B1 + uint32(c0)*2654435761
	h ^= h >> 15
	h *= 0x85EBCA6B
	h ^= h >> 13
	return h
}

// hashBytes computes an order-N context hash from the n bytes ending
// immediately before pos in buf (the most recent byte contributing the
// most weight), used by OrderModel and the sparse models.
func hashBytes(buf *CyclicBuffer, n int, salt uint32) uint32 {
	h := salt
	for i := n; i >= 1; i-- {
		c := buf.At(buf.Pos() - uint32(i))
		h = h*0x01000193 ^ uint32(c) // FNV-1a-style fold
	}
	return h
}
