package cm

// Reorder is a byte-value permutation applied to the input stream before
// the text profile's models see it (spec §4.4: grouping related byte
// classes — letters, digits, punctuation — adjacent so low-order context
// hashes collide usefully). It must be a bijection on [0,256) so Decode
// exactly undoes Encode.
type Reorder struct {
	fwd [256]byte
	inv [256]byte
}

// newReorder builds a Reorder from a forward permutation, deriving the
// inverse and panicking if fwd is not a bijection — a bug here would
// silently corrupt every file run through the text profile.
func newReorder(fwd [256]byte) *Reorder {
	r := &Reorder{fwd: fwd}
	var seen [256]bool
	for c, v := range fwd {
		if seen[v] {
			panic("cm: reorder table is not a bijection")
		}
		seen[v] = true
		r.inv[v] = byte(c)
	}
	return r
}

// Encode maps a source byte to its reordered form.
func (r *Reorder) Encode(c byte) byte { return r.fwd[c] }

// Decode undoes Encode.
func (r *Reorder) Decode(c byte) byte { return r.inv[c] }

// identityReorder leaves bytes untouched (used by the Binary and Simple
// profiles, where byte-class grouping buys nothing).
var identityReorder = func() *Reorder {
	var fwd [256]byte
	for i := range fwd {
		fwd[i] = byte(i)
	}
	return newReorder(fwd)
}()

// textReorder groups lowercase letters, then uppercase, then digits,
// then whitespace, then remaining punctuation/control/high bytes, each
// block contiguous — so an order-1 or order-2 hash over natural-language
// text sees tightly clustered values instead of the scattered ASCII
// layout, the same grouping goal original_source/Util.hpp's IsWordChar
// classification serves for the word model.
var textReorder = func() *Reorder {
	var fwd [256]byte
	next := byte(0)
	assigned := make([]bool, 256)
	assignOnce := func(pred func(int) bool) {
		for c := 0; c < 256; c++ {
			if !assigned[c] && pred(c) {
				fwd[c] = next
				next++
				assigned[c] = true
			}
		}
	}
	assignOnce(func(c int) bool { return c >= 'a' && c <= 'z' })
	assignOnce(func(c int) bool { return c >= 'A' && c <= 'Z' })
	assignOnce(func(c int) bool { return c >= '0' && c <= '9' })
	assignOnce(func(c int) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' })
	assignOnce(func(c int) bool { return true }) // everything else, in original order
	return newReorder(fwd)
}()
