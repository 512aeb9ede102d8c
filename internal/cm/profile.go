package cm

// ProfileKind selects which model bank configuration a CM instance runs,
// matching the detector's classification (spec §4.12) to the model set
// best suited to that content (spec §4.11 "Profile configuration").
type ProfileKind int

const (
	ProfileText ProfileKind = iota
	ProfileBinary
	ProfileSimple
)

func (k ProfileKind) String() string {
	switch k {
	case ProfileText:
		return "text"
	case ProfileBinary:
		return "binary"
	case ProfileSimple:
		return "simple"
	default:
		return "unknown"
	}
}

// Profile names the model bank, context-table sizing, and reorder table
// a CM instance is configured with. Text enables every model kind;
// Binary leaves out the word and bracket models, uses its own orders and
// sparse gaps, keeps the identity reorder, and gets different byte
// classes from IntervalModel.SmallClass, reflecting spec §4.11's split
// between a "Text" and "Binary" profile family. Simple enables only the
// low-order context models, for small or already-compressed inputs
// where the rest of the bank is pure overhead (spec §4.11).
type Profile struct {
	Kind ProfileKind

	Orders     []int // contiguous order-N models to instantiate
	SparseGaps []int // sparse model gap distances to instantiate

	UseWord     bool
	UseBracket  bool
	UseInterval bool
	UseMatch    bool

	HashBits uint // per-model hash table size, log2(slots)

	Reorder *Reorder
}

// NewTextProfile returns the profile used for natural-language and
// markup content: the full model bank, reordered byte alphabet, and
// text-flavored small-class buckets.
func NewTextProfile(memLevel int) *Profile {
	return &Profile{
		Kind:        ProfileText,
		Orders:      []int{1, 2, 3, 4, 6},
		SparseGaps:  []int{2, 3},
		UseWord:     true,
		UseBracket:  true,
		UseInterval: true,
		UseMatch:    true,
		HashBits:    hashBitsForLevel(memLevel),
		Reorder:     textReorder,
	}
}

// NewBinaryProfile returns the profile used for compiled and otherwise
// structured non-text content: order, sparse, interval and match models,
// without the text-specific word and bracket models or reordering, since
// binary formats have no natural letter-adjacency to exploit.
func NewBinaryProfile(memLevel int) *Profile {
	return &Profile{
		Kind:        ProfileBinary,
		Orders:      []int{1, 2, 3, 4, 6, 8},
		SparseGaps:  []int{2, 4},
		UseWord:     false,
		UseBracket:  false,
		UseInterval: true,
		UseMatch:    true,
		HashBits:    hashBitsForLevel(memLevel),
		Reorder:     identityReorder,
	}
}

// NewSimpleProfile returns the lightweight profile for inputs where the
// full bank's hash tables would cost more memory than they earn back in
// ratio (small files, or data the detector already found incompressible).
func NewSimpleProfile(memLevel int) *Profile {
	bits := hashBitsForLevel(memLevel)
	if bits > 16 {
		bits = 16
	}
	return &Profile{
		Kind:        ProfileSimple,
		Orders:      []int{1, 2, 3},
		UseWord:     false,
		UseBracket:  false,
		UseInterval: false,
		UseMatch:    false,
		HashBits:    bits,
		Reorder:     identityReorder,
	}
}

// hashBitsForLevel maps a compression-level memory budget (spec §4.1,
// §6's -0..-11 levels) to a per-model hash table size, grounded on
// WoozyMasta-lzo's level_params.go table-size-by-level approach.
func hashBitsForLevel(memLevel int) uint {
	bits := uint(16 + memLevel)
	if bits < 16 {
		bits = 16
	}
	if bits > 26 {
		bits = 26
	}
	return bits
}

// NumInputs returns how many stretched-probability inputs the mixer for
// this profile must accept: one per instantiated model, in the same
// order CM.predictBit assembles them.
func (p *Profile) NumInputs() int {
	n := len(p.Orders) + len(p.SparseGaps)
	if p.UseWord {
		n += 3
	}
	if p.UseBracket {
		n += 2
	}
	if p.UseInterval {
		n += 2
	}
	if p.UseMatch {
		n++
	}
	return n
}
