package cm

import "github.com/go-mcm/mcm/internal/statemap"

// bracketStackDepth caps how many nested openers BracketModel tracks;
// original_source/BracketModel.hpp keeps a small fixed stack since
// pathological nesting depth isn't worth modeling precisely.
const bracketStackDepth = 16

var bracketPairs = map[byte]byte{
	'(': ')',
	'[': ']',
	'{': '}',
	'<': '>',
}

// specialChars is the fixed alphabet LastSpecialCharModel tracks
// (grounded on original_source/BracketModel.hpp's
// LastSpecialCharModel): markup- and escape-relevant bytes whose most
// recent occurrence is predictive of what comes next in structured text.
var specialChars = [...]byte{'*', '>', '$', '\\', '"', '\'', '\n'}

// BracketModel predicts from the top of a stack of currently-open
// bracket/quote characters — e.g. immediately after "(" the model has
// seen many historical samples of what follows an open paren, and it
// resets that context the moment the matching closer is seen.
type BracketModel struct {
	stack    [bracketStackDepth]byte
	depth    int
	inQuote  bool

	om *OrderModel
}

func newBracketModel(bits uint) *BracketModel {
	return &BracketModel{om: &OrderModel{salt: 0xB1, ht: NewHashTable(bits), pm: statemap.New()}}
}

func (b *BracketModel) top() byte {
	if b.depth == 0 {
		return 0
	}
	return b.stack[b.depth-1]
}

// Consume updates the bracket stack with the byte just coded.
func (b *BracketModel) Consume(c byte) {
	if c == '"' {
		b.inQuote = !b.inQuote
		return
	}
	if closer, ok := bracketPairs[c]; ok && b.depth < bracketStackDepth {
		b.stack[b.depth] = closer
		b.depth++
		return
	}
	if b.depth > 0 && c == b.stack[b.depth-1] {
		b.depth--
	}
}

// BeginByte recomputes the bracket context hash ahead of coding the next
// byte.
func (b *BracketModel) BeginByte() {
	ctx := uint32(b.top())
	if b.inQuote {
		ctx |= 0x100
	}
	b.om.baseHash = ctx * 0x2545F491
}

func (b *BracketModel) Predict(c0 int) int32 { return b.om.Predict(c0) }
func (b *BracketModel) Update(bit int)       { b.om.Update(bit) }

// LastSpecialCharModel predicts from which member of specialChars was
// most recently seen: runs of markup tend to
// repeat the same special byte (e.g. consecutive "*" in emphasis runs).
type LastSpecialCharModel struct {
	last byte
	om   *OrderModel
}

func newLastSpecialCharModel(bits uint) *LastSpecialCharModel {
	return &LastSpecialCharModel{om: &OrderModel{salt: 0xB2, ht: NewHashTable(bits), pm: statemap.New()}}
}

func isSpecialChar(c byte) bool {
	for _, s := range specialChars {
		if s == c {
			return true
		}
	}
	return false
}

// Consume updates the last-seen special character.
func (m *LastSpecialCharModel) Consume(c byte) {
	if isSpecialChar(c) {
		m.last = c
	}
}

// BeginByte recomputes the context hash ahead of coding the next byte.
func (m *LastSpecialCharModel) BeginByte() {
	m.om.baseHash = uint32(m.last) * 0x2545F491 + 0x1234
}

func (m *LastSpecialCharModel) Predict(c0 int) int32 { return m.om.Predict(c0) }
func (m *LastSpecialCharModel) Update(bit int)       { m.om.Update(bit) }
