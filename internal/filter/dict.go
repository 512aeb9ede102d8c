// Package filter implements the reversible byte-stream transforms that
// run ahead of the CM core (spec §4.13, §4.14): a word-to-codeword
// dictionary substitution for text, and an x86 call/jump relocation
// filter for binaries. Both are pure, order-preserving, and exactly
// invertible — the archive records which filter (if any) ran on a
// block so decompression can undo it before handing bytes back.
package filter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/go-mcm/mcm/internal/detect"
)

// Reserved codeword-space byte values (spec §4.13: "codewords drawn from
// byte values ≥ 128"). Ordinary bytes below 0x80 always pass through
// unfiltered; the escape byte, the two case escapes and the two
// multi-byte lead bytes are carved out of the top of the range so the
// remaining values (minCodeword..maxOneByteCode) are available as
// direct one-byte codewords.
const (
	escEscape      = 0xFF
	escCapFirst    = 0xFE
	escCapWord     = 0xFD
	lead2Byte      = 0xFC
	lead3Byte      = 0xFB
	minCodeword    = 0x80 // first byte value usable as a direct 1-byte codeword
	maxOneByteCode = lead3Byte - 1
)

const maxOneByteWords = maxOneByteCode - minCodeword + 1 // 123

// defaultMinOccurrences, defaultNum1/2/3 are the codebook generation
// defaults (spec §4.13 step 1-4); num1/2/3 are capped at 255 since the
// serialized header stores each as a single byte (spec §4.13 step 6).
const (
	defaultMinOccurrences = 8
	defaultNum1           = 123
	defaultNum2           = 200
	defaultNum3           = 200
)

// Dictionary is a built codebook: a set of words replaced by 1, 2 or
// 3-byte codewords, plus the reverse lookup tables the decoder needs.
type Dictionary struct {
	words1b []string
	words2b []string
	words3b []string

	code map[string]codeword
}

type codeword struct {
	length int // 1, 2 or 3
	value  int // index into the corresponding wordsNb table
}

// candidate is one word considered for codebook inclusion, carrying
// enough information to rank it by savings at a given code length.
type candidate struct {
	word  string
	count int
}

func (c candidate) savings(codeLen int) int {
	return (len(c.word) - codeLen) * c.count
}

// BuildDictionary runs the codebook generation algorithm of spec
// §4.13 steps 1-5 over words, a snapshot of a detect.WordCounter's
// contents.
func BuildDictionary(words []detect.WordInfo) *Dictionary {
	var pool []candidate
	for _, w := range words {
		if w.Count >= defaultMinOccurrences && len(w.Word) > 1 {
			pool = append(pool, candidate{word: w.Word, count: w.Count})
		}
	}

	d := &Dictionary{code: make(map[string]codeword)}

	pool = takeTop(pool, 1, defaultNum1, func(c candidate) {
		d.words1b = append(d.words1b, c.word)
		d.code[c.word] = codeword{length: 1, value: len(d.words1b) - 1}
	})
	pool = takeTop(pool, 2, defaultNum2, func(c candidate) {
		d.words2b = append(d.words2b, c.word)
		d.code[c.word] = codeword{length: 2, value: len(d.words2b) - 1}
	})
	pool = takeTop(pool, 3, defaultNum3, func(c candidate) {
		if c.savings(3) <= 0 {
			return
		}
		d.words3b = append(d.words3b, c.word)
		d.code[c.word] = codeword{length: 3, value: len(d.words3b) - 1}
	})

	return d
}

// takeTop sorts pool by savings at the given code length (descending),
// takes up to limit entries via take, and returns the untaken remainder.
func takeTop(pool []candidate, codeLen, limit int, take func(candidate)) []candidate {
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].savings(codeLen) > pool[j].savings(codeLen)
	})
	n := limit
	if n > len(pool) {
		n = len(pool)
	}
	for i := 0; i < n; i++ {
		if pool[i].savings(codeLen) > 0 {
			take(pool[i])
		}
	}
	return pool[n:]
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// wordCase classifies word's casing into one of the three patterns
// Reverse can reconstruct: all-lowercase, all-uppercase (len >= 2), or
// first-upper-rest-lower. Any other mix (an internal capital like
// "McDonald", a leading lowercase with an internal capital like
// "iPhone") sets ok false: Forward must emit that run literally rather
// than lose the casing substitution can't carry.
func wordCase(word string) (lower string, allCap, firstCap, ok bool) {
	b := []byte(word)
	hasUpper := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
			hasUpper = true
		}
	}
	lower = string(b)
	switch {
	case !hasUpper:
		return lower, false, false, true
	case isAllUpper(word) && len(word) >= 2:
		return lower, true, false, true
	case word[0] >= 'A' && word[0] <= 'Z' && isAllLower(word[1:]):
		return lower, false, true, true
	default:
		return lower, false, false, false
	}
}

func isAllUpper(word string) bool {
	for i := 0; i < len(word); i++ {
		if c := word[i]; c >= 'a' && c <= 'z' {
			return false
		}
	}
	return true
}

func isAllLower(word string) bool {
	for i := 0; i < len(word); i++ {
		if c := word[i]; c >= 'A' && c <= 'Z' {
			return false
		}
	}
	return true
}

// writeCode appends the codeword bytes for cw, prefixed by a case
// escape if needed.
func writeCode(out []byte, cw codeword, allCap, firstCap bool) []byte {
	switch {
	case allCap:
		out = append(out, escCapWord)
	case firstCap:
		out = append(out, escCapFirst)
	}
	switch cw.length {
	case 1:
		out = append(out, byte(minCodeword+cw.value))
	case 2:
		out = append(out, lead2Byte, byte(cw.value))
	case 3:
		out = append(out, lead3Byte, byte(cw.value>>8), byte(cw.value))
	}
	return out
}

// Forward applies the dictionary substitution to data (spec §4.13):
// word-character runs matching a codebook entry become 1-3 byte
// codewords (with a case escape if the run wasn't all-lowercase). A run
// whose casing isn't one of the three patterns Reverse can reconstruct
// (all-lowercase, all-uppercase, first-upper-rest-lower — see wordCase)
// is left as-is even when its lowercased form is in the codebook, since
// substituting it would lose casing Reverse has no way to recover
// (SPEC_FULL §C.2). Every other byte ≥ 0x80 is passed through behind an
// escEscape so it can never be confused with a codeword.
func (d *Dictionary) Forward(data []byte) []byte {
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		c := data[i]
		if isWordChar(c) {
			j := i
			for j < len(data) && isWordChar(data[j]) && j-i < 256 {
				j++
			}
			word := string(data[i:j])
			lower, allCap, firstCap, caseOK := wordCase(word)
			if cw, found := d.code[lower]; caseOK && found {
				out = writeCode(out, cw, allCap, firstCap)
			} else {
				out = append(out, data[i:j]...)
			}
			i = j
			continue
		}
		if c >= minCodeword {
			out = append(out, escEscape, c)
		} else {
			out = append(out, c)
		}
		i++
	}
	return out
}

// Reverse undoes Forward.
func (d *Dictionary) Reverse(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	i := 0
	for i < len(data) {
		c := data[i]
		switch {
		case c == escEscape:
			if i+1 >= len(data) {
				return nil, fmt.Errorf("filter: dangling escape at end of block")
			}
			out = append(out, data[i+1])
			i += 2
		case c == escCapFirst || c == escCapWord:
			word, n, err := d.decodeCode(data[i+1:])
			if err != nil {
				return nil, err
			}
			if c == escCapFirst {
				word = applyFirstCap(word)
			} else {
				word = applyAllCap(word)
			}
			out = append(out, word...)
			i += 1 + n
		case c >= minCodeword:
			word, n, err := d.decodeCode(data[i:])
			if err != nil {
				return nil, err
			}
			out = append(out, word...)
			i += n
		default:
			out = append(out, c)
			i++
		}
	}
	return out, nil
}

// decodeCode reads one codeword starting at data[0], returning the
// word it expands to and the number of input bytes consumed.
func (d *Dictionary) decodeCode(data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, fmt.Errorf("filter: truncated codeword")
	}
	switch b := data[0]; {
	case b == lead2Byte:
		if len(data) < 2 {
			return "", 0, fmt.Errorf("filter: truncated 2-byte codeword")
		}
		idx := int(data[1])
		if idx >= len(d.words2b) {
			return "", 0, fmt.Errorf("filter: 2-byte codeword index %d out of range", idx)
		}
		return d.words2b[idx], 2, nil
	case b == lead3Byte:
		if len(data) < 3 {
			return "", 0, fmt.Errorf("filter: truncated 3-byte codeword")
		}
		idx := int(data[1])<<8 | int(data[2])
		if idx >= len(d.words3b) {
			return "", 0, fmt.Errorf("filter: 3-byte codeword index %d out of range", idx)
		}
		return d.words3b[idx], 3, nil
	case b >= minCodeword && b <= maxOneByteCode:
		idx := int(b) - minCodeword
		if idx >= len(d.words1b) {
			return "", 0, fmt.Errorf("filter: 1-byte codeword index %d out of range", idx)
		}
		return d.words1b[idx], 1, nil
	default:
		return "", 0, fmt.Errorf("filter: byte 0x%02x is not a valid codeword lead", b)
	}
}

func applyFirstCap(word string) string {
	if len(word) == 0 {
		return word
	}
	b := []byte(word)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 32
	}
	return string(b)
}

func applyAllCap(word string) string {
	b := []byte(word)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

// SaveDictionary serializes d the way spec §4.13 step 6 and
// SPEC_FULL.md §C.1 describe: a 4-byte total length, a 7-byte header
// (escape, esc_first, esc_word, num1, num2, num3, num_codes), then the
// null-terminated words themselves in words1b, words2b, words3b order.
func (d *Dictionary) SaveDictionary() []byte {
	var body bytes.Buffer
	body.WriteByte(escEscape)
	body.WriteByte(escCapFirst)
	body.WriteByte(escCapWord)
	body.WriteByte(byte(len(d.words1b)))
	body.WriteByte(byte(len(d.words2b)))
	body.WriteByte(byte(len(d.words3b)))
	body.WriteByte(byte(len(d.words1b) + len(d.words2b) + len(d.words3b)))
	for _, w := range d.words1b {
		body.WriteString(w)
		body.WriteByte(0)
	}
	for _, w := range d.words2b {
		body.WriteString(w)
		body.WriteByte(0)
	}
	for _, w := range d.words3b {
		body.WriteString(w)
		body.WriteByte(0)
	}

	out := make([]byte, 4+body.Len())
	binary.LittleEndian.PutUint32(out, uint32(body.Len()))
	copy(out[4:], body.Bytes())
	return out
}

// LoadDictionary parses the format SaveDictionary produces.
func LoadDictionary(data []byte) (*Dictionary, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("filter: dictionary file too short for length header")
	}
	total := binary.LittleEndian.Uint32(data)
	body := data[4:]
	if uint32(len(body)) < total {
		return nil, fmt.Errorf("filter: dictionary file truncated: want %d body bytes, have %d", total, len(body))
	}
	body = body[:total]
	if len(body) < 7 {
		return nil, fmt.Errorf("filter: dictionary header truncated")
	}
	num1, num2, num3 := int(body[3]), int(body[4]), int(body[5])
	rest := body[7:]

	d := &Dictionary{code: make(map[string]codeword)}
	var err error
	d.words1b, rest, err = readWords(rest, num1)
	if err != nil {
		return nil, err
	}
	d.words2b, rest, err = readWords(rest, num2)
	if err != nil {
		return nil, err
	}
	d.words3b, _, err = readWords(rest, num3)
	if err != nil {
		return nil, err
	}
	for i, w := range d.words1b {
		d.code[w] = codeword{length: 1, value: i}
	}
	for i, w := range d.words2b {
		d.code[w] = codeword{length: 2, value: i}
	}
	for i, w := range d.words3b {
		d.code[w] = codeword{length: 3, value: i}
	}
	return d, nil
}

func readWords(data []byte, n int) ([]string, []byte, error) {
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, nil, fmt.Errorf("filter: dictionary word %d missing null terminator", i)
		}
		words = append(words, string(data[:nul]))
		data = data[nul+1:]
	}
	return words, data, nil
}
