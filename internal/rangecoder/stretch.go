package rangecoder

// Squash and Stretch implement the logistic function and its inverse
// used throughout the mixer/SSE stack (spec §4.2): stretch maps a
// probability in [0,4096) to a "stretched" log-odds value in
// [-2047,2047], squash is its inverse. Both are precomputed lookup
// tables, in the lineage of the PAQ/lpaq family of context-mixing
// compressors the spec's GLOSSARY describes.

// squashTable is interpolated the way lpaq1's squash() does: 33 anchor
// points spaced every 128 stretched units across [-2048,2048], linearly
// interpolated between anchors.
var squashTable = [33]int32{
	1, 2, 3, 6, 10, 16, 27, 45, 73, 120, 194, 310, 488, 747, 1101, 1546,
	2047, 2549, 2994, 3348, 3607, 3785, 3901, 3975, 4022, 4050, 4068, 4079,
	4085, 4089, 4092, 4093, 4094,
}

// Squash maps a stretched value d (roughly [-2047,2047]) to a probability
// in (0,4096).
func Squash(d int32) int32 {
	if d > 2047 {
		return 4095
	}
	if d < -2047 {
		return 1
	}
	w := d & 127
	idx := (d >> 7) + 16
	return (squashTable[idx]*(128-w) + squashTable[idx+1]*w + 64) >> 7
}

// stretchTable is built once at init by inverting Squash: for every
// achievable probability p, stretchTable[p] holds the smallest d with
// Squash(d) >= p.
var stretchTable [4096]int16

func init() {
	pi := 0
	for d := int32(-2047); d <= 2047; d++ {
		p := Squash(d)
		for ; pi <= int(p); pi++ {
			stretchTable[pi] = int16(d)
		}
	}
	for ; pi < 4096; pi++ {
		stretchTable[pi] = 2047
	}
}

// Stretch maps a probability p in [0,4096) to its stretched log-odds
// value in [-2047,2047]. Stretch(Squash(d)) == d up to rounding, and
// Squash(Stretch(p)) == p up to rounding (spec §4.2's invariant).
func Stretch(p int32) int32 {
	if p < 0 {
		p = 0
	} else if p > 4095 {
		p = 4095
	}
	return int32(stretchTable[p])
}
