package mcm

// CompLevel selects the algorithm family a block is compressed with,
// mirroring CompressionOptions::comp_level_ in the original source
// (Archive.hpp's CompLevel enum) and spec §6's `-{t,f,m,h,x,s}` flags.
// LevelTurbo, LevelFast, LevelMid, LevelHigh and LevelMax all compress
// with the same model bank, chosen per block from its content; only
// LevelStore and LevelSimple change how a block is compressed.
type CompLevel int

const (
	// LevelStore writes blocks uncompressed (spec §6 `-store`).
	LevelStore CompLevel = iota
	// LevelTurbo is selected by `-t`.
	LevelTurbo
	// LevelFast is selected by `-f`.
	LevelFast
	// LevelMid is the default (`-m`).
	LevelMid
	// LevelHigh is selected by `-h`.
	LevelHigh
	// LevelMax is selected by `-x`.
	LevelMax
	// LevelSimple uses only the low-order context models, for small or
	// already-compressed inputs where the rest of the bank is pure
	// overhead (`-s`).
	LevelSimple
)

func (l CompLevel) String() string {
	switch l {
	case LevelStore:
		return "store"
	case LevelTurbo:
		return "turbo"
	case LevelFast:
		return "fast"
	case LevelMid:
		return "mid"
	case LevelHigh:
		return "high"
	case LevelMax:
		return "max"
	case LevelSimple:
		return "simple"
	default:
		return "unknown"
	}
}

// FilterMode selects (or forces) the content filter applied before CM
// compression, mirroring FilterType in the original source.
type FilterMode int

const (
	// FilterAuto lets the detector's profile pick the filter: Dict for
	// Text, X86 for Binary, none otherwise.
	FilterAuto FilterMode = iota
	// FilterNone disables filtering unconditionally.
	FilterNone
	// FilterDict forces the dictionary/codeword filter.
	FilterDict
	// FilterX86 forces the x86 call/jump relocation filter.
	FilterX86
)

func (f FilterMode) String() string {
	switch f {
	case FilterAuto:
		return "auto"
	case FilterNone:
		return "none"
	case FilterDict:
		return "dict"
	case FilterX86:
		return "x86"
	default:
		return "unknown"
	}
}

// LZPMode overrides whether the LZP shortcut is enabled in the CM core,
// mirroring LZPType in the original source.
type LZPMode int

const (
	// LZPAuto enables LZP except at LevelSimple, where the cost of the
	// extra hash table isn't worth it for small/low-redundancy inputs.
	LZPAuto LZPMode = iota
	LZPEnabled
	LZPDisabled
)

func (l LZPMode) String() string {
	switch l {
	case LZPAuto:
		return "auto"
	case LZPEnabled:
		return "true"
	case LZPDisabled:
		return "false"
	default:
		return "unknown"
	}
}

// DefaultMemLevel and DefaultLevel mirror CompressionOptions's defaults
// in the original source (kDefaultMemUsage = 6, kDefaultLevel = kCompLevelMid).
const (
	DefaultMemLevel = 6
	DefaultLevel    = LevelMid
)

// MaxMemLevel is the highest mem level this implementation accepts.
// Levels 10 and 11 require a 64-bit platform per spec §6; this
// implementation only targets 64-bit Go builds, so all values up to
// MaxMemLevel are accepted uniformly.
const MaxMemLevel = 11

// Options is the compression configuration surface: spec §6's CLI flags
// plus the Algorithm descriptor fields of spec §3/§4.15, gathered into a
// single plain struct (no functional options), mirroring the teacher's
// Options struct in jpeg2000.go.
type Options struct {
	// Level selects the algorithm family (store/turbo/.../simple).
	Level CompLevel

	// MemLevel scales every context model's hash table: 2^(16+MemLevel)
	// slots per model, capped at 2^26 (and at 2^16 for the Simple
	// profile). The CM byte buffer is a fixed 1 MiB and does not scale
	// with MemLevel.
	MemLevel int

	// Filter forces or auto-selects the content filter.
	Filter FilterMode

	// LZP overrides whether the match-model LZP shortcut runs.
	LZP LZPMode

	// DictFile, if set, is read as an external dictionary source instead
	// of building one from the input's own word frequencies.
	DictFile string

	// OutDictFile, if set, dumps the dictionary built during compression
	// (BuildDictionary's output, SaveDictionary-encoded) to this path.
	OutDictFile string

	// BlockSizeHintMB holds the value of the CLI's `-b <MB>` flag.
	// Compress does not read it: blocks are formed by content profile
	// alone and are never split by size.
	BlockSizeHintMB int
}

// DefaultOptions returns the options this package uses when none are
// supplied, matching the original source's CompressionOptions defaults.
func DefaultOptions() *Options {
	return &Options{
		Level:    DefaultLevel,
		MemLevel: DefaultMemLevel,
		Filter:   FilterAuto,
		LZP:      LZPAuto,
	}
}

// clamp brings opts.MemLevel into [0, MaxMemLevel], used defensively at
// the start of Compress. It fills in no defaults: a zero-value Options
// keeps Level LevelStore and MemLevel 0.
func (o *Options) clamp() Options {
	out := *o
	if out.MemLevel < 0 {
		out.MemLevel = 0
	}
	if out.MemLevel > MaxMemLevel {
		out.MemLevel = MaxMemLevel
	}
	return out
}
