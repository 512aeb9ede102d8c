package mcm

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-mcm/mcm/internal/archive"
	"github.com/go-mcm/mcm/internal/bio"
	"github.com/go-mcm/mcm/internal/cm"
	"github.com/go-mcm/mcm/internal/detect"
	"github.com/go-mcm/mcm/internal/filter"
	"github.com/go-mcm/mcm/internal/rangecoder"
)

// Algorithm IDs recorded in a BlockDescriptor (spec §4.15's 5-byte
// algorithm header). algoIDStore marks a block whose bytes were never
// handed to the CM core at all.
const (
	algoIDStore byte = 0
	algoIDCM    byte = 1
)

// Filter tags recorded in a BlockDescriptor, spec §4.15's "filter"
// byte. filterTagNone leaves a block's bytes untouched.
const (
	filterTagNone byte = 0
	filterTagDict byte = 1
	filterTagX86  byte = 2
)

// blockPlan is one solid block under construction during Compress: the
// caller's files assigned to it (by index into the original FileInfo
// slice) and the profile their dominant content kind selects.
type blockPlan struct {
	profile cm.ProfileKind
	indices []int
}

// Compress writes files to w as a single archive (spec §4.15), sorting
// the resulting solid blocks by descending uncompressed size before
// writing them. It returns the sum of every file's uncompressed size.
func Compress(w io.Writer, files []FileInfo, options *Options) (uint64, error) {
	opts := DefaultOptions().clamp()
	if options != nil {
		opts = options.clamp()
	}

	plans, analyzer := planBlocks(files, opts)

	var dict *filter.Dictionary
	for _, p := range plans {
		if chooseFilterTag(opts, p.profile) != filterTagDict {
			continue
		}
		var err error
		dict, err = loadOrBuildDictionary(opts, analyzer)
		if err != nil {
			return 0, fmt.Errorf("mcm: dictionary: %w", err)
		}
		break
	}

	type built struct {
		desc   archive.BlockDescriptor
		data   []byte
		rawLen int
	}
	blocks := make([]built, 0, len(plans))
	for _, plan := range plans {
		tag := chooseFilterTag(opts, plan.profile)

		var raw []byte
		segs := make([]archive.Segment, len(plan.indices))
		for si, idx := range plan.indices {
			segs[si] = archive.Segment{
				StreamIdx: uint64(idx),
				Ranges:    []archive.Range{{Length: uint64(len(files[idx].Data))}},
			}
			raw = append(raw, files[idx].Data...)
		}

		compressed, err := compressBlock(raw, tag, plan.profile, opts, dict)
		if err != nil {
			return 0, fmt.Errorf("mcm: compressing block: %w", err)
		}

		blocks = append(blocks, built{
			desc: archive.BlockDescriptor{
				MemUsage: byte(opts.MemLevel),
				AlgoID:   algoIDFor(opts.Level),
				LZP:      lzpByte(opts),
				Filter:   tag,
				Profile:  byte(plan.profile),
				Segments: segs,
			},
			data:   compressed,
			rawLen: len(raw),
		})
	}

	// spec §4.15: blocks ordered by descending total uncompressed size.
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].rawLen > blocks[j].rawLen })

	meta := &archive.Metadata{
		Blocks: make([]archive.BlockDescriptor, len(blocks)),
		Files:  make([]archive.FileEntry, len(files)),
	}
	for i, b := range blocks {
		meta.Blocks[i] = b.desc
	}
	for i, f := range files {
		meta.Files[i] = archive.FileEntry{Name: f.Name, Attributes: f.Attributes}
	}

	aw := archive.NewWriter(w)
	if err := aw.WriteHeader(); err != nil {
		return 0, err
	}
	if err := aw.WriteMetadata(meta); err != nil {
		return 0, err
	}
	for _, b := range blocks {
		if err := aw.WriteBlock(b.data); err != nil {
			return 0, err
		}
	}

	if dict != nil && opts.OutDictFile != "" {
		if err := os.WriteFile(opts.OutDictFile, dict.SaveDictionary(), 0o644); err != nil {
			return 0, fmt.Errorf("mcm: writing output dictionary: %w", err)
		}
	}

	var total uint64
	for _, f := range files {
		total += uint64(len(f.Data))
	}
	return total, aw.Flush()
}

// planBlocks classifies every file with a shared detect.Analyzer (so
// its WordCounter sees the whole input set, not one file at a time)
// and groups them into blocks by the profile their content selects.
// LevelStore and LevelSimple always collapse to a single block, since
// neither varies its model bank by content.
func planBlocks(files []FileInfo, opts Options) ([]blockPlan, *detect.Analyzer) {
	analyzer := detect.NewAnalyzer(false)
	kinds := make([]cm.ProfileKind, len(files))
	for i, f := range files {
		fa := analyzer.AnalyzeFile(f.Name, f.Data)
		kinds[i] = dominantProfile(fa.Blocks)
	}

	if opts.Level == LevelStore {
		return []blockPlan{{profile: cm.ProfileBinary, indices: allIndices(len(files))}}, analyzer
	}
	if opts.Level == LevelSimple {
		return []blockPlan{{profile: cm.ProfileSimple, indices: allIndices(len(files))}}, analyzer
	}

	byProfile := map[cm.ProfileKind][]int{}
	for i, k := range kinds {
		byProfile[k] = append(byProfile[k], i)
	}
	plans := make([]blockPlan, 0, len(byProfile))
	for k, idxs := range byProfile {
		plans = append(plans, blockPlan{profile: k, indices: idxs})
	}
	sort.Slice(plans, func(a, b int) bool { return plans[a].profile < plans[b].profile })
	return plans, analyzer
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// dominantProfile picks Text when a file's detected Text regions
// outweigh everything else detect.Classify found, Binary otherwise.
// Wave16 regions count toward "everything else": this implementation
// does not carry a dedicated audio profile, so they compress under the
// Binary model bank.
func dominantProfile(blocks []detect.Block) cm.ProfileKind {
	var textLen, otherLen int64
	for _, b := range blocks {
		if b.Kind == detect.KindText {
			textLen += b.Length
		} else {
			otherLen += b.Length
		}
	}
	if textLen > otherLen {
		return cm.ProfileText
	}
	return cm.ProfileBinary
}

func chooseFilterTag(opts Options, profile cm.ProfileKind) byte {
	switch opts.Filter {
	case FilterNone:
		return filterTagNone
	case FilterDict:
		return filterTagDict
	case FilterX86:
		return filterTagX86
	default: // FilterAuto
		switch {
		case opts.Level == LevelStore || opts.Level == LevelSimple:
			return filterTagNone
		case profile == cm.ProfileText:
			return filterTagDict
		case profile == cm.ProfileBinary:
			return filterTagX86
		default:
			return filterTagNone
		}
	}
}

func lzpByte(opts Options) byte {
	if opts.LZP == LZPDisabled {
		return 0
	}
	return 1
}

func algoIDFor(level CompLevel) byte {
	if level == LevelStore {
		return algoIDStore
	}
	return algoIDCM
}

// newProfile builds the model bank for kind at opts.MemLevel, applying
// opts.LZP as an override on top of the profile's own default (every
// profile but Simple enables the match model LZP rides on).
func newProfile(kind cm.ProfileKind, opts Options) *cm.Profile {
	var p *cm.Profile
	switch kind {
	case cm.ProfileText:
		p = cm.NewTextProfile(opts.MemLevel)
	case cm.ProfileSimple:
		p = cm.NewSimpleProfile(opts.MemLevel)
	default:
		p = cm.NewBinaryProfile(opts.MemLevel)
	}
	if opts.LZP == LZPDisabled {
		p.UseMatch = false
	}
	return p
}

// loadOrBuildDictionary reads opts.DictFile if the caller supplied one
// (spec §6 `-dict=`), otherwise builds a fresh codebook from every Text
// block the analyzer has seen across the whole input set (spec §4.13).
func loadOrBuildDictionary(opts Options, analyzer *detect.Analyzer) (*filter.Dictionary, error) {
	if opts.DictFile != "" {
		raw, err := os.ReadFile(opts.DictFile)
		if err != nil {
			return nil, err
		}
		return filter.LoadDictionary(raw)
	}
	return filter.BuildDictionary(analyzer.Words.Entries()), nil
}

// compressBlock filters and CM-encodes one solid block's concatenated
// file bytes. A Dict filter's codebook is embedded ahead of the
// filtered-length prefix so decompressBlock never needs a dictionary
// supplied out of band: spec §6's `-dict=`/`-out-dict=` only affect
// which codebook Compress builds, not how the block stores it.
func compressBlock(data []byte, tag byte, profile cm.ProfileKind, opts Options, dict *filter.Dictionary) ([]byte, error) {
	if opts.Level == LevelStore {
		return data, nil
	}

	var buf bytes.Buffer
	filtered := data
	switch tag {
	case filterTagDict:
		filtered = dict.Forward(data)
		dictBytes := dict.SaveDictionary()
		buf.Write(bio.AppendUvarint(nil, uint64(len(dictBytes))))
		buf.Write(dictBytes)
	case filterTagX86:
		filtered = filter.NewX86Filter().Forward(data)
	}

	buf.Write(bio.AppendUvarint(nil, uint64(len(filtered))))
	enc := rangecoder.NewEncoder(&buf)
	cm.NewCM(newProfile(profile, opts)).Encode(enc, filtered)
	enc.Flush()
	return buf.Bytes(), nil
}
