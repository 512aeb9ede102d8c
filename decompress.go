package mcm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-mcm/mcm/internal/archive"
	"github.com/go-mcm/mcm/internal/bio"
	"github.com/go-mcm/mcm/internal/cm"
	"github.com/go-mcm/mcm/internal/filter"
	"github.com/go-mcm/mcm/internal/rangecoder"
)

// Decompress reads a whole archive from r: its header, its metadata
// record, then every solid block in turn, decompressing each and
// scattering its files' bytes to whatever io.WriterAt open resolves
// their stream index to (spec §5). It returns the metadata record so
// callers can inspect file names, sizes, and attributes afterward.
func Decompress(ctx context.Context, r io.Reader, open archive.FileOpener) (*archive.Metadata, error) {
	ar := archive.NewReader(r)
	if err := ar.ReadHeader(); err != nil {
		return nil, err
	}
	meta, err := ar.ReadMetadata()
	if err != nil {
		return nil, err
	}

	for _, desc := range meta.Blocks {
		compressed, err := ar.ReadBlock()
		if err != nil {
			return nil, err
		}
		data, err := decompressBlock(compressed, desc)
		if err != nil {
			return nil, fmt.Errorf("mcm: decompressing block: %w", err)
		}
		if err := archive.ScatterWrite(ctx, data, desc.Segments, open); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// List reads only the header and metadata record from r, without
// touching a single solid block, for spec §6's `l` command.
func List(r io.Reader) ([]ListEntry, error) {
	ar := archive.NewReader(r)
	if err := ar.ReadHeader(); err != nil {
		return nil, err
	}
	meta, err := ar.ReadMetadata()
	if err != nil {
		return nil, err
	}

	sizes := make([]uint64, len(meta.Files))
	for _, b := range meta.Blocks {
		for _, seg := range b.Segments {
			var n uint64
			for _, rg := range seg.Ranges {
				n += rg.Length
			}
			sizes[seg.StreamIdx] += n
		}
	}

	entries := make([]ListEntry, len(meta.Files))
	for i, f := range meta.Files {
		entries[i] = ListEntry{Name: f.Name, Size: sizes[i], Attributes: f.Attributes}
	}
	return entries, nil
}

// decompressBlock reverses compressBlock: for an algoIDStore block it
// is the identity; otherwise it reads the Dict filter's embedded
// codebook (if any), CM-decodes the filtered bytes, then reverses
// whichever filter desc.Filter names.
func decompressBlock(compressed []byte, desc archive.BlockDescriptor) ([]byte, error) {
	if desc.AlgoID == algoIDStore {
		return compressed, nil
	}

	br := bufio.NewReader(bytes.NewReader(compressed))

	var dict *filter.Dictionary
	if desc.Filter == filterTagDict {
		dictLen, err := bio.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("block dictionary length: %w", err)
		}
		dictBytes := make([]byte, dictLen)
		if _, err := io.ReadFull(br, dictBytes); err != nil {
			return nil, fmt.Errorf("reading block dictionary: %w", err)
		}
		dict, err = filter.LoadDictionary(dictBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFilterParse, err)
		}
	}

	filteredLen, err := bio.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("block filtered length: %w", err)
	}

	opts := Options{MemLevel: int(desc.MemUsage), LZP: lzpModeFromByte(desc.LZP)}
	dec := rangecoder.NewDecoder(br)
	filtered := cm.NewCM(newProfile(cm.ProfileKind(desc.Profile), opts)).Decode(dec, int(filteredLen))

	switch desc.Filter {
	case filterTagDict:
		out, err := dict.Reverse(filtered)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFilterParse, err)
		}
		return out, nil
	case filterTagX86:
		out, err := filter.NewX86Filter().Reverse(filtered)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFilterParse, err)
		}
		return out, nil
	default:
		return filtered, nil
	}
}

func lzpModeFromByte(b byte) LZPMode {
	if b == 0 {
		return LZPDisabled
	}
	return LZPEnabled
}
