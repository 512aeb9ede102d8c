// Package mcm implements a context-mixing archive compressor: a single
// pass classifies every input file's content (internal/detect), groups
// files into solid blocks by the profile that classification selects,
// runs each block through a content filter (internal/filter) and a
// context-mixing range coder (internal/cm, internal/rangecoder), and
// writes the result as a single archive (internal/archive) whose
// metadata record lists every file's name, attributes, and the
// segments of the solid blocks its bytes live in.
//
// Basic usage for compressing a set of files:
//
//	files := []mcm.FileInfo{{Name: "a.txt", Data: data}}
//	n, err := mcm.Compress(w, files, mcm.DefaultOptions())
//
// Basic usage for decompressing an archive, scattering each file's
// bytes to wherever the caller's FileOpener wants them written (the
// metadata Decompress returns arrives only after every block is
// written, so the names come from List):
//
//	entries, err := mcm.List(bytes.NewReader(archiveBytes))
//	meta, err := mcm.Decompress(ctx, bytes.NewReader(archiveBytes), func(idx uint64) (io.WriterAt, error) {
//	    return os.Create(entries[idx].Name)
//	})
package mcm

// FileInfo is one input to Compress: a file's archive-relative path,
// its content, and the attribute byte spec §6 preserves verbatim
// (permission bits plus the directory/system/hidden flags the file
// table packs into a single byte per entry).
type FileInfo struct {
	Name       string
	Data       []byte
	Attributes byte
}

// ListEntry is one file table row, as returned by List for the `l`
// command: everything Decompress would need to recreate the file,
// without paying for a single solid block's decompression.
type ListEntry struct {
	Name       string
	Size       uint64
	Attributes byte
}
