package archive

import "errors"

// Sentinel errors for the archive container format (spec §7). The
// top-level package re-exports each of these under its own name so
// callers never need to import internal/archive directly to use
// errors.Is against them.
var (
	ErrBadMagic               = errors.New("archive: magic header mismatch")
	ErrVersionMismatch        = errors.New("archive: unsupported major/minor version")
	ErrCorruptMetadata        = errors.New("archive: corrupt metadata")
	ErrFilterParse            = errors.New("archive: malformed filter header")
	ErrVerificationDifference = errors.New("archive: decompressed output does not match the original")
	ErrResourceExhaustion     = errors.New("archive: failed to allocate model state")
)
