package mcm

import "github.com/go-mcm/mcm/internal/archive"

// Sentinel errors, one per row of spec §7's error taxonomy that has a
// dedicated kind. IoError is not a sentinel here — it is whatever the
// underlying io.Reader/io.Writer returned, wrapped with %w for context.
// ProfileMismatch has no sentinel either: per spec §7 it degrades
// silently to the Binary profile rather than surfacing as an error.
//
// These are re-exports of internal/archive's sentinels so callers never
// need to import that package directly to errors.Is against them.
var (
	ErrBadMagic               = archive.ErrBadMagic
	ErrVersionMismatch        = archive.ErrVersionMismatch
	ErrCorruptMetadata        = archive.ErrCorruptMetadata
	ErrFilterParse            = archive.ErrFilterParse
	ErrVerificationDifference = archive.ErrVerificationDifference
	ErrResourceExhaustion     = archive.ErrResourceExhaustion
)
