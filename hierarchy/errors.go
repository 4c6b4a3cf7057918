package hierarchy

import "fmt"

// ErrorKind classifies a BuildError.
type ErrorKind int

const (
	// DecodeFailure means the PM4 stream itself could not be walked
	// (a header pointed past captured memory, an indirect-buffer
	// payload was short).
	DecodeFailure ErrorKind = iota
	// CatalogMiss means a packet or register referenced something
	// outside the supplied Catalog. Note this is informational in
	// practice: a catalog miss falls through to catalog.Unknown rather
	// than failing the build (see catalog.Unknown's doc comment); this
	// kind exists for a caller that wants to log or count misses via a
	// Catalog wrapper, not for a failure this module raises itself.
	CatalogMiss
	// MemoryRead names a failed MemoryView read needed to decode a
	// field (as opposed to walking the stream itself). The builder
	// reports such a failure with Kind DecodeFailure, so no error it
	// returns carries this kind.
	MemoryRead
)

func (k ErrorKind) String() string {
	switch k {
	case DecodeFailure:
		return "decode failure"
	case CatalogMiss:
		return "catalog miss"
	case MemoryRead:
		return "memory read"
	default:
		return "unknown"
	}
}

// BuildError is returned from CreateTrees/CreateTreesFromBuffer when the
// build cannot complete. It always wraps a cause with call-site context
// already attached via github.com/pkg/errors.
type BuildError struct {
	Kind ErrorKind
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("cmdhierarchy: %s: %v", e.Kind, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

func newBuildError(kind ErrorKind, cause error) *BuildError {
	return &BuildError{Kind: kind, Err: cause}
}
