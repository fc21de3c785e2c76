package resolver

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind int

const (
	KindBlockedPrimitive Kind = iota + 1
	KindMissingLibraryFile
	KindLibraryFileMismatch
	KindUnresolvedUnknown
	KindLibraryLoad
)

var (
	ErrBlockedPrimitive    = errors.New("blocked primitive")
	ErrMissingLibraryFile  = errors.New("missing library file")
	ErrLibraryFileMismatch = errors.New("library file mismatch")
	ErrUnresolvedUnknown   = errors.New("unresolved module")
	ErrLibraryLoad         = errors.New("library file failed to load")
)

func (k Kind) String() string {
	switch k {
	case KindBlockedPrimitive:
		return "blocked_primitive"
	case KindMissingLibraryFile:
		return "missing_library_file"
	case KindLibraryFileMismatch:
		return "library_file_mismatch"
	case KindUnresolvedUnknown:
		return "unresolved_unknown"
	case KindLibraryLoad:
		return "library_load"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindBlockedPrimitive:
		return ErrBlockedPrimitive
	case KindMissingLibraryFile:
		return ErrMissingLibraryFile
	case KindLibraryFileMismatch:
		return ErrLibraryFileMismatch
	case KindUnresolvedUnknown:
		return ErrUnresolvedUnknown
	case KindLibraryLoad:
		return ErrLibraryLoad
	default:
		return nil
	}
}

// Error is a fatal resolution failure with the cell that triggered it.
type Error struct {
	Kind      Kind
	Reference string // undefined module type
	Module    string // module containing the cell
	Cell      string // instance name
	Path      string // library file, when one was involved
	Reason    string // blocked-primitive reason
	Err       error
}

func (e *Error) Error() string {
	where := fmt.Sprintf("module `%s' referenced in module `%s' in cell `%s'", e.Reference, e.Module, e.Cell)
	switch e.Kind {
	case KindBlockedPrimitive:
		return fmt.Sprintf("%s is not supported: %s", where, e.Reason)
	case KindMissingLibraryFile:
		return fmt.Sprintf("%s is a library primitive, but %s does not exist", where, e.Path)
	case KindLibraryFileMismatch:
		return fmt.Sprintf("file `%s' does not declare module `%s' (%s)", e.Path, e.Reference, where)
	case KindUnresolvedUnknown:
		return fmt.Sprintf("%s is not part of the design", where)
	case KindLibraryLoad:
		return fmt.Sprintf("loading %s for %s: %v", e.Path, where, e.Err)
	default:
		return where
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the failure kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the resolution failure kind of err, or 0.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
