package drive

import "errors"

// Namespace errors returned by Service. Callers match them with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidPath    = errors.New("invalid path")
	ErrInvalidArchive = errors.New("invalid archive")
)

// Store-level errors returned by Database and BlobStore implementations.
var (
	ErrDuplicatePath = errors.New("duplicate path")
	ErrBlobNotFound  = errors.New("blob not found")
	ErrBlobExists    = errors.New("blob already exists")
)

// Kind is a coarse classification of an error that transport adapters
// translate into protocol status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unrecognized errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBlobNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrDuplicatePath), errors.Is(err, ErrBlobExists):
		return KindConflict
	case errors.Is(err, ErrInvalidPath), errors.Is(err, ErrInvalidArchive):
		return KindInvalid
	default:
		return KindInternal
	}
}
