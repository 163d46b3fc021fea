package vpk

import (
	"errors"
	"fmt"
)

// Kind classifies the error conditions this package can report.
type Kind int

const (
	// KindInvalidMagic means the first four bytes are not [Magic].
	KindInvalidMagic Kind = iota
	// KindInvalidVersion means the version field is not 1 or 2.
	KindInvalidVersion
	// KindUnsupported means the version is recognized but intentionally
	// rejected (the Respawn 0x00030002 dialect).
	KindUnsupported
	// KindInvalidFormat means a structural contract was violated (a bad
	// terminator, an impossible section size).
	KindInvalidFormat
	// KindInvalidState means an operation was attempted out of order (read
	// from a stream without a base name set, mutate after write, optimize
	// after entries were read, write an empty archive).
	KindInvalidState
	// KindOutOfRange means a caller-supplied buffer or size was invalid.
	KindOutOfRange
	// KindCRCMismatch means an extracted file's CRC32 didn't match.
	KindCRCMismatch
	// KindHashMismatch means an MD5 or Blake3 integrity check failed.
	KindHashMismatch
	// KindSignatureInvalid means RSA signature verification failed.
	KindSignatureInvalid
	// KindNotFound means an external chunk file was missing.
	KindNotFound
	// KindNullArgument means a programmer error at the API boundary (a nil
	// argument where one is never valid).
	KindNullArgument
)

func (k Kind) String() string {
	switch k {
	case KindInvalidMagic:
		return "invalid magic"
	case KindInvalidVersion:
		return "invalid version"
	case KindUnsupported:
		return "unsupported"
	case KindInvalidFormat:
		return "invalid format"
	case KindInvalidState:
		return "invalid state"
	case KindOutOfRange:
		return "out of range"
	case KindCRCMismatch:
		return "crc mismatch"
	case KindHashMismatch:
		return "hash mismatch"
	case KindSignatureInvalid:
		return "signature invalid"
	case KindNotFound:
		return "not found"
	case KindNullArgument:
		return "null argument"
	default:
		return "unknown"
	}
}

// Error is the single error type this package returns. Op names the
// operation that failed (e.g. "read tree", "extract", "write"); Err, when
// set, is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vpk: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("vpk: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newErrf(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsInvalidMagic reports whether err is a [KindInvalidMagic] error.
func IsInvalidMagic(err error) bool { return Is(err, KindInvalidMagic) }

// IsInvalidVersion reports whether err is a [KindInvalidVersion] error.
func IsInvalidVersion(err error) bool { return Is(err, KindInvalidVersion) }

// IsUnsupported reports whether err is a [KindUnsupported] error.
func IsUnsupported(err error) bool { return Is(err, KindUnsupported) }

// IsInvalidFormat reports whether err is a [KindInvalidFormat] error.
func IsInvalidFormat(err error) bool { return Is(err, KindInvalidFormat) }

// IsInvalidState reports whether err is a [KindInvalidState] error.
func IsInvalidState(err error) bool { return Is(err, KindInvalidState) }

// IsOutOfRange reports whether err is a [KindOutOfRange] error.
func IsOutOfRange(err error) bool { return Is(err, KindOutOfRange) }

// IsCRCMismatch reports whether err is a [KindCRCMismatch] error.
func IsCRCMismatch(err error) bool { return Is(err, KindCRCMismatch) }

// IsHashMismatch reports whether err is a [KindHashMismatch] error.
func IsHashMismatch(err error) bool { return Is(err, KindHashMismatch) }

// IsSignatureInvalid reports whether err is a [KindSignatureInvalid] error.
func IsSignatureInvalid(err error) bool { return Is(err, KindSignatureInvalid) }

// IsNotFound reports whether err is a [KindNotFound] error.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsNullArgument reports whether err is a [KindNullArgument] error.
func IsNullArgument(err error) bool { return Is(err, KindNullArgument) }
