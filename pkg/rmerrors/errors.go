// Package rmerrors defines the classified error taxonomy (spec §7) shared by
// every goremux package. It mirrors the teacher's two error idioms at once:
// a small set of named Kind constants a caller can switch on after taking
// the *Error out with errors.As (internal/models/errors.go's sentinel
// style), wrapped in a
// typed struct carrying message + cause with Error()/Unwrap()
// (internal/pipeline/core/errors.go's StageError/ConfigurationError style).
package rmerrors

import "fmt"

// Kind classifies why a conversion failed, per spec §7's taxonomy table.
type Kind int

// Error kinds. All are fatal — no error in this taxonomy is recoverable
// locally; the conversion that produced one always terminates without
// partial output.
const (
	KindMalformedContainer Kind = iota
	KindUnsupportedCodec
	KindEmptyStream
	KindInvalidArgument
	KindOutOfBounds
)

// String renders the kind for log lines and error messages.
func (k Kind) String() string {
	switch k {
	case KindMalformedContainer:
		return "MalformedContainer"
	case KindUnsupportedCodec:
		return "UnsupportedCodec"
	case KindEmptyStream:
		return "EmptyStream"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindOutOfBounds:
		return "OutOfBounds"
	default:
		return "Unknown"
	}
}

// Error is the single error type every goremux entry point returns on
// failure. Kind lets a caller branch without parsing message text; Err
// preserves the underlying cause for logs via Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a classified error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// MalformedContainer reports a missing/invalid table (PAT, PMT, ftyp, moov)
// or a box whose size fails the §4.C bounds check.
func MalformedContainer(format string, args ...any) *Error {
	return Newf(KindMalformedContainer, format, args...)
}

// UnsupportedCodec reports a stream type this remuxer cannot carry,
// distinguishing audio from video per §7.
func UnsupportedCodec(isAudio bool, codecName string) *Error {
	kind := "video"
	if isAudio {
		kind = "audio"
	}
	return Newf(KindUnsupportedCodec, "unsupported %s codec: %s", kind, codecName)
}

// EmptyStream reports a located video PID/track that produced zero access
// units (typically because every PES lacked a PTS).
func EmptyStream(format string, args ...any) *Error {
	return Newf(KindEmptyStream, format, args...)
}

// InvalidArgument reports a caller-supplied option that cannot be honored,
// such as start_time_s > end_time_s or an empty stitch segment list.
func InvalidArgument(format string, args ...any) *Error {
	return Newf(KindInvalidArgument, format, args...)
}

// OutOfBounds reports a writer-side limit violation, such as an mdat whose
// size would exceed the 32-bit stco offset range.
func OutOfBounds(format string, args ...any) *Error {
	return Newf(KindOutOfBounds, format, args...)
}
