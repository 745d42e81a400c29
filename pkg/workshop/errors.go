package workshop

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can tell cheap local validation
// failures from remote ones without matching on messages.
type Kind string

const (
	KindNotFound                 Kind = "not_found"
	KindMissingField             Kind = "missing_field"
	KindUnsupportedOperation     Kind = "unsupported_operation"
	KindIncompatibleContentType  Kind = "incompatible_content_type"
	KindRemoteCallRejected       Kind = "remote_call_rejected"
	KindOperationFailed          Kind = "operation_failed"
	KindTimeout                  Kind = "timeout"
	KindUploadVerificationFailed Kind = "upload_verification_failed"
)

// Error types
var (
	// ErrNotFound indicates a missing local file or directory
	ErrNotFound = errors.New("not found")

	// ErrMissingField indicates required metadata is absent on first publish
	ErrMissingField = errors.New("missing required field")

	// ErrUnsupportedOperation indicates the operation is not available in the current state
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrIncompatibleContentType indicates the safety guard refused a bundle update
	ErrIncompatibleContentType = errors.New("incompatible content type")

	// ErrRemoteCallRejected indicates a platform call returned a synchronous failure
	ErrRemoteCallRejected = errors.New("remote call rejected")

	// ErrOperationFailed indicates an asynchronous completion reported failure
	ErrOperationFailed = errors.New("operation failed")

	// ErrTimeout indicates an outstanding operation did not complete in time
	ErrTimeout = errors.New("operation timed out")

	// ErrUploadVerificationFailed indicates a staged file is missing after upload
	ErrUploadVerificationFailed = errors.New("upload verification failed")
)

// Named remote rejections. Each of them is also a KindRemoteCallRejected.
var (
	ErrRemoteUpdateFailed      = errors.New("remote update failed")
	ErrTagUpdateFailed         = errors.New("tag update failed")
	ErrContentAssignmentFailed = errors.New("content assignment failed")
)

var kindSentinels = map[Kind]error{
	KindNotFound:                 ErrNotFound,
	KindMissingField:             ErrMissingField,
	KindUnsupportedOperation:     ErrUnsupportedOperation,
	KindIncompatibleContentType:  ErrIncompatibleContentType,
	KindRemoteCallRejected:       ErrRemoteCallRejected,
	KindOperationFailed:          ErrOperationFailed,
	KindTimeout:                  ErrTimeout,
	KindUploadVerificationFailed: ErrUploadVerificationFailed,
}

// Error is the failure type returned by every operation in this package.
type Error struct {
	Kind      Kind
	Op        string
	Item      ItemID
	Path      string
	Field     string
	Code      Result
	IOFailure bool
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (path %q)", e.Path)
	}
	if e.Item != 0 {
		fmt.Fprintf(&b, " (item %s)", e.Item)
	}
	if e.IOFailure {
		b.WriteString(" (io failure)")
	} else if e.Code != ResultNone && e.Code != ResultOK {
		fmt.Fprintf(&b, " (result %s)", e.Code)
	}
	if e.Msg != "" && e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

func notFound(op, path string) error {
	return &Error{Kind: KindNotFound, Op: op, Path: path, Msg: "no such file or directory"}
}

func missingField(op, field string) error {
	return &Error{Kind: KindMissingField, Op: op, Field: field, Msg: "no " + field + " provided"}
}

func rejected(op string, err error) error {
	return &Error{Kind: KindRemoteCallRejected, Op: op, Err: err}
}
