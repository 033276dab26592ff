// Package bijouerr defines the error taxonomy shared by every Bijou
// component, and the errno mapping an external host bridge needs at the
// syscall boundary.
package bijouerr

import "fmt"

// Code is the category of a failing Bijou operation.
type Code int

const (
	Unspecified Code = iota
	DBError
	CryptoError
	IOError
	IncompatibleVersion
	AlreadyExists
	BadFileDescriptor
	InvalidInput
	NotEmpty
	NotFound
	NotADirectory
	FilesystemLoop
	Unsupported
)

func (c Code) String() string {
	switch c {
	case DBError:
		return "DBError"
	case CryptoError:
		return "CryptoError"
	case IOError:
		return "IOError"
	case IncompatibleVersion:
		return "IncompatibleVersion"
	case AlreadyExists:
		return "AlreadyExists"
	case BadFileDescriptor:
		return "BadFileDescriptor"
	case InvalidInput:
		return "InvalidInput"
	case NotEmpty:
		return "NotEmpty"
	case NotFound:
		return "NotFound"
	case NotADirectory:
		return "NotADirectory"
	case FilesystemLoop:
		return "FilesystemLoop"
	case Unsupported:
		return "Unsupported"
	default:
		return "Unspecified"
	}
}

// Error wraps a Code with a human-readable message and an optional
// underlying cause. Noisy-vs-expected classification is left to the call
// site (logger.Error vs logger.Debug), not encoded here.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an *Error carrying an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Is reports whether err is a *Error of the given code.
func Is(err error, code Code) bool {
	be, ok := err.(*Error)
	return ok && be.Code == code
}

// CodeOf extracts the Code from err, or Unspecified if err is not a
// *Error.
func CodeOf(err error) Code {
	if be, ok := err.(*Error); ok {
		return be.Code
	}
	return Unspecified
}

// Expected reports whether err is the kind of failure that is routine
// during normal operation (path walks hitting NotFound, create hitting
// AlreadyExists) and should not be logged at error level.
func Expected(err error) bool {
	switch CodeOf(err) {
	case NotFound, AlreadyExists:
		return true
	default:
		return false
	}
}

// Errno returns the POSIX errno number an external host bridge should
// surface for this Code, per the error -> errno mapping table.
func Errno(code Code) int {
	switch code {
	case NotFound:
		return enoent
	case AlreadyExists:
		return eexist
	case InvalidInput:
		return einval
	case NotEmpty:
		return enotempty
	case NotADirectory:
		return enotdir
	case FilesystemLoop:
		return eloop
	case BadFileDescriptor:
		return ebadf
	case IOError, CryptoError, DBError, IncompatibleVersion:
		return eio
	case Unsupported:
		return enotsup
	default:
		return eio
	}
}

// Linux/POSIX errno values, kept local so this package never needs a
// platform build tag: the host bridge that actually returns them to the
// kernel is out of scope here.
const (
	enoent    = 2
	eio       = 5
	ebadf     = 9
	eexist    = 17
	enotdir   = 20
	einval    = 22
	enotempty = 39
	eloop     = 40
	enotsup   = 95
)
