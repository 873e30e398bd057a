// Package parcel provides the ordered binary transport container that
// generated encode and decode routines write to and read from.
package parcel

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
// These can be checked using errors.Is().
var (
	// ErrUnexpectedEOF indicates the data was truncated unexpectedly.
	ErrUnexpectedEOF = errors.New("parcel: unexpected end of data")

	// ErrInvalidVarint indicates a malformed varint.
	ErrInvalidVarint = errors.New("parcel: invalid varint")

	// ErrOverflow indicates a decoded integer does not fit its declared width.
	ErrOverflow = errors.New("parcel: integer overflow")

	// ErrOrdinalOutOfRange indicates an enumeration ordinal outside the
	// declared constant list.
	ErrOrdinalOutOfRange = errors.New("parcel: enum ordinal out of range")

	// ErrUnknownType indicates a container or value name the loader cannot resolve.
	ErrUnknownType = errors.New("parcel: unknown type")

	// ErrDuplicateType indicates a name was registered more than once.
	ErrDuplicateType = errors.New("parcel: duplicate type registration")

	// ErrMaxDepthExceeded indicates the maximum container nesting depth was exceeded.
	ErrMaxDepthExceeded = errors.New("parcel: maximum nesting depth exceeded")

	// ErrMaxSizeExceeded indicates the maximum parcel size was exceeded.
	ErrMaxSizeExceeded = errors.New("parcel: maximum parcel size exceeded")

	// ErrMaxStringLength indicates the maximum string length was exceeded.
	ErrMaxStringLength = errors.New("parcel: maximum string length exceeded")

	// ErrMaxBytesLength indicates the maximum byte array length was exceeded.
	ErrMaxBytesLength = errors.New("parcel: maximum bytes length exceeded")

	// ErrMaxArrayLength indicates an element count above the limit or above
	// what the remaining data could hold.
	ErrMaxArrayLength = errors.New("parcel: maximum array length exceeded")

	// ErrInvalidUTF8 indicates a string contains invalid UTF-8.
	ErrInvalidUTF8 = errors.New("parcel: invalid UTF-8 string")

	// ErrTrailingData indicates a container body was not fully consumed.
	ErrTrailingData = errors.New("parcel: trailing data in container")

	// ErrValueCodec indicates the opaque value channel failed to encode or decode.
	ErrValueCodec = errors.New("parcel: value codec failure")
)

// DecodeError provides detailed context for decoding failures.
type DecodeError struct {
	// Type is the name of the container being decoded (if known).
	Type string

	// Offset is the byte offset where the error occurred, or -1.
	Offset int

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *DecodeError) Error() string {
	switch {
	case e.Type != "" && e.Offset >= 0:
		return fmt.Sprintf("parcel: decode %s at offset %d: %s", e.Type, e.Offset, e.Message)
	case e.Type != "":
		return fmt.Sprintf("parcel: decode %s: %s", e.Type, e.Message)
	case e.Offset >= 0:
		return fmt.Sprintf("parcel: decode at offset %d: %s", e.Offset, e.Message)
	default:
		return fmt.Sprintf("parcel: decode: %s", e.Message)
	}
}

// Unwrap returns the underlying cause of the error.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the cause matches target.
func (e *DecodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// NewDecodeErrorAt creates a new DecodeError with offset information.
func NewDecodeErrorAt(offset int, message string, cause error) *DecodeError {
	return &DecodeError{
		Offset:  offset,
		Message: message,
		Cause:   cause,
	}
}

// EncodeError provides detailed context for encoding failures.
type EncodeError struct {
	// Type is the name of the container or value being encoded.
	Type string

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *EncodeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("parcel: encode %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("parcel: encode: %s", e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the cause matches target.
func (e *EncodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// NewEncodeError creates a new EncodeError.
func NewEncodeError(typeName, message string, cause error) *EncodeError {
	return &EncodeError{
		Type:    typeName,
		Message: message,
		Cause:   cause,
	}
}

// IsLimitExceeded returns true if the error indicates a configured limit was exceeded.
func IsLimitExceeded(err error) bool {
	switch {
	case errors.Is(err, ErrMaxDepthExceeded),
		errors.Is(err, ErrMaxSizeExceeded),
		errors.Is(err, ErrMaxStringLength),
		errors.Is(err, ErrMaxBytesLength),
		errors.Is(err, ErrMaxArrayLength):
		return true
	default:
		return false
	}
}
