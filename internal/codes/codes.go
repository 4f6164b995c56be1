// Package codes defines the status taxonomy shared by the accessor engine and
// everything that calls into it.
//
// A Status is an error. Functions in the engine return either nil or an error
// that wraps exactly one Status, so callers can branch with errors.Is:
//
//	if errors.Is(err, codes.ErrBufferTooSmall) { ... }
//
// Required sizes for caller-provided buffers travel in a SizeError, which
// unwraps to ErrBufferTooSmall or ErrArrayTooSmall.
package codes

import (
	"errors"
	"fmt"
)

// Status is a numeric result code. The numbering follows the negative-integer
// convention used across the GRIB/BUFR decoding ecosystem.
type Status int

const (
	Success                Status = 0
	ErrPrematureEnd        Status = -1
	ErrInternal            Status = -2
	ErrBufferTooSmall      Status = -3
	ErrNotImplemented      Status = -4
	ErrArrayTooSmall       Status = -6
	ErrFileNotFound        Status = -7
	ErrNotFound            Status = -10
	ErrDecoding            Status = -13
	ErrEncoding            Status = -14
	ErrOutOfMemory         Status = -17
	ErrReadOnly            Status = -18
	ErrInvalidArgument     Status = -19
	ErrCountMismatch       Status = -22
	ErrStringTooSmall      Status = -23
	ErrWrongConversion     Status = -24
	ErrSwitchNoMatch       Status = -36
	ErrDoubleValueMismatch Status = -39
	ErrValueMismatch       Status = -42
	ErrConceptNoMatch      Status = -46
	ErrOutOfRange          Status = -65
)

var messages = map[Status]string{
	Success:                "No error",
	ErrPrematureEnd:        "End of resource reached when reading message",
	ErrInternal:            "Internal error",
	ErrBufferTooSmall:      "Passed buffer is too small",
	ErrNotImplemented:      "Function not yet implemented",
	ErrArrayTooSmall:       "Passed array is too small",
	ErrFileNotFound:        "File not found",
	ErrNotFound:            "Key/value not found",
	ErrDecoding:            "Decoding invalid",
	ErrEncoding:            "Encoding invalid",
	ErrOutOfMemory:         "Memory allocation error",
	ErrReadOnly:            "Value is read only",
	ErrInvalidArgument:     "Invalid argument",
	ErrCountMismatch:       "Counts do not match",
	ErrStringTooSmall:      "String is smaller than requested",
	ErrWrongConversion:     "Wrong type conversion",
	ErrSwitchNoMatch:       "Switch unable to find a matching case",
	ErrDoubleValueMismatch: "Double values are different",
	ErrValueMismatch:       "Values are different",
	ErrConceptNoMatch:      "Concept no match",
	ErrOutOfRange:          "Value out of coding range",
}

// Error implements the error interface.
func (s Status) Error() string {
	if m, ok := messages[s]; ok {
		return m
	}
	return fmt.Sprintf("unknown status %d", int(s))
}

// Code returns the numeric value of the status.
func (s Status) Code() int { return int(s) }

// SizeError reports that a caller-supplied destination could not hold the
// result. Needed is the exact number of elements (or bytes) required.
type SizeError struct {
	Status Status
	Needed int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s (need %d)", e.Status.Error(), e.Needed)
}

func (e *SizeError) Unwrap() error { return e.Status }

// TooSmall returns a SizeError for a destination buffer of bytes.
func TooSmall(needed int) error {
	return &SizeError{Status: ErrBufferTooSmall, Needed: needed}
}

// ArrayTooSmall returns a SizeError for a destination array of values.
func ArrayTooSmall(needed int) error {
	return &SizeError{Status: ErrArrayTooSmall, Needed: needed}
}

// Needed extracts the required size from err, if it carries one.
func Needed(err error) (int, bool) {
	var se *SizeError
	if errors.As(err, &se) {
		return se.Needed, true
	}
	return 0, false
}

// Of returns the Status wrapped by err. A nil error is Success and an error
// without a Status maps to ErrInternal.
func Of(err error) Status {
	if err == nil {
		return Success
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return ErrInternal
}
