package nmea

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedSentence  = errors.New("malformed sentence")
	ErrChecksum           = errors.New("checksum verification failed")
	ErrInsufficientFields = errors.New("insufficient fields")
)

// ParserError is returned by the Parser for every failure. Tag is empty when
// the line was rejected before a tag could be read.
type ParserError struct {
	Tag string
	Err error
}

func (e *ParserError) Error() string {
	if e.Tag == "" {
		return "nmea: " + e.Err.Error()
	}
	return fmt.Sprintf("nmea: %s: %v", e.Tag, e.Err)
}

func (e *ParserError) Unwrap() error { return e.Err }

// ChecksumError reports a missing, malformed or mismatching *HH suffix.
// It matches ErrChecksum with errors.Is.
type ChecksumError struct {
	Want string // suffix found on the line, empty when missing
	Got  byte   // XOR of the payload
}

func (e *ChecksumError) Error() string {
	switch {
	case e.Want == "":
		return ErrChecksum.Error() + ": missing *HH suffix"
	case len(e.Want) != 2:
		return fmt.Sprintf("%s: malformed suffix %q", ErrChecksum.Error(), e.Want)
	default:
		return fmt.Sprintf("%s: want %s got %02X", ErrChecksum.Error(), e.Want, e.Got)
	}
}

func (e *ChecksumError) Is(target error) bool { return target == ErrChecksum }

// MissingFieldError reports an empty field that the sentence kind requires.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s", e.Field)
}

// FieldFormatError reports a present field that could not be decoded.
type FieldFormatError struct {
	Field   string
	Literal string
	Err     error
}

func (e *FieldFormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("field %s: invalid value %q", e.Field, e.Literal)
	}
	return fmt.Sprintf("field %s: invalid value %q: %v", e.Field, e.Literal, e.Err)
}

func (e *FieldFormatError) Unwrap() error { return e.Err }

// FormatError is returned by the field utilities.
type FormatError struct {
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format: %q: %s", e.Value, e.Reason)
}
