package nmea

import (
	"encoding/hex"
	"strings"
)

// minSentenceLen is the shortest line worth looking at: "$" + tag + "*HH".
const minSentenceLen = 5

// RawSentence is a checksum-verified line split into fields.
type RawSentence struct {
	// Line is the trimmed input.
	Line string
	// Tag is fields[0] without the leading '$', e.g. "GPGGA".
	Tag string
	// Fields is the comma-split text before '*'. Fields[0] keeps its '$';
	// empty fields are kept and mean "not reported".
	Fields []string
}

// Checksum XORs every byte of payload. payload is the text strictly between
// '$' and '*'.
func Checksum(payload string) byte {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// Split validates framing and checksum and tokenizes the line. No field is
// looked at before the checksum has matched.
func Split(line string) (RawSentence, error) {
	line = strings.TrimSpace(line)
	if len(line) < minSentenceLen || line[0] != '$' {
		return RawSentence{}, &ParserError{Err: ErrMalformedSentence}
	}

	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return RawSentence{}, &ParserError{Err: &ChecksumError{}}
	}
	payload := line[1:star]
	got := Checksum(payload)
	suffix := line[star+1:]
	if len(suffix) != 2 {
		return RawSentence{}, &ParserError{Err: &ChecksumError{Want: suffix, Got: got}}
	}
	want, err := hex.DecodeString(suffix)
	if err != nil || want[0] != got {
		return RawSentence{}, &ParserError{Err: &ChecksumError{Want: suffix, Got: got}}
	}

	fields := strings.Split(line[:star], ",")
	if len(fields) < 2 {
		return RawSentence{}, &ParserError{Err: ErrInsufficientFields}
	}
	return RawSentence{Line: line, Tag: fields[0][1:], Fields: fields}, nil
}
