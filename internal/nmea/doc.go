// Package nmea decodes NMEA 0183 sentences into typed records.
//
// A Parser validates the checksum of each line, splits it into fields,
// looks the sentence tag up in a Registry and runs the matching handler.
// Tags without a handler resolve to the Unknown record; lookup never fails.
//
// Records are immutable values. Attributes that a sentence may omit are
// pointers (nil means "not reported"); enumerations carry an explicit
// unset constant as their zero value.
package nmea
