package nmea

import (
	"errors"
	"strconv"
	"time"
)

// field returns f[i], or "" when the sentence is shorter than that.
// Receivers running older NMEA revisions drop trailing fields.
func field(f []string, i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return f[i]
}

func formatErr(name, literal string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		return &FieldFormatError{Field: name, Literal: literal, Err: errors.New(fe.Reason)}
	}
	return &FieldFormatError{Field: name, Literal: literal, Err: err}
}

func optFloat(f []string, i int, name string) (*float64, error) {
	s := field(f, i)
	if s == "" {
		return nil, nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return nil, formatErr(name, s, err)
	}
	return &v, nil
}

func reqFloat(f []string, i int, name string) (float64, error) {
	if field(f, i) == "" {
		return 0, &MissingFieldError{Field: name}
	}
	v, err := optFloat(f, i, name)
	if err != nil {
		return 0, err
	}
	return *v, nil
}

func optInt(f []string, i int, name string) (*int, error) {
	s := field(f, i)
	if s == "" {
		return nil, nil
	}
	if !allDigits(s) {
		return nil, &FieldFormatError{Field: name, Literal: s}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, formatErr(name, s, err)
	}
	return &v, nil
}

func optString(f []string, i int) *string {
	s := field(f, i)
	if s == "" {
		return nil
	}
	return &s
}

func reqTime(ref time.Time, f []string, i int, name string) (time.Time, error) {
	s := field(f, i)
	if s == "" {
		return time.Time{}, &MissingFieldError{Field: name}
	}
	t, err := ParseTime(ref, s)
	if err != nil {
		return time.Time{}, formatErr(name, s, err)
	}
	return t, nil
}

// position decodes the four lat,N/S,lon,E/W fields starting at i. The pair is
// all-or-nothing: a partially reported position is an error rather than a
// half-filled record.
func position(f []string, i int, required bool) (lat *float64, lon *float64, err error) {
	names := [4]string{"Latitude", "LatitudeHemisphere", "Longitude", "LongitudeHemisphere"}
	vals := [4]string{field(f, i), field(f, i+1), field(f, i+2), field(f, i+3)}

	if !required && vals == [4]string{} {
		return nil, nil, nil
	}
	for k, v := range vals {
		if v == "" {
			return nil, nil, &MissingFieldError{Field: names[k]}
		}
	}
	if vals[1] != "N" && vals[1] != "S" {
		return nil, nil, &FieldFormatError{Field: names[1], Literal: vals[1]}
	}
	if vals[3] != "E" && vals[3] != "W" {
		return nil, nil, &FieldFormatError{Field: names[3], Literal: vals[3]}
	}

	la, err := ParseLatLon(vals[0], vals[1])
	if err != nil {
		return nil, nil, formatErr(names[0], vals[0], err)
	}
	lo, err := ParseLatLon(vals[2], vals[3])
	if err != nil {
		return nil, nil, formatErr(names[2], vals[2], err)
	}
	return &la, &lo, nil
}

// bearing decodes a value,E/W pair starting at i. A direction without a
// value carries nothing and yields nil.
func bearing(f []string, i int, name, dirName string) (*float64, error) {
	v, dir := field(f, i), field(f, i+1)
	if v == "" {
		return nil, nil
	}
	if dir == "" {
		return nil, &MissingFieldError{Field: dirName}
	}
	if dir != "E" && dir != "W" {
		return nil, &FieldFormatError{Field: dirName, Literal: dir}
	}
	b, err := ParseBearing(v, dir)
	if err != nil {
		return nil, formatErr(name, v, err)
	}
	return &b, nil
}

// scaled decodes a value,unit pair starting at i and returns the unit for
// the caller to route. A value without its unit is a missing field.
func scaled(f []string, i int, name, scaleName string) (*float64, string, error) {
	v, unit := field(f, i), field(f, i+1)
	if v != "" && unit == "" {
		return nil, "", &MissingFieldError{Field: scaleName}
	}
	val, err := optFloat(f, i, name)
	if err != nil {
		return nil, "", err
	}
	return val, unit, nil
}

// meters checks the unit field paired with a distance. NMEA only ever
// reports M here, so anything else means the value cannot be trusted.
func meters(f []string, vi, ui int, name string) error {
	u := field(f, ui)
	if u == "M" || (u == "" && field(f, vi) == "") {
		return nil
	}
	return &FieldFormatError{Field: name, Literal: u}
}

func parseMode(f []string, i int) (Mode, error) {
	switch s := field(f, i); s {
	case "":
		return ModeUnavailable, nil
	case "A":
		return ModeAutonomous, nil
	case "D":
		return ModeDifferential, nil
	case "E":
		return ModeEstimated, nil
	case "N":
		return ModeNotValid, nil
	default:
		return ModeUnavailable, &FieldFormatError{Field: "Mode", Literal: s}
	}
}
