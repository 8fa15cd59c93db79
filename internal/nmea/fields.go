package nmea

import (
	"strconv"
	"strings"
	"time"
)

// gpsEpochPivot splits two-digit years: below it the century is 2000,
// otherwise 1900. The first GPS satellite flew in 1978.
//
// The pivot maps "77" to 2077. That is kept as-is for compatibility with
// existing logs; see DESIGN.md before changing it.
const gpsEpochPivot = 78

// ParseTime decodes an HHMMSS[.fff] field and places it on the calendar day
// of ref, in UTC.
func ParseTime(ref time.Time, v string) (time.Time, error) {
	whole, frac, hasFrac := strings.Cut(v, ".")
	if len(whole) != 6 || !allDigits(whole) {
		return time.Time{}, &FormatError{Value: v, Reason: "want HHMMSS"}
	}
	if hasFrac && (frac == "" || !allDigits(frac)) {
		return time.Time{}, &FormatError{Value: v, Reason: "bad fractional seconds"}
	}
	h, m, s := twoDigits(whole[0:2]), twoDigits(whole[2:4]), twoDigits(whole[4:6])
	if h > 23 || m > 59 || s > 59 {
		return time.Time{}, &FormatError{Value: v, Reason: "time of day out of range"}
	}

	ns := 0
	if hasFrac {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		ns, _ = strconv.Atoi(frac)
	}

	d := ref.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, s, ns, time.UTC), nil
}

// ParseDate decodes a DDMMYY field to midnight UTC of that day.
func ParseDate(v string) (time.Time, error) {
	if len(v) != 6 || !allDigits(v) {
		return time.Time{}, &FormatError{Value: v, Reason: "want DDMMYY"}
	}
	day, month, yy := twoDigits(v[0:2]), twoDigits(v[2:4]), twoDigits(v[4:6])

	year := yy + 1900
	if yy < gpsEpochPivot {
		year = yy + 2000
	}
	if month < 1 || month > 12 {
		return time.Time{}, &FormatError{Value: v, Reason: "month out of range"}
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, &FormatError{Value: v, Reason: "day out of range"}
	}
	return t, nil
}

// ParseLatLon decodes DDMM.mmmm (N/S) or DDDMM.mmmm (E/W) into signed
// decimal degrees. South and west are negative.
func ParseLatLon(v string, hemi string) (float64, error) {
	var width int
	switch hemi {
	case "N", "S":
		width = 2
	case "E", "W":
		width = 3
	default:
		return 0, &FormatError{Value: hemi, Reason: "hemisphere must be N, S, E or W"}
	}
	if len(v) <= width || !allDigits(v[:width]) {
		return 0, &FormatError{Value: v, Reason: "bad degrees"}
	}
	deg, _ := strconv.Atoi(v[:width])
	mins, err := parseDecimal(v[width:])
	if err != nil || mins < 0 || mins >= 60 {
		return 0, &FormatError{Value: v, Reason: "bad minutes"}
	}

	dec := float64(deg) + mins/60.0
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return dec, nil
}

// ParseBearing decodes a magnitude with an E/W direction flag. West is
// negative.
func ParseBearing(v string, dir string) (float64, error) {
	val, err := parseDecimal(v)
	if err != nil {
		return 0, &FormatError{Value: v, Reason: "not a number"}
	}
	switch dir {
	case "E":
		return val, nil
	case "W":
		return -val, nil
	default:
		return 0, &FormatError{Value: dir, Reason: "direction must be E or W"}
	}
}

// parseDecimal accepts plain decimal notation only: an optional sign,
// digits and at most one point. strconv alone would also take "NaN", "Inf"
// and hex floats.
func parseDecimal(s string) (float64, error) {
	body := s
	if body != "" && (body[0] == '-' || body[0] == '+') {
		body = body[1:]
	}
	dots, digits := 0, 0
	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case c == '.':
			dots++
		case c >= '0' && c <= '9':
			digits++
		default:
			return 0, &FormatError{Value: s, Reason: "not a number"}
		}
	}
	if digits == 0 || dots > 1 {
		return 0, &FormatError{Value: s, Reason: "not a number"}
	}
	return strconv.ParseFloat(s, 64)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// twoDigits assumes s was checked with allDigits.
func twoDigits(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
