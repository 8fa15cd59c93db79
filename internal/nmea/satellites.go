package nmea

import (
	"strings"
	"time"
)

// GSA is DOP and active satellites.
type GSA struct {
	// AutoSelection is true for automatic 2D/3D selection (A), false for
	// manual (M), nil when not reported.
	AutoSelection *bool      `json:"auto_selection,omitempty"`
	FixType       FixType    `json:"fix_type"`
	PRNs          [12]string `json:"prns"`
	PDOP          *float64   `json:"pdop,omitempty"`
	HDOP          *float64   `json:"hdop,omitempty"`
	VDOP          *float64   `json:"vdop,omitempty"`
	SystemID      *int       `json:"system_id,omitempty"`
}

func (GSA) Kind() Kind { return KindGSA }
func (GSA) record()    {}

// UsedPRNs returns the occupied PRN slots in order.
func (g GSA) UsedPRNs() []string {
	out := make([]string, 0, len(g.PRNs))
	for _, p := range g.PRNs {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GSA fields: mode (M/A), fix (1/2/3), 12 PRN slots (3..14), PDOP, HDOP,
// VDOP, system id (NMEA 4.1).
func parseGSA(_ time.Time, f []string) (Record, error) {
	var out GSA
	var err error

	switch s := field(f, 1); s {
	case "":
	case "A":
		v := true
		out.AutoSelection = &v
	case "M":
		v := false
		out.AutoSelection = &v
	default:
		return nil, &FieldFormatError{Field: "AutoSelection", Literal: s}
	}

	switch s := field(f, 2); s {
	case "":
	case "1":
		out.FixType = FixNone
	case "2":
		out.FixType = Fix2D
	case "3":
		out.FixType = Fix3D
	default:
		return nil, &FieldFormatError{Field: "FixType", Literal: s}
	}

	for i := range out.PRNs {
		out.PRNs[i] = field(f, 3+i)
	}

	if out.PDOP, err = optFloat(f, 15, "PDOP"); err != nil {
		return nil, err
	}
	if out.HDOP, err = optFloat(f, 16, "HDOP"); err != nil {
		return nil, err
	}

	// Handlers may be called with an unsplit tail, e.g. "2.1*39".
	vdop := field(f, 17)
	if star := strings.IndexByte(vdop, '*'); star >= 0 {
		vdop = vdop[:star]
	}
	if out.VDOP, err = optFloat([]string{vdop}, 0, "VDOP"); err != nil {
		return nil, err
	}
	if out.SystemID, err = optInt(f, 18, "SystemID"); err != nil {
		return nil, err
	}
	return out, nil
}

// Satellite is one PRN entry of a GSV sentence.
type Satellite struct {
	PRN       int     `json:"prn"`
	Elevation float64 `json:"elevation_deg"`
	Azimuth   float64 `json:"azimuth_deg"`
	// SNR is nil when the receiver is not tracking the satellite, which is
	// not the same as a reported 0 dB.
	SNR *float64 `json:"snr_db,omitempty"`
}

// GSV is satellites in view. A full view spans TotalMessages sentences.
type GSV struct {
	TotalMessages    *int        `json:"total_messages,omitempty"`
	MessageNumber    *int        `json:"message_number,omitempty"`
	SatellitesInView *int        `json:"satellites_in_view,omitempty"`
	Satellites       []Satellite `json:"satellites"`
	SignalID         *string     `json:"signal_id,omitempty"`
}

func (GSV) Kind() Kind { return KindGSV }
func (GSV) record()    {}

// GSV fields: total, number, in view, then repeated PRN, elevation,
// azimuth, SNR. NMEA 4.1 appends a signal id after the last block.
func parseGSV(_ time.Time, f []string) (Record, error) {
	var out GSV
	var err error

	if out.TotalMessages, err = optInt(f, 1, "TotalMessages"); err != nil {
		return nil, err
	}
	if out.MessageNumber, err = optInt(f, 2, "MessageNumber"); err != nil {
		return nil, err
	}
	if out.SatellitesInView, err = optInt(f, 3, "SatellitesInView"); err != nil {
		return nil, err
	}

	out.Satellites = make([]Satellite, 0, 4)
	for off := 4; off+2 < len(f); off += 4 {
		if field(f, off) == "" || field(f, off+1) == "" || field(f, off+2) == "" {
			continue
		}
		prn, err := optInt(f, off, "PRN")
		if err != nil {
			return nil, err
		}
		elev, err := optFloat(f, off+1, "Elevation")
		if err != nil {
			return nil, err
		}
		az, err := optFloat(f, off+2, "Azimuth")
		if err != nil {
			return nil, err
		}
		snr, err := optFloat(f, off+3, "SNR")
		if err != nil {
			return nil, err
		}
		out.Satellites = append(out.Satellites, Satellite{PRN: *prn, Elevation: *elev, Azimuth: *az, SNR: snr})
	}

	if len(f) > 4 && (len(f)-4)%4 == 1 && isSignalID(f[len(f)-1]) {
		out.SignalID = optString(f, len(f)-1)
	}
	return out, nil
}

// isSignalID reports whether v looks like an NMEA 4.1 signal id: a single
// hex digit. A lone trailing PRN of a truncated block is not one.
func isSignalID(v string) bool {
	if len(v) != 1 {
		return false
	}
	c := v[0]
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}
