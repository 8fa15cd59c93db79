package nmea

import "time"

// GGA is GPS fix data.
type GGA struct {
	FixTime           time.Time `json:"fix_time"`
	Latitude          *float64  `json:"latitude,omitempty"`
	Longitude         *float64  `json:"longitude,omitempty"`
	FixQuality        *int      `json:"fix_quality,omitempty"`
	SatellitesTracked *int      `json:"satellites_tracked,omitempty"`
	HDOP              *float64  `json:"hdop,omitempty"`
	Altitude          *float64  `json:"altitude_m,omitempty"`
	GeoidHeight       *float64  `json:"geoid_height_m,omitempty"`
	DGPSAge           *float64  `json:"dgps_age_sec,omitempty"`
	DGPSStationID     *string   `json:"dgps_station_id,omitempty"`
}

func (GGA) Kind() Kind { return KindGGA }
func (GGA) record()    {}

// GGA fields:
//
//	0: talker+type
//	1: time (hhmmss[.sss])
//	2: latitude (ddmm.mmmm)
//	3: N/S
//	4: longitude (dddmm.mmmm)
//	5: E/W
//	6: fix quality (0=invalid)
//	7: number of satellites
//	8: HDOP
//	9: altitude
//
// 10: altitude units (M)
// 11: geoid height above WGS84
// 12: geoid units (M)
// 13: seconds since last DGPS update
// 14: DGPS station id
func parseGGA(nowUTC time.Time, f []string) (Record, error) {
	var out GGA
	var err error

	if out.FixTime, err = reqTime(nowUTC, f, 1, "FixTime"); err != nil {
		return nil, err
	}
	if out.Latitude, out.Longitude, err = position(f, 2, false); err != nil {
		return nil, err
	}
	if out.FixQuality, err = optInt(f, 6, "FixQuality"); err != nil {
		return nil, err
	}
	if out.SatellitesTracked, err = optInt(f, 7, "SatellitesTracked"); err != nil {
		return nil, err
	}
	if out.HDOP, err = optFloat(f, 8, "HDOP"); err != nil {
		return nil, err
	}
	if out.Altitude, err = optFloat(f, 9, "Altitude"); err != nil {
		return nil, err
	}
	if err := meters(f, 9, 10, "AltitudeScale"); err != nil {
		return nil, err
	}
	if out.GeoidHeight, err = optFloat(f, 11, "GeoidHeight"); err != nil {
		return nil, err
	}
	if err := meters(f, 11, 12, "GeoidScale"); err != nil {
		return nil, err
	}
	if out.DGPSAge, err = optFloat(f, 13, "DGPSAge"); err != nil {
		return nil, err
	}
	// Units without a DGPS station leave field 14 empty or drop it entirely.
	if out.DGPSAge != nil {
		out.DGPSStationID = optString(f, 14)
	}
	return out, nil
}

// GLL is geographic position with time of fix.
type GLL struct {
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	FixTime   *time.Time `json:"fix_time,omitempty"`
	Active    bool       `json:"active"`
	Mode      Mode       `json:"mode"`
}

func (GLL) Kind() Kind { return KindGLL }
func (GLL) record()    {}

// GLL fields: lat, N/S, lon, E/W, time, status (A/V), mode (NMEA 2.3).
// Any status other than A is treated as void.
func parseGLL(nowUTC time.Time, f []string) (Record, error) {
	var out GLL
	var err error

	if out.Latitude, out.Longitude, err = position(f, 1, false); err != nil {
		return nil, err
	}
	if field(f, 5) != "" {
		t, err := reqTime(nowUTC, f, 5, "FixTime")
		if err != nil {
			return nil, err
		}
		out.FixTime = &t
	}
	out.Active = field(f, 6) == "A"
	if out.Mode, err = parseMode(f, 7); err != nil {
		return nil, err
	}
	return out, nil
}

// RMC is the recommended minimum specific GNSS data.
type RMC struct {
	FixTime           time.Time `json:"fix_time"`
	Valid             bool      `json:"valid"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	SpeedKnots        float64   `json:"speed_knots"`
	Course            float64   `json:"course_deg"`
	MagneticVariation float64   `json:"magnetic_variation_deg"`
	Mode              Mode      `json:"mode"`
}

func (RMC) Kind() Kind { return KindRMC }
func (RMC) record()    {}

// RMC fields (NMEA 0183 v2.3):
//
//	0: talker+type
//	1: time (hhmmss[.sss])
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg)
//	9: date (ddmmyy)
//
// 10: magnetic variation (deg)
// 11: E/W
// 12: mode
//
// Everything up to the variation is mandatory.
func parseRMC(_ time.Time, f []string) (Record, error) {
	var out RMC

	tod := field(f, 1)
	if tod == "" {
		return nil, &MissingFieldError{Field: "FixTime"}
	}
	status := field(f, 2)
	if status == "" {
		return nil, &MissingFieldError{Field: "Status"}
	}
	out.Valid = status == "A"

	lat, lon, err := position(f, 3, true)
	if err != nil {
		return nil, err
	}
	out.Latitude, out.Longitude = *lat, *lon

	if out.SpeedKnots, err = reqFloat(f, 7, "Speed"); err != nil {
		return nil, err
	}
	if out.Course, err = reqFloat(f, 8, "Course"); err != nil {
		return nil, err
	}

	ds := field(f, 9)
	if ds == "" {
		return nil, &MissingFieldError{Field: "FixDate"}
	}
	day, err := ParseDate(ds)
	if err != nil {
		return nil, formatErr("FixDate", ds, err)
	}
	if out.FixTime, err = reqTime(day, f, 1, "FixTime"); err != nil {
		return nil, err
	}

	if field(f, 11) == "" {
		if out.MagneticVariation, err = reqFloat(f, 10, "MagneticVariation"); err != nil {
			return nil, err
		}
	} else {
		if field(f, 10) == "" {
			return nil, &MissingFieldError{Field: "MagneticVariation"}
		}
		v, err := bearing(f, 10, "MagneticVariation", "MagneticVariationDirection")
		if err != nil {
			return nil, err
		}
		out.MagneticVariation = *v
	}

	if out.Mode, err = parseMode(f, 12); err != nil {
		return nil, err
	}
	return out, nil
}
