package nmea

import (
	"fmt"
	"time"
)

// VTG is course and speed over ground.
type VTG struct {
	TrueCourse     *float64 `json:"true_course_deg,omitempty"`
	MagneticCourse *float64 `json:"magnetic_course_deg,omitempty"`
	SpeedKnots     *float64 `json:"speed_knots,omitempty"`
	SpeedKmh       *float64 `json:"speed_kmh,omitempty"`
	Mode           Mode     `json:"mode"`
}

func (VTG) Kind() Kind { return KindVTG }
func (VTG) record()    {}

// VTG fields: course,T/M, course,T/M, speed,N/K, speed,N/K, mode.
// The unit code decides which attribute a value lands in, so the pairs may
// come in either order.
func parseVTG(_ time.Time, f []string) (Record, error) {
	var out VTG

	for n, idx := range []int{1, 3} {
		scaleName := fmt.Sprintf("CourseScale%d", n+1)
		v, unit, err := scaled(f, idx, fmt.Sprintf("Course%d", n+1), scaleName)
		if err != nil {
			return nil, err
		}
		switch unit {
		case "":
		case "T":
			if v != nil {
				out.TrueCourse = v
			}
		case "M":
			if v != nil {
				out.MagneticCourse = v
			}
		default:
			return nil, &FieldFormatError{Field: scaleName, Literal: unit}
		}
	}

	for n, idx := range []int{5, 7} {
		scaleName := fmt.Sprintf("SpeedScale%d", n+1)
		v, unit, err := scaled(f, idx, fmt.Sprintf("Speed%d", n+1), scaleName)
		if err != nil {
			return nil, err
		}
		switch unit {
		case "":
		case "N":
			if v != nil {
				out.SpeedKnots = v
			}
		case "K":
			if v != nil {
				out.SpeedKmh = v
			}
		default:
			return nil, &FieldFormatError{Field: scaleName, Literal: unit}
		}
	}

	// Only NMEA 3.0 and later send the mode.
	var err error
	if out.Mode, err = parseMode(f, 9); err != nil {
		return nil, err
	}
	return out, nil
}

// HDG is heading, deviation and variation from a magnetic sensor.
type HDG struct {
	Heading   float64  `json:"heading_deg"`
	Deviation *float64 `json:"deviation_deg,omitempty"`
	Variation *float64 `json:"variation_deg,omitempty"`
}

func (HDG) Kind() Kind { return KindHDG }
func (HDG) record()    {}

// HDG fields: heading, deviation, E/W, variation, E/W. Heading is mandatory.
func parseHDG(_ time.Time, f []string) (Record, error) {
	var out HDG
	var err error

	if out.Heading, err = reqFloat(f, 1, "Heading"); err != nil {
		return nil, err
	}
	if out.Deviation, err = bearing(f, 2, "Deviation", "DeviationDirection"); err != nil {
		return nil, err
	}
	if out.Variation, err = bearing(f, 4, "Variation", "VariationDirection"); err != nil {
		return nil, err
	}
	return out, nil
}

// RTE is one sentence of a route listing.
type RTE struct {
	TotalMessages *int      `json:"total_messages,omitempty"`
	MessageNumber *int      `json:"message_number,omitempty"`
	Mode          RouteMode `json:"mode"`
	RouteID       *string   `json:"route_id,omitempty"`
	Waypoints     []string  `json:"waypoints"`
}

func (RTE) Kind() Kind { return KindRTE }
func (RTE) record()    {}

// RTE fields: total, number, c (complete) / w (working), route id, then
// waypoint identifiers.
func parseRTE(_ time.Time, f []string) (Record, error) {
	var out RTE
	var err error

	if out.TotalMessages, err = optInt(f, 1, "TotalMessages"); err != nil {
		return nil, err
	}
	if out.MessageNumber, err = optInt(f, 2, "MessageNumber"); err != nil {
		return nil, err
	}
	switch s := field(f, 3); s {
	case "":
	case "c":
		out.Mode = RouteComplete
	case "w":
		out.Mode = RouteWorking
	default:
		return nil, &FieldFormatError{Field: "Mode", Literal: s}
	}
	out.RouteID = optString(f, 4)

	out.Waypoints = make([]string, 0, len(f))
	for i := 5; i < len(f); i++ {
		if f[i] != "" {
			out.Waypoints = append(out.Waypoints, f[i])
		}
	}
	return out, nil
}
