package nmea

import (
	"fmt"
	"time"
)

// DBT is depth below transducer. A sounder may report any subset of units.
type DBT struct {
	Feet    *float64 `json:"feet,omitempty"`
	Meters  *float64 `json:"meters,omitempty"`
	Fathoms *float64 `json:"fathoms,omitempty"`
}

func (DBT) Kind() Kind { return KindDBT }
func (DBT) record()    {}

// DBT fields: three depth,unit pairs with units f (feet), M (meters) and
// F (fathoms).
func parseDBT(_ time.Time, f []string) (Record, error) {
	var out DBT
	for n := 0; n < 3; n++ {
		scaleName := fmt.Sprintf("DepthScale%d", n+1)
		v, unit, err := scaled(f, 1+2*n, fmt.Sprintf("Depth%d", n+1), scaleName)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		switch unit {
		case "f":
			out.Feet = v
		case "M":
			out.Meters = v
		case "F":
			out.Fathoms = v
		default:
			return nil, &FieldFormatError{Field: scaleName, Literal: unit}
		}
	}
	return out, nil
}

// DPT is depth of water relative to the transducer, in meters.
type DPT struct {
	Depth *float64 `json:"depth_m,omitempty"`
	// Offset is positive to the waterline, negative to the keel.
	Offset   *float64 `json:"offset_m,omitempty"`
	MaxRange *float64 `json:"max_range_m,omitempty"`
}

func (DPT) Kind() Kind { return KindDPT }
func (DPT) record()    {}

func parseDPT(_ time.Time, f []string) (Record, error) {
	var out DPT
	var err error
	if out.Depth, err = optFloat(f, 1, "Depth"); err != nil {
		return nil, err
	}
	if out.Offset, err = optFloat(f, 2, "Offset"); err != nil {
		return nil, err
	}
	if out.MaxRange, err = optFloat(f, 3, "MaxRange"); err != nil {
		return nil, err
	}
	return out, nil
}

// MTW is mean temperature of water.
type MTW struct {
	Temperature *float64         `json:"temperature,omitempty"`
	Scale       TemperatureScale `json:"scale"`
}

func (MTW) Kind() Kind { return KindMTW }
func (MTW) record()    {}

// MWT is water temperature as sent by some older sounders. Same layout as
// MTW.
type MWT struct {
	Temperature *float64         `json:"temperature,omitempty"`
	Scale       TemperatureScale `json:"scale"`
}

func (MWT) Kind() Kind { return KindMWT }
func (MWT) record()    {}

func parseMTW(_ time.Time, f []string) (Record, error) {
	t, s, err := temperature(f)
	if err != nil {
		return nil, err
	}
	return MTW{Temperature: t, Scale: s}, nil
}

func parseMWT(_ time.Time, f []string) (Record, error) {
	t, s, err := temperature(f)
	if err != nil {
		return nil, err
	}
	return MWT{Temperature: t, Scale: s}, nil
}

func temperature(f []string) (*float64, TemperatureScale, error) {
	t, err := optFloat(f, 1, "Temperature")
	if err != nil {
		return nil, ScaleUnknown, err
	}
	switch s := field(f, 2); s {
	case "":
		return t, ScaleUnknown, nil
	case "C":
		return t, ScaleCelsius, nil
	case "F":
		return t, ScaleFahrenheit, nil
	case "K":
		return t, ScaleKelvin, nil
	default:
		return nil, ScaleUnknown, &FieldFormatError{Field: "Scale", Literal: s}
	}
}
