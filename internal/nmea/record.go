package nmea

// Kind names the record variant produced by a handler.
type Kind string

const (
	KindGGA     Kind = "GGA"
	KindGLL     Kind = "GLL"
	KindGSA     Kind = "GSA"
	KindGSV     Kind = "GSV"
	KindRMC     Kind = "RMC"
	KindRTE     Kind = "RTE"
	KindVTG     Kind = "VTG"
	KindHDG     Kind = "HDG"
	KindDBT     Kind = "DBT"
	KindDPT     Kind = "DPT"
	KindMTW     Kind = "MTW"
	KindMWT     Kind = "MWT"
	KindUnknown Kind = "Unknown"
	KindCustom  Kind = "Custom"
)

// Record is a decoded sentence. The set of implementations is closed; code
// outside this package that registers its own handler returns a Custom.
type Record interface {
	Kind() Kind
	record()
}

// Custom carries the result of a handler registered outside this package.
type Custom struct {
	Tag   string `json:"tag"`
	Value any    `json:"value"`
}

func (Custom) Kind() Kind { return KindCustom }
func (Custom) record()    {}

// Mode is the FAA mode indicator added in NMEA 2.3.
type Mode int

const (
	ModeUnavailable Mode = iota
	ModeAutonomous
	ModeDifferential
	ModeEstimated
	ModeNotValid
)

func (m Mode) String() string {
	switch m {
	case ModeAutonomous:
		return "autonomous"
	case ModeDifferential:
		return "differential"
	case ModeEstimated:
		return "estimated"
	case ModeNotValid:
		return "not_valid"
	default:
		return "unavailable"
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// FixType is the GSA fix mode.
type FixType int

const (
	FixUnset FixType = iota
	FixNone
	Fix2D
	Fix3D
)

func (f FixType) String() string {
	switch f {
	case FixNone:
		return "none"
	case Fix2D:
		return "2d"
	case Fix3D:
		return "3d"
	default:
		return "unset"
	}
}

func (f FixType) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// TemperatureScale is the unit code of MTW/MWT.
type TemperatureScale int

const (
	ScaleUnknown TemperatureScale = iota
	ScaleCelsius
	ScaleFahrenheit
	ScaleKelvin
)

func (s TemperatureScale) String() string {
	switch s {
	case ScaleCelsius:
		return "C"
	case ScaleFahrenheit:
		return "F"
	case ScaleKelvin:
		return "K"
	default:
		return "unknown"
	}
}

func (s TemperatureScale) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// RouteMode tells whether an RTE sentence lists the complete route or only
// the working leg.
type RouteMode int

const (
	RouteUnset RouteMode = iota
	RouteComplete
	RouteWorking
)

func (r RouteMode) String() string {
	switch r {
	case RouteComplete:
		return "complete"
	case RouteWorking:
		return "working"
	default:
		return "unset"
	}
}

func (r RouteMode) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
