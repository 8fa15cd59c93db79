// Package serialport opens NMEA talkers attached to serial lines and knows
// the line settings of the devices we have met in the field.
package serialport

import (
	"fmt"
	"strconv"
	"strings"
)

type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	default:
		return "N"
	}
}

type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits1Half
	StopBits2
)

func (s StopBits) String() string {
	switch s {
	case StopBits1Half:
		return "1.5"
	case StopBits2:
		return "2"
	default:
		return "1"
	}
}

// Preset is a complete set of line settings.
type Preset struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// String formats p the way the Generic model string is written, e.g.
// "8N1@4800".
func (p Preset) String() string {
	return fmt.Sprintf("%d%s%s@%d", p.DataBits, p.Parity, p.StopBits, p.BaudRate)
}

// NMEA 0183 mandates 4800 8N1; most sounders and compasses stick to it.
var nmeaDefault = Preset{BaudRate: 4800, DataBits: 8, Parity: ParityNone, StopBits: StopBits1}

var knownModels = map[string]map[string]Preset{
	"Garmin": {
		"Intelliducer": nmeaDefault,
	},
}

// LookupPreset resolves a device make and model to line settings. Make
// "Generic" takes the settings from the model string itself.
func LookupPreset(make, model string) (Preset, error) {
	if make == "Generic" {
		return ParseGeneric(model)
	}
	models, ok := knownModels[make]
	if !ok {
		return Preset{}, fmt.Errorf("unknown device make %q", make)
	}
	p, ok := models[model]
	if !ok {
		return Preset{}, fmt.Errorf("unknown %s model %q", make, model)
	}
	return p, nil
}

// ParseGeneric parses "<data bits><parity><stop bits>@<baud>", e.g.
// "8N1@4800" or "7e1.5@9600". Parity is one of n, o, e, m, s in either case.
func ParseGeneric(model string) (Preset, error) {
	frame, baud, ok := strings.Cut(strings.TrimSpace(model), "@")
	if !ok || len(frame) < 3 {
		return Preset{}, fmt.Errorf("generic model %q: want <bits><parity><stop>@<baud>", model)
	}

	var p Preset
	bits := int(frame[0] - '0')
	if bits < 5 || bits > 8 {
		return Preset{}, fmt.Errorf("generic model %q: data bits must be 5..8", model)
	}
	p.DataBits = bits

	switch strings.ToLower(frame[1:2]) {
	case "n":
		p.Parity = ParityNone
	case "o":
		p.Parity = ParityOdd
	case "e":
		p.Parity = ParityEven
	case "m":
		p.Parity = ParityMark
	case "s":
		p.Parity = ParitySpace
	default:
		return Preset{}, fmt.Errorf("generic model %q: unknown parity %q", model, frame[1:2])
	}

	switch frame[2:] {
	case "1":
		p.StopBits = StopBits1
	case "1.5":
		p.StopBits = StopBits1Half
	case "2":
		p.StopBits = StopBits2
	default:
		return Preset{}, fmt.Errorf("generic model %q: stop bits must be 1, 1.5 or 2", model)
	}

	b, err := strconv.Atoi(baud)
	if err != nil || b <= 0 {
		return Preset{}, fmt.Errorf("generic model %q: bad baud rate %q", model, baud)
	}
	p.BaudRate = b
	return p, nil
}
