package serialport

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial"
)

const (
	DriverBugst   = "bugst"
	DriverTermios = "termios"
)

// Open opens device with the line settings of p. driver selects the
// implementation: "bugst" works on every platform go.bug.st/serial
// supports; "termios" programs the tty directly and is Linux only.
func Open(device string, p Preset, driver string) (io.ReadCloser, error) {
	switch driver {
	case DriverBugst, "":
		return openBugst(device, p)
	case DriverTermios:
		return openTermios(device, p)
	default:
		return nil, fmt.Errorf("unknown serial driver %q", driver)
	}
}

// Mode converts p for go.bug.st/serial.
func (p Preset) Mode() *serial.Mode {
	m := &serial.Mode{BaudRate: p.BaudRate, DataBits: p.DataBits}
	switch p.Parity {
	case ParityOdd:
		m.Parity = serial.OddParity
	case ParityEven:
		m.Parity = serial.EvenParity
	case ParityMark:
		m.Parity = serial.MarkParity
	case ParitySpace:
		m.Parity = serial.SpaceParity
	default:
		m.Parity = serial.NoParity
	}
	switch p.StopBits {
	case StopBits1Half:
		m.StopBits = serial.OnePointFiveStopBits
	case StopBits2:
		m.StopBits = serial.TwoStopBits
	default:
		m.StopBits = serial.OneStopBit
	}
	return m
}

func openBugst(device string, p Preset) (io.ReadCloser, error) {
	port, err := serial.Open(device, p.Mode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	// Reads block until data arrives; Close from another goroutine
	// unblocks them.
	return port, nil
}

// autoDetectPrefixes are tried in order. USB CDC GNSS receivers show up as
// ttyACM, USB-serial adapters for instrument buses as ttyUSB.
var autoDetectPrefixes = []string{"/dev/ttyACM", "/dev/ttyUSB"}

// AutoDetect returns the first likely NMEA device, or "" when none is
// attached.
func AutoDetect() string {
	ports, err := serial.GetPortsList()
	if err != nil || len(ports) == 0 {
		ports = nil
		for _, prefix := range autoDetectPrefixes {
			m, _ := filepath.Glob(prefix + "*")
			ports = append(ports, m...)
		}
	}
	return pickDevice(ports)
}

func pickDevice(ports []string) string {
	sorted := append([]string(nil), ports...)
	sort.Strings(sorted)
	for _, prefix := range autoDetectPrefixes {
		for _, p := range sorted {
			if strings.HasPrefix(p, prefix) {
				return p
			}
		}
	}
	return ""
}
