//go:build !linux

package serialport

import (
	"fmt"
	"io"
)

func openTermios(path string, p Preset) (io.ReadCloser, error) {
	return nil, fmt.Errorf("termios serial driver not supported on this platform")
}
