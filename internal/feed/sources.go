package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"nmea-ng/internal/replay"
	"nmea-ng/internal/serialport"
)

const (
	// NMEA allows 82 characters per sentence; leave room for chatty
	// proprietary sentences.
	maxLineBytes = 4096

	minBackoff = 250 * time.Millisecond
	maxBackoff = 10 * time.Second
)

func (s *Service) runSerial(ctx context.Context, preset serialport.Preset) {
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			s.setState("stopped", "")
			return
		}

		device := strings.TrimSpace(s.cfg.Device)
		if device == "" {
			device = serialport.AutoDetect()
		}
		if device == "" {
			s.setState("error", "serial auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
		} else {
			s.setDevice(device)
			port, err := s.openSerial(device, preset, s.cfg.Driver)
			if err != nil {
				s.setState("error", fmt.Sprintf("serial open failed device=%s preset=%s: %v", device, preset, err))
			} else {
				backoff = minBackoff
				log.Printf("feed started source=serial device=%s preset=%s driver=%s", device, preset, s.cfg.Driver)
				s.setState("connected", "")
				s.setCloser(port)
				err := s.readLines(ctx, port)
				_ = port.Close()
				s.setCloser(nil)
				if ctx.Err() != nil {
					s.setState("stopped", "")
					return
				}
				s.setState("disconnected", fmt.Sprintf("serial read stopped device=%s: %v", device, err))
			}
		}

		if !sleepCtx(ctx, backoff) {
			s.setState("stopped", "")
			return
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

func loadReplay(path string) ([]replay.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay log: %w", err)
	}
	defer f.Close()
	recs, err := replay.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read replay log %s: %w", path, err)
	}
	return recs, nil
}

func (s *Service) runReplay(ctx context.Context, recs []replay.Record) {
	speed := s.cfg.ReplaySpeed
	if speed == 0 {
		speed = 1
	}
	interval := s.cfg.ReplayInterval
	if interval <= 0 {
		interval = time.Second
	}

	log.Printf("feed started source=replay path=%s speed=%.2f loop=%t records=%d", s.cfg.ReplayPath, speed, s.cfg.ReplayLoop, len(recs))
	s.setState("running", "")

	err := replay.Play(recs, speed, s.cfg.ReplayLoop, interval, s.sleeper(ctx), func(line string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.handleLine(line)
		return nil
	})
	switch {
	case err == nil:
		log.Printf("feed replay finished path=%s", s.cfg.ReplayPath)
		s.setState("done", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.setState("stopped", "")
	default:
		s.setState("error", fmt.Sprintf("replay failed: %v", err))
	}
}

// runTCP reads lines from a TCP stream and reconnects after delay when the
// stream drops. hello, when set, is written once per connection.
func (s *Service) runTCP(ctx context.Context, hello func(net.Conn) error) {
	delay := s.cfg.ReconnectDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	dialer := &net.Dialer{Timeout: 2 * time.Second}
	s.setDevice(s.cfg.Addr)

	for {
		if ctx.Err() != nil {
			s.setState("stopped", "")
			return
		}

		s.setState("connecting", "")
		conn, err := dialer.DialContext(ctx, "tcp", s.cfg.Addr)
		if err != nil {
			s.setState("error", err.Error())
			if !sleepCtx(ctx, delay) {
				s.setState("stopped", "")
				return
			}
			continue
		}

		if hello != nil {
			if err := hello(conn); err != nil {
				_ = conn.Close()
				s.setState("error", err.Error())
				if !sleepCtx(ctx, delay) {
					s.setState("stopped", "")
					return
				}
				continue
			}
		}

		log.Printf("feed started source=%s addr=%s", s.cfg.Source, s.cfg.Addr)
		s.setState("connected", "")
		s.setCloser(conn)
		err = s.readLines(ctx, conn)
		_ = conn.Close()
		s.setCloser(nil)
		if ctx.Err() != nil {
			s.setState("stopped", "")
			return
		}
		if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
			s.setState("disconnected", "")
		} else {
			s.setState("disconnected", err.Error())
		}

		if !sleepCtx(ctx, delay) {
			s.setState("stopped", "")
			return
		}
	}
}

// readLines feeds every line of r to handleLine until r fails or ctx is
// done. It always returns a non-nil error.
func (s *Service) readLines(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256), maxLineBytes)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !sc.Scan() {
			err := sc.Err()
			if err == nil {
				err = io.EOF
			}
			return err
		}
		s.handleLine(sc.Text())
	}
}
