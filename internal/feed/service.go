// Package feed reads NMEA lines from a serial port, a replay log, a TCP
// stream or gpsd and hands each one to the sentence dispatcher.
//
// A feed never stops on bad input: checksum and parse failures are counted
// and the most recent one is kept for status output.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"nmea-ng/internal/config"
	"nmea-ng/internal/nmea"
	"nmea-ng/internal/serialport"
)

type Config struct {
	Source string

	// Serial source. Device may be empty to auto-detect.
	Device string
	Make   string
	Model  string
	Driver string

	// Replay source.
	ReplayPath     string
	ReplaySpeed    float64
	ReplayLoop     bool
	ReplayInterval time.Duration

	// TCP and gpsd sources.
	Addr           string
	ReconnectDelay time.Duration
}

// Dispatcher is the part of *nmea.Parser the feed needs.
type Dispatcher interface {
	Dispatch(line string) (nmea.Record, error)
}

// LineRecorder receives every non-empty line before it is parsed.
type LineRecorder interface {
	WriteLine(now time.Time, line string) error
}

type Snapshot struct {
	Source string `json:"source"`
	Device string `json:"device,omitempty"`
	State  string `json:"state"`

	Lines            uint64            `json:"lines"`
	Parsed           uint64            `json:"parsed"`
	ChecksumFailures uint64            `json:"checksum_failures"`
	Malformed        uint64            `json:"malformed"`
	ParseErrors      uint64            `json:"parse_errors"`
	Tags             map[string]uint64 `json:"tags,omitempty"`

	LastSentenceUTC string `json:"last_sentence_utc,omitempty"`
	LastError       string `json:"last_error,omitempty"`
}

type Option func(*Service)

// WithRecorder logs raw traffic to r.
func WithRecorder(r LineRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

type openFunc func(device string, p serialport.Preset, driver string) (io.ReadCloser, error)

type Service struct {
	cfg      Config
	dispatch Dispatcher
	recorder LineRecorder

	// Overridden in tests.
	openSerial openFunc
	sleeper    func(ctx context.Context) sleeper
	now        func() time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closer io.Closer
	stats  Snapshot
}

func New(cfg Config, d Dispatcher, opts ...Option) *Service {
	src := strings.ToLower(strings.TrimSpace(cfg.Source))
	if src == "" {
		src = config.SourceSerial
	}
	cfg.Source = src
	if cfg.Make == "" {
		cfg.Make, cfg.Model = "Generic", "8N1@4800"
	}
	s := &Service{
		cfg:        cfg,
		dispatch:   d,
		openSerial: serialport.Open,
		sleeper:    func(ctx context.Context) sleeper { return ctxSleeper{ctx: ctx} },
		now:        time.Now,
		done:       make(chan struct{}),
		stats:      Snapshot{Source: src, Device: cfg.Device, State: "stopped", Tags: map[string]uint64{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the reader goroutine. It fails only for configuration
// problems it can see up front; I/O trouble later is reported through the
// snapshot.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("feed service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.dispatch == nil {
		return fmt.Errorf("feed dispatcher is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	var run func(context.Context)
	switch s.cfg.Source {
	case config.SourceSerial:
		preset, err := serialport.LookupPreset(s.cfg.Make, s.cfg.Model)
		if err != nil {
			return err
		}
		run = func(ctx context.Context) { s.runSerial(ctx, preset) }
	case config.SourceReplay:
		recs, err := loadReplay(s.cfg.ReplayPath)
		if err != nil {
			return err
		}
		run = func(ctx context.Context) { s.runReplay(ctx, recs) }
	case config.SourceTCP:
		if s.cfg.Addr == "" {
			return fmt.Errorf("feed tcp addr is required")
		}
		run = func(ctx context.Context) { s.runTCP(ctx, nil) }
	case config.SourceGPSD:
		if s.cfg.Addr == "" {
			s.cfg.Addr = config.DefaultGPSDAddr
		}
		run = func(ctx context.Context) { s.runTCP(ctx, gpsdWatch) }
	default:
		return fmt.Errorf("unknown feed source %q", s.cfg.Source)
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stats.State = "starting"

	go func() {
		defer close(s.done)
		run(childCtx)
	}()
	return nil
}

// Done is closed when the reader goroutine has exited, e.g. at the end of
// a non-looping replay.
func (s *Service) Done() <-chan struct{} { return s.done }

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.closer = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if closer != nil {
		_ = closer.Close()
	}
	<-s.done
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.Tags = make(map[string]uint64, len(s.stats.Tags))
	for k, v := range s.stats.Tags {
		out.Tags[k] = v
	}
	return out
}

// handleLine applies the per-line policy: record, dispatch, count.
func (s *Service) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if s.cfg.Source == config.SourceGPSD && isGPSDReport(line) {
		return
	}
	now := s.now()

	var recErr error
	if s.recorder != nil {
		recErr = s.recorder.WriteLine(now, line)
	}

	_, err := s.dispatch.Dispatch(line)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Lines++
	if recErr != nil {
		s.stats.LastError = "record: " + recErr.Error()
	}
	switch {
	case err == nil:
		s.stats.Parsed++
		s.stats.Tags[tagOf(line)]++
		s.stats.LastSentenceUTC = now.UTC().Format(time.RFC3339Nano)
		return
	case errors.Is(err, nmea.ErrChecksum):
		s.stats.ChecksumFailures++
	case errors.Is(err, nmea.ErrMalformedSentence), errors.Is(err, nmea.ErrInsufficientFields):
		s.stats.Malformed++
	default:
		s.stats.ParseErrors++
	}
	s.stats.LastError = err.Error()
}

func (s *Service) setState(state, lastErr string) {
	s.mu.Lock()
	s.stats.State = state
	if lastErr != "" {
		s.stats.LastError = lastErr
	}
	s.mu.Unlock()
}

func (s *Service) setCloser(c io.Closer) {
	s.mu.Lock()
	s.closer = c
	s.mu.Unlock()
}

func (s *Service) setDevice(device string) {
	s.mu.Lock()
	s.stats.Device = device
	s.mu.Unlock()
}

func tagOf(line string) string {
	line = strings.TrimPrefix(line, "$")
	if i := strings.IndexAny(line, ",*"); i >= 0 {
		return line[:i]
	}
	return line
}

type sleeper interface {
	Sleep(d time.Duration)
}

// ctxSleeper ends a sleep early when ctx is done.
type ctxSleeper struct {
	ctx context.Context
}

func (c ctxSleeper) Sleep(d time.Duration) { sleepCtx(c.ctx, d) }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
