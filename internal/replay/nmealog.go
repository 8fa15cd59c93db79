package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log format: line-oriented text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Timed lines are: <t_ns>,<sentence>
//   where t_ns is nanoseconds since START and sentence is the line as
//   received, starting with '$'.
// - Bare sentence lines (a plain NMEA capture) carry no time; Play spaces
//   them by a fixed interval.

type Record struct {
	At    time.Duration
	Timed bool
	// Line is empty for START markers.
	Line string
}

func (r Record) IsStart() bool { return r.Line == "" }

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	n := 0
	for s.Scan() {
		n++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}
		if strings.HasPrefix(line, "$") || strings.HasPrefix(line, "!") {
			recs = append(recs, Record{Line: line})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("line %d: invalid replay line (missing comma): %q", n, line)
		}
		tsStr := strings.TrimSpace(line[:comma])
		sentence := strings.TrimSpace(line[comma+1:])
		if tsStr == "" || sentence == "" {
			return nil, fmt.Errorf("line %d: invalid replay line (empty field): %q", n, line)
		}

		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid replay timestamp %q: %w", n, tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("line %d: invalid replay timestamp (negative): %d", n, tsNs)
		}
		recs = append(recs, Record{At: time.Duration(tsNs), Timed: true, Line: sentence})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Play replays records with their relative timing.
//
// cb is invoked for each sentence line. START markers reset the origin.
// Untimed lines are placed interval after the previous line. When looping,
// passes are also separated by interval.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(records []Record, speedMultiplier float64, loop bool, interval time.Duration, sleeper Sleeper, cb func(line string) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if interval < 0 {
		return fmt.Errorf("interval must be >= 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	lines := 0
	for _, r := range records {
		if !r.IsStart() {
			lines++
		}
	}
	if lines == 0 {
		return errors.New("no records")
	}

	for {
		var origin time.Duration
		var lastAt time.Duration
		var haveLast bool

		for _, r := range records {
			if r.IsStart() {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			var at time.Duration
			switch {
			case r.Timed:
				at = r.At - origin
				if at < 0 {
					at = 0
				}
			case haveLast:
				at = lastAt + interval
			}
			if haveLast {
				wait := at - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speedMultiplier)
				if wait > 0 {
					sleeper.Sleep(wait)
				}
			}

			if err := cb(r.Line); err != nil {
				return err
			}

			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
		if interval > 0 {
			sleeper.Sleep(time.Duration(float64(interval) / speedMultiplier))
		}
	}
}

// WriterConfig selects the file and rotation policy of a raw-traffic log.
type WriterConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// Writer records received lines in the replay log format. It is safe for
// concurrent use.
type Writer struct {
	mu     sync.Mutex
	c      io.Closer
	w      *bufio.Writer
	start  time.Time
	closed bool
}

// CreateWriter opens a rotating log file. Each rotated file continues the
// same time base; Reader and Play accept files that do not begin with START.
func CreateWriter(cfg WriterConfig) (*Writer, error) {
	if cfg.Path == "" {
		return nil, errors.New("replay writer path is empty")
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return NewWriter(lj)
}

// NewWriter writes a START marker to w, flushes it so an unwritable
// destination fails here, and returns a Writer on top of it.
func NewWriter(w io.WriteCloser) (*Writer, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Writer{c: w, w: bw, start: time.Now()}, nil
}

// WriteLine appends one timed line and flushes it, so the log on disk is
// current even if the process is killed.
func (ww *Writer) WriteLine(now time.Time, line string) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return errors.New("line is empty")
	}

	// Use monotonic component of time when available.
	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	if _, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), line); err != nil {
		return err
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.c.Close()
		return err
	}
	return ww.c.Close()
}
