package replay

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(d time.Duration) {
	fs.slept = append(fs.slept, d)
}

type nopCloser struct{ strings.Builder }

func (*nopCloser) Close() error { return nil }

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# comment

START
0,$GPGGA,002732,3545.2764,N,07849.2324,W,2,08,1.2,136.1,M,-33.7,M,,*76
10, $HCHDG,278.4,,,8.7,W*3D
$SDMTW,26.6,C*06
`)

	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	if !recs[0].IsStart() {
		t.Fatalf("expected START marker, got %+v", recs[0])
	}
	if !recs[1].Timed || recs[1].At != 0 || !strings.HasPrefix(recs[1].Line, "$GPGGA,002732,") {
		t.Fatalf("unexpected record 1: %+v", recs[1])
	}
	if recs[2].At != 10*time.Nanosecond || recs[2].Line != "$HCHDG,278.4,,,8.7,W*3D" {
		t.Fatalf("unexpected record 2: %+v", recs[2])
	}
	if recs[3].Timed || recs[3].Line != "$SDMTW,26.6,C*06" {
		t.Fatalf("unexpected record 3: %+v", recs[3])
	}
}

func TestReaderReadAll_InvalidLine(t *testing.T) {
	for _, in := range []string{"not-a-valid-line\n", "abc,$GPGGA*00\n", "-5,$GPGGA*00\n", "10,\n"} {
		if _, err := NewReader(strings.NewReader(in)).ReadAll(); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestPlay_RespectsTimingAndStart(t *testing.T) {
	var lines []string
	fs := &fakeSleeper{}

	recs := []Record{
		{At: 1 * time.Second},
		{At: 1 * time.Second, Timed: true, Line: "$A"},
		{At: 1*time.Second + 100*time.Nanosecond, Timed: true, Line: "$B"},
		{At: 2 * time.Second},
		{At: 2*time.Second + 50*time.Nanosecond, Timed: true, Line: "$C"},
	}

	err := Play(recs, 1.0, false, time.Second, fs, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"$A", "$B", "$C"}) {
		t.Fatalf("lines=%v", lines)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{100 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [100ns]", fs.slept)
	}
}

func TestPlay_UntimedLinesUseInterval(t *testing.T) {
	fs := &fakeSleeper{}
	recs := []Record{{Line: "$A"}, {Line: "$B"}, {Line: "$C"}}

	n := 0
	err := Play(recs, 2.0, false, time.Second, fs, func(string) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if n != 3 {
		t.Fatalf("callbacks=%d", n)
	}
	want := []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}
	if !reflect.DeepEqual(fs.slept, want) {
		t.Fatalf("slept = %v, want %v", fs.slept, want)
	}
}

func TestPlay_SpeedMultiplier(t *testing.T) {
	fs := &fakeSleeper{}
	recs := []Record{
		{At: 0, Timed: true, Line: "$A"},
		{At: 100 * time.Nanosecond, Timed: true, Line: "$B"},
	}

	err := Play(recs, 2.0, false, 0, fs, func(string) error { return nil })
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{50 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [50ns]", fs.slept)
	}
}

func TestPlay_LoopStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	recs := []Record{{Line: "$A"}, {Line: "$B"}}
	n := 0
	err := Play(recs, 1, true, 0, &fakeSleeper{}, func(string) error {
		n++
		if n == 5 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err=%v", err)
	}
	if n != 5 {
		t.Fatalf("callbacks=%d want 5", n)
	}
}

func TestPlay_InvalidArgs(t *testing.T) {
	recs := []Record{{Line: "$A"}}
	cb := func(string) error { return nil }
	if err := Play(recs, 0, false, 0, nil, cb); err == nil {
		t.Fatalf("expected speed error")
	}
	if err := Play(recs, 1, false, -time.Second, nil, cb); err == nil {
		t.Fatalf("expected interval error")
	}
	if err := Play([]Record{{}}, 1, true, 0, nil, cb); err == nil {
		t.Fatalf("expected no-records error")
	}
	if err := Play(recs, 1, false, 0, nil, nil); err == nil {
		t.Fatalf("expected callback error")
	}
}

func TestWriter_WritesExpectedFormat(t *testing.T) {
	var buf nopCloser
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	w.start = time.Unix(0, 0)

	if err := w.WriteLine(time.Unix(0, 20), "$SDMTW,26.6,C*06\r\n"); err != nil {
		t.Fatalf("WriteLine() error: %v", err)
	}
	if err := w.WriteLine(time.Unix(0, 30), "  "); err == nil {
		t.Fatalf("expected empty line error")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteLine(time.Unix(0, 40), "$X"); err == nil {
		t.Fatalf("expected closed error")
	}
	if got := buf.String(); got != "START\n20,$SDMTW,26.6,C*06\n" {
		t.Fatalf("unexpected contents: %q", got)
	}
}

func TestRecordReplay_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nmea.log")
	w, err := CreateWriter(WriterConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}

	// Same timestamp for every line so replay has zero waits.
	now := time.Now()
	in := []string{
		"$GPGGA,002732,3545.2764,N,07849.2324,W,2,08,1.2,136.1,M,-33.7,M,,*76",
		"$GPGLL,3545.2764,N,07849.2324,W,002732,A,D*51",
		"$SDDBT,,f,,M,,F*28",
	}
	for _, l := range in {
		if err := w.WriteLine(now, l); err != nil {
			_ = w.Close()
			t.Fatalf("WriteLine() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer f.Close()
	recs, err := NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}

	var out []string
	fs := &fakeSleeper{}
	if err := Play(recs, 1.0, false, time.Second, fs, func(l string) error {
		out = append(out, l)
		return nil
	}); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if len(fs.slept) != 0 {
		t.Fatalf("expected no sleeps, got %v", fs.slept)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("lines mismatch\n got: %q\nwant: %q", out, in)
	}
}

func TestCreateWriter_UnwritablePath(t *testing.T) {
	if _, err := CreateWriter(WriterConfig{Path: "/dev/null/sub/capture.nmea"}); err == nil {
		t.Fatalf("expected error for unwritable path")
	}
	if _, err := CreateWriter(WriterConfig{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestWriter_LinesReachDiskBeforeClose(t *testing.T) {
	var buf nopCloser
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	w.start = time.Unix(0, 0)
	line := "$GPGGA,002732,3545.2764,N,07849.2324,W,2,08,1.2,136.1,M,-33.7,M,,*76"
	for i := 0; i < 500; i++ {
		if err := w.WriteLine(time.Unix(0, int64(i)*int64(200*time.Millisecond)), line); err != nil {
			t.Fatalf("WriteLine() error: %v", err)
		}
	}
	if got := strings.Count(buf.String(), "\n"); got != 501 {
		t.Fatalf("lines in underlying writer=%d want 501", got)
	}

	path := filepath.Join(t.TempDir(), "live.nmea")
	fw, err := CreateWriter(WriterConfig{Path: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteLine(time.Now(), line); err != nil {
		t.Fatalf("WriteLine() error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.HasPrefix(string(b), "START\n") || !strings.Contains(string(b), ","+line+"\n") {
		t.Fatalf("file contents before Close: %q", b)
	}
}
