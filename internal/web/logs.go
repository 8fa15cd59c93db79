package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Log components. A process log line belongs to the component named by the
// first word of its message, e.g. "feed started source=replay ...".
var logComponents = map[string]bool{
	"feed":       true,
	"subscriber": true,
	"record":     true,
	"udp":        true,
	"mqtt":       true,
	"redis":      true,
	"web":        true,
	"nmea-ng":    true,
}

// LogEntry is one process log line and the component it came from. Component
// is empty for lines that do not start with a known component.
type LogEntry struct {
	Component string `json:"component,omitempty"`
	Line      string `json:"line"`
}

// LogBuffer keeps the tail of the process log in memory for /api/logs.
type LogBuffer struct {
	mu      sync.Mutex
	max     int
	entries []LogEntry
	partial string
	dropped uint64
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &LogBuffer{max: maxLines}
}

// Write implements io.Writer. Text after the last newline is held until the
// rest of the line arrives.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	parts := strings.Split(b.partial+string(p), "\n")
	b.partial = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		b.entries = append(b.entries, LogEntry{Component: logComponent(line), Line: line})
	}
	if over := len(b.entries) - b.max; over > 0 {
		b.entries = b.entries[over:]
		b.dropped += uint64(over)
	}
	return len(p), nil
}

// logComponent skips the standard logger's "2006/01/02 15:04:05" prefix and
// returns the first word of the message if it names a component.
func logComponent(line string) string {
	f := strings.Fields(line)
	if len(f) >= 2 && isLogDate(f[0]) && strings.Count(f[1], ":") == 2 {
		f = f[2:]
	}
	if len(f) == 0 {
		return ""
	}
	c := strings.TrimSuffix(f[0], ":")
	if !logComponents[c] {
		return ""
	}
	return c
}

func isLogDate(s string) bool {
	return len(s) == 10 && s[4] == '/' && s[7] == '/'
}

// Snapshot returns up to tail most recent entries, oldest first. A non-empty
// component keeps only entries of that component.
func (b *LogBuffer) Snapshot(tail int, component string) (entries []LogEntry, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tail <= 0 {
		tail = 200
	}
	for i := len(b.entries) - 1; i >= 0 && len(entries) < tail; i-- {
		if component == "" || b.entries[i].Component == component {
			entries = append(entries, b.entries[i])
		}
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, b.dropped
}

type LogsResponse struct {
	NowUTC    string     `json:"now_utc"`
	Component string     `json:"component,omitempty"`
	Dropped   uint64     `json:"dropped"`
	Entries   []LogEntry `json:"entries"`
}

// Handler serves /api/logs. Query parameters: tail (1..5000), component
// (one of the log components) and format=text.
func (b *LogBuffer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		q := r.URL.Query()

		tail := 200
		if s := strings.TrimSpace(q.Get("tail")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 5000 {
				http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
				return
			}
			tail = v
		}
		component := strings.ToLower(strings.TrimSpace(q.Get("component")))
		if component != "" && !logComponents[component] {
			http.Error(w, fmt.Sprintf("unknown component %q", component), http.StatusBadRequest)
			return
		}

		entries, dropped := b.Snapshot(tail, component)
		w.Header().Set("Cache-Control", "no-store")

		if strings.EqualFold(q.Get("format"), "text") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			if dropped > 0 {
				_, _ = fmt.Fprintf(w, "[dropped=%d]\n", dropped)
			}
			for _, e := range entries {
				_, _ = fmt.Fprintln(w, e.Line)
			}
			return
		}

		if entries == nil {
			entries = []LogEntry{}
		}
		bts, err := json.MarshalIndent(LogsResponse{
			NowUTC:    time.Now().UTC().Format(time.RFC3339Nano),
			Component: component,
			Dropped:   dropped,
			Entries:   entries,
		}, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(bts)
		_, _ = w.Write([]byte("\n"))
	})
}
