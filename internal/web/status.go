package web

import (
	"sync/atomic"
	"time"

	"nmea-ng/internal/feed"
)

type Status struct {
	startUnixNano int64
	input         atomic.Value // string
	sinks         atomic.Value // []string
	feed          func() feed.Snapshot
	forward       func() ForwardStats
	tags          []string
	hub           *Hub
}

// ForwardStats are the counters of the NMEA-over-UDP forwarder.
type ForwardStats struct {
	Dest   string `json:"dest"`
	Sent   uint64 `json:"sent"`
	Failed uint64 `json:"failed"`
}

// NewStatus builds the status view. feedFn and hub may be nil.
func NewStatus(feedFn func() feed.Snapshot, tags []string, hub *Hub) *Status {
	s := &Status{feed: feedFn, tags: append([]string(nil), tags...), hub: hub}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.input.Store("")
	s.sinks.Store([]string{})
	return s
}

// SetStatic records the configured input description and the names of the
// enabled sinks.
func (s *Status) SetStatic(input string, sinks []string) {
	if input != "" {
		s.input.Store(input)
	}
	if sinks != nil {
		s.sinks.Store(append([]string(nil), sinks...))
	}
}

// SetForwarder adds UDP forwarder counters to the snapshot. Call it before
// the status is served.
func (s *Status) SetForwarder(fn func() ForwardStats) {
	s.forward = fn
}

type StatusSnapshot struct {
	Service   string         `json:"service"`
	NowUTC    string         `json:"now_utc"`
	UptimeSec int64          `json:"uptime_sec"`
	Input     string         `json:"input"`
	Sinks     []string       `json:"sinks"`
	Tags      []string       `json:"tags"`
	Feed      *feed.Snapshot `json:"feed,omitempty"`
	UDP       *ForwardStats  `json:"udp,omitempty"`
	Stream    HubStats       `json:"stream"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:   "nmea-ng",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Input:     s.input.Load().(string),
		Sinks:     s.sinks.Load().([]string),
		Tags:      s.tags,
		Stream:    s.hub.Stats(),
	}
	if s.feed != nil {
		fs := s.feed()
		snap.Feed = &fs
	}
	if s.forward != nil {
		us := s.forward()
		snap.UDP = &us
	}
	return snap
}
