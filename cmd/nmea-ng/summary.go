package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"nmea-ng/internal/nmea"
	"nmea-ng/internal/replay"
)

type logSummary struct {
	Segments         int
	Sentences        int
	Parsed           int
	ChecksumFailures int
	Malformed        int
	ParseErrors      int
	MaxDuration      time.Duration
	TagCounts        map[string]int
}

func summarizeNMEALog(p *nmea.Parser, records []replay.Record) logSummary {
	s := logSummary{TagCounts: map[string]int{}}
	origin := time.Duration(0)
	hasLines := false

	for _, r := range records {
		if r.IsStart() {
			s.Segments++
			origin = r.At
			continue
		}
		hasLines = true
		s.Sentences++
		if r.Timed {
			if at := r.At - origin; at > s.MaxDuration {
				s.MaxDuration = at
			}
		}

		raw, _, err := p.ParseSentence(r.Line)
		switch {
		case err == nil:
			s.Parsed++
			s.TagCounts[raw.Tag]++
		case errors.Is(err, nmea.ErrChecksum):
			s.ChecksumFailures++
		case errors.Is(err, nmea.ErrMalformedSentence), errors.Is(err, nmea.ErrInsufficientFields):
			s.Malformed++
		default:
			s.ParseErrors++
		}
	}
	if s.Segments == 0 && hasLines {
		s.Segments = 1
	}
	return s
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	recs, err := replay.NewReader(f).ReadAll()
	if err != nil {
		return err
	}

	s := summarizeNMEALog(nmea.NewParser(nmea.DefaultRegistry()), recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "sentences: %d\n", s.Sentences)
	fmt.Fprintf(w, "parsed: %d\n", s.Parsed)
	fmt.Fprintf(w, "checksum_failures: %d\n", s.ChecksumFailures)
	fmt.Fprintf(w, "malformed: %d\n", s.Malformed)
	fmt.Fprintf(w, "parse_errors: %d\n", s.ParseErrors)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)

	tags := make([]string, 0, len(s.TagCounts))
	for k := range s.TagCounts {
		tags = append(tags, k)
	}
	sort.Strings(tags)
	fmt.Fprintf(w, "tag_counts:\n")
	for _, k := range tags {
		fmt.Fprintf(w, "  %s: %d\n", k, s.TagCounts[k])
	}
	return nil
}
