package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"nmea-ng/internal/nmea"
	"nmea-ng/internal/sink"
)

// parseStream decodes one sentence per input line and writes one JSON
// document per decoded sentence. Failures go to errw and do not stop the
// stream; the number of failed lines is returned.
func parseStream(p *nmea.Parser, in io.Reader, out, errw io.Writer) (failed int, err error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	bw := bufio.NewWriter(out)
	defer bw.Flush()

	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw, rec, perr := p.ParseSentence(line)
		if perr != nil {
			failed++
			fmt.Fprintf(errw, "line %d: %v\n", n, perr)
			continue
		}
		b, err := sink.Encode(nmea.Message{Sentence: raw, Record: rec})
		if err != nil {
			return failed, fmt.Errorf("line %d: encode: %w", n, err)
		}
		_, _ = bw.Write(b)
		_ = bw.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return failed, err
	}
	return failed, nil
}
