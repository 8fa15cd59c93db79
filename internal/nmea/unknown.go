package nmea

import (
	"strings"
	"time"
)

// UnknownTag is the registry key of the fallback handler.
const UnknownTag = "unknown"

// Unknown is produced for every tag without a handler. It keeps the raw
// fields so callers can forward or log them.
type Unknown struct {
	Tag    string   `json:"tag"`
	Fields []string `json:"fields"`
}

func (Unknown) Kind() Kind { return KindUnknown }
func (Unknown) record()    {}

func parseUnknown(_ time.Time, f []string) (Record, error) {
	out := Unknown{Fields: append([]string(nil), f...)}
	if len(f) > 0 {
		out.Tag = strings.TrimPrefix(f[0], "$")
	}
	return out, nil
}
