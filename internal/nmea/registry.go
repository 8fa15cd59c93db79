package nmea

import (
	"fmt"
	"sort"
	"time"
)

// ParseFunc decodes the fields of one sentence. fields[0] is the tag with
// its '$'. nowUTC supplies the calendar day for sentences that carry only a
// time of day.
type ParseFunc func(nowUTC time.Time, fields []string) (Record, error)

// Registration binds a tag to a handler supplied from outside the package.
type Registration struct {
	Tag   string
	Parse ParseFunc
}

// Registry maps sentence tags to handlers. It is never modified after
// NewRegistry returns and may be shared between goroutines.
type Registry struct {
	handlers map[string]ParseFunc
	fallback ParseFunc
}

// Talker prefixes follow what receivers and instrument buses emit in
// practice. Tags are matched exactly; there is no talker normalization.
var builtinHandlers = []struct {
	parse ParseFunc
	tags  []string
}{
	{parseGGA, []string{"GPGGA", "GNGGA"}},
	{parseGLL, []string{"GPGLL", "GNGLL"}},
	{parseGSA, []string{"GPGSA", "GNGSA"}},
	{parseGSV, []string{"GPGSV", "GLGSV", "GAGSV", "GNGSV"}},
	{parseRMC, []string{"GPRMC", "GNRMC"}},
	{parseRTE, []string{"GPRTE"}},
	{parseVTG, []string{"GPVTG", "GNVTG"}},
	{parseHDG, []string{"HCHDG", "IIHDG"}},
	{parseDBT, []string{"SDDBT", "IIDBT"}},
	{parseDPT, []string{"SDDPT", "IIDPT"}},
	{parseMTW, []string{"SDMTW", "IIMTW"}},
	{parseMWT, []string{"SDMWT"}},
}

var defaultRegistry = func() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}()

// DefaultRegistry returns the shared registry of built-in handlers.
func DefaultRegistry() *Registry { return defaultRegistry }

// NewRegistry builds a registry of the built-in handlers plus extra. An
// extra registration replaces the built-in handler of the same tag; the same
// tag twice in extra is an error.
func NewRegistry(extra ...Registration) (*Registry, error) {
	r := &Registry{handlers: make(map[string]ParseFunc), fallback: parseUnknown}
	for _, b := range builtinHandlers {
		for _, tag := range b.tags {
			r.handlers[tag] = b.parse
		}
	}

	seen := make(map[string]bool, len(extra))
	for _, reg := range extra {
		switch {
		case reg.Tag == "":
			return nil, fmt.Errorf("nmea: registration with empty tag")
		case reg.Tag == UnknownTag:
			return nil, fmt.Errorf("nmea: tag %q is reserved for the fallback handler", UnknownTag)
		case reg.Parse == nil:
			return nil, fmt.Errorf("nmea: registration %q has no parse func", reg.Tag)
		case seen[reg.Tag]:
			return nil, fmt.Errorf("nmea: tag %q registered twice", reg.Tag)
		}
		seen[reg.Tag] = true
		r.handlers[reg.Tag] = reg.Parse
	}
	return r, nil
}

// Lookup returns the handler for tag, or the Unknown handler.
func (r *Registry) Lookup(tag string) ParseFunc {
	if fn, ok := r.handlers[tag]; ok {
		return fn
	}
	return r.fallback
}

// Has reports whether tag has its own handler.
func (r *Registry) Has(tag string) bool {
	_, ok := r.handlers[tag]
	return ok
}

// Tags lists the registered tags in sorted order, without the fallback.
func (r *Registry) Tags() []string {
	out := make([]string, 0, len(r.handlers))
	for tag := range r.handlers {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
