package nmea

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Message is delivered to subscribers for every parsed sentence.
type Message struct {
	Sentence RawSentence
	Record   Record
}

// Subscriber receives parsed sentences. A returned error (or panic) is
// reported through the parser's error handler; it neither stops delivery to
// the remaining subscribers nor fails the dispatch.
type Subscriber func(Message) error

type Option func(*Parser)

// WithEvents turns subscriber delivery on or off. It is off by default.
func WithEvents(enable bool) Option {
	return func(p *Parser) { p.events = enable }
}

// WithClock sets the source of the reference date for time-only sentences.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithErrorHandler receives subscriber failures. The default logs them.
func WithErrorHandler(fn func(error)) Option {
	return func(p *Parser) { p.onError = fn }
}

type subscription struct {
	id  string
	tag string // empty for all tags
	fn  Subscriber
}

// Parser turns lines into records. Each call is synchronous: the line is
// validated, parsed and fanned out to subscribers before Dispatch returns.
// A Parser is safe for concurrent use.
type Parser struct {
	reg     *Registry
	events  bool
	now     func() time.Time
	onError func(error)

	mu   sync.RWMutex
	subs []subscription
}

// NewParser returns a parser over reg, or over DefaultRegistry when reg is
// nil.
func NewParser(reg *Registry, opts ...Option) *Parser {
	if reg == nil {
		reg = DefaultRegistry()
	}
	p := &Parser{
		reg: reg,
		now: time.Now,
		onError: func(err error) {
			log.Printf("subscriber failed: %v", err)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Registry() *Registry { return p.reg }

// Parse validates and decodes line without notifying subscribers.
func (p *Parser) Parse(line string) (Record, error) {
	_, rec, err := p.parse(line)
	return rec, err
}

// ParseSentence is Parse that also returns the validated sentence. The
// sentence is set whenever the line passed the checksum, even if the
// handler then failed.
func (p *Parser) ParseSentence(line string) (RawSentence, Record, error) {
	return p.parse(line)
}

// Dispatch decodes line and, when events are enabled, hands the record to
// the subscribers of its tag and to catch-all subscribers in the order they
// subscribed.
func (p *Parser) Dispatch(line string) (Record, error) {
	s, rec, err := p.parse(line)
	if err != nil {
		return nil, err
	}
	if p.events {
		p.notify(Message{Sentence: s, Record: rec})
	}
	return rec, nil
}

func (p *Parser) parse(line string) (RawSentence, Record, error) {
	s, err := Split(line)
	if err != nil {
		return RawSentence{}, nil, err
	}
	rec, err := p.reg.Lookup(s.Tag)(p.now().UTC(), s.Fields)
	if err != nil {
		return s, nil, &ParserError{Tag: s.Tag, Err: err}
	}
	return s, rec, nil
}

// Subscribe registers fn for sentences with exactly this tag and returns
// the subscription id.
func (p *Parser) Subscribe(tag string, fn Subscriber) string {
	return p.subscribe(tag, fn)
}

// SubscribeAll registers fn for every parsed sentence, unknown tags
// included.
func (p *Parser) SubscribeAll(fn Subscriber) string {
	return p.subscribe("", fn)
}

func (p *Parser) subscribe(tag string, fn Subscriber) string {
	id := uuid.NewString()
	p.mu.Lock()
	p.subs = append(p.subs, subscription{id: id, tag: tag, fn: fn})
	p.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription and reports whether it existed.
func (p *Parser) Unsubscribe(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subs {
		if s.id == id {
			p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Parser) notify(msg Message) {
	p.mu.RLock()
	targets := make([]subscription, 0, len(p.subs))
	for _, s := range p.subs {
		if s.tag == "" || s.tag == msg.Sentence.Tag {
			targets = append(targets, s)
		}
	}
	p.mu.RUnlock()

	var errs error
	for _, s := range targets {
		errs = multierr.Append(errs, deliver(s, msg))
	}
	if errs != nil && p.onError != nil {
		p.onError(errs)
	}
}

func deliver(s subscription, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber %s (%s) panicked: %v", s.id, msg.Sentence.Tag, r)
		}
	}()
	if ferr := s.fn(msg); ferr != nil {
		return fmt.Errorf("subscriber %s (%s): %w", s.id, msg.Sentence.Tag, ferr)
	}
	return nil
}
