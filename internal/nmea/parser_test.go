package nmea

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var sampleLines = []string{
	ggaSample,
	"$GPGLL,3545.2764,N,07849.2324,W,002732,A,D*51",
	"$HCHDG,278.4,,,8.7,W*3D",
	"$SDDBT,,f,,M,,F*28",
	"$SDDPT,3.0,0.0*54",
	"$SDMTW,26.6,C*06",
	"$GPVTG,186.3,T,195.0,M,0.0,N,0.0,K,D*27",
	"$GPRTE,2,1,c,0,PBRCPK,PBRTO,PTELGR*37",
	"$GPGSV,3,1,12,10,35,045,00,26,22,161,00,15,17,182,00*45",
	nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
	nmeaLine("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1"),
	nmeaLine("SDMWT,80.1,F"),
	nmeaLine("ZZXYZ,1,,abc"),
}

func TestParse_Deterministic(t *testing.T) {
	p := testParser()
	for _, line := range sampleLines {
		a, err := p.Parse(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		b, err := p.Parse(line)
		if err != nil {
			t.Fatalf("reparse %q: %v", line, err)
		}
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("%q differs between runs (-first +second):\n%s", line, diff)
		}
	}
}

func TestParse_KindMatchesTag(t *testing.T) {
	p := testParser()
	for _, line := range sampleLines {
		rec, err := p.Parse(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		tag := strings.SplitN(line[1:], ",", 2)[0]
		if rec.Kind() == KindUnknown {
			if DefaultRegistry().Has(tag) {
				t.Fatalf("%s fell back to Unknown", tag)
			}
			continue
		}
		if !strings.HasSuffix(tag, string(rec.Kind())) {
			t.Fatalf("tag %s produced %s", tag, rec.Kind())
		}
	}
}

func TestParseSentence(t *testing.T) {
	p := testParser()
	s, rec, err := p.ParseSentence(ggaSample + "\r\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Tag != "GPGGA" || s.Line != ggaSample || len(s.Fields) != 15 {
		t.Fatalf("sentence=%+v", s)
	}
	if rec.Kind() != KindGGA {
		t.Fatalf("kind=%s", rec.Kind())
	}

	s, rec, err = p.ParseSentence(nmeaLine("GPGGA,,3545.2764,N,07849.2324,W,2,08,1.2,136.1,M,-33.7,M,,"))
	if err == nil || rec != nil {
		t.Fatalf("expected handler error, rec=%v", rec)
	}
	if s.Tag != "GPGGA" {
		t.Fatalf("sentence should survive handler failure: %+v", s)
	}

	s, _, err = p.ParseSentence("$GPGGA,1,2*00")
	if !errors.Is(err, ErrChecksum) || s.Tag != "" {
		t.Fatalf("err=%v sentence=%+v", err, s)
	}
}

func TestDispatch_FanOut(t *testing.T) {
	p := testParser(WithEvents(true))

	var order []string
	p.Subscribe("GPGGA", func(m Message) error {
		order = append(order, "gga:"+m.Sentence.Tag)
		return nil
	})
	p.SubscribeAll(func(m Message) error {
		order = append(order, "all:"+string(m.Record.Kind()))
		return nil
	})

	if _, err := p.Dispatch(ggaSample); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := p.Dispatch("$HCHDG,278.4,,,8.7,W*3D"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	want := []string{"gga:GPGGA", "all:GGA", "all:HDG"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("delivery order (-want +got):\n%s", diff)
	}
}

func TestDispatch_NoEventsByDefault(t *testing.T) {
	p := testParser()
	p.SubscribeAll(func(Message) error {
		t.Fatalf("subscriber called with events disabled")
		return nil
	})
	if _, err := p.Dispatch(ggaSample); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}

func TestDispatch_ParseErrorSkipsSubscribers(t *testing.T) {
	p := testParser(WithEvents(true))
	p.SubscribeAll(func(Message) error {
		t.Fatalf("subscriber called for a rejected line")
		return nil
	})
	if _, err := p.Dispatch(ggaSample[:len(ggaSample)-2] + "00"); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err=%v", err)
	}
}

func TestDispatch_SubscriberFailuresAreIsolated(t *testing.T) {
	boom := errors.New("boom")
	var reported []error
	p := testParser(WithEvents(true), WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))

	p.SubscribeAll(func(Message) error { return boom })
	p.SubscribeAll(func(Message) error { panic("bad subscriber") })
	reached := false
	p.SubscribeAll(func(Message) error {
		reached = true
		return nil
	})

	rec, err := p.Dispatch(ggaSample)
	if err != nil || rec == nil {
		t.Fatalf("dispatch: rec=%v err=%v", rec, err)
	}
	if !reached {
		t.Fatalf("later subscriber not reached")
	}
	if len(reported) != 1 {
		t.Fatalf("reported=%v", reported)
	}
	if !errors.Is(reported[0], boom) {
		t.Fatalf("reported error lost the cause: %v", reported[0])
	}
	if !strings.Contains(reported[0].Error(), "panicked") {
		t.Fatalf("panic not reported: %v", reported[0])
	}
}

func TestUnsubscribe(t *testing.T) {
	p := testParser(WithEvents(true))
	calls := 0
	id := p.SubscribeAll(func(Message) error {
		calls++
		return nil
	})
	if _, err := p.Dispatch(ggaSample); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !p.Unsubscribe(id) {
		t.Fatalf("unsubscribe returned false")
	}
	if p.Unsubscribe(id) {
		t.Fatalf("second unsubscribe returned true")
	}
	if _, err := p.Dispatch(ggaSample); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestParser_ConcurrentUse(t *testing.T) {
	p := testParser(WithEvents(true))
	var mu sync.Mutex
	seen := 0
	p.SubscribeAll(func(Message) error {
		mu.Lock()
		seen++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, line := range sampleLines {
				if _, err := p.Dispatch(line); err != nil {
					t.Errorf("dispatch %q: %v", line, err)
				}
			}
		}()
	}
	wg.Wait()
	if seen != 8*len(sampleLines) {
		t.Fatalf("seen=%d want %d", seen, 8*len(sampleLines))
	}
}
