// Package sink publishes parsed sentences to message brokers. Every sink
// exposes Handle(nmea.Message) error so it can be registered with
// Parser.SubscribeAll.
package sink

import (
	"encoding/json"

	"nmea-ng/internal/nmea"
)

// Payload is the JSON document published for each sentence.
type Payload struct {
	Tag    string      `json:"tag"`
	Kind   nmea.Kind   `json:"kind"`
	Line   string      `json:"line"`
	Record nmea.Record `json:"record"`
}

func Encode(msg nmea.Message) ([]byte, error) {
	p := Payload{Tag: msg.Sentence.Tag, Line: msg.Sentence.Line, Record: msg.Record}
	if msg.Record != nil {
		p.Kind = msg.Record.Kind()
	}
	return json.Marshal(p)
}
