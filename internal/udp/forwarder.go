// Package udp forwards validated NMEA sentences over UDP, the way chart
// plotters and tablet apps expect them (one sentence per datagram, CRLF
// terminated, usually to port 10110).
package udp

import (
	"fmt"
	"net"
	"sync"

	"nmea-ng/internal/nmea"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

type Forwarder struct {
	dest string

	mu     sync.Mutex
	conn   udpConn
	sent   uint64
	failed uint64
}

func NewForwarder(dest string) (*Forwarder, error) {
	return newForwarder(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		// DialUDP selects a suitable local address automatically.
		return net.DialUDP(network, laddr, raddr)
	})
}

func newForwarder(dest string, resolve resolveFunc, dial dialFunc) (*Forwarder, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Forwarder{dest: dest, conn: conn}, nil
}

func (f *Forwarder) Dest() string { return f.dest }

// Handle sends the sentence line of msg. It is meant to be registered with
// Parser.SubscribeAll.
func (f *Forwarder) Handle(msg nmea.Message) error {
	if msg.Sentence.Line == "" {
		return nil
	}
	return f.Send([]byte(msg.Sentence.Line + "\r\n"))
}

func (f *Forwarder) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("udp forwarder to %s is closed", f.dest)
	}
	if _, err := f.conn.Write(payload); err != nil {
		f.failed++
		return err
	}
	f.sent++
	return nil
}

// Stats returns the number of datagrams sent and failed.
func (f *Forwarder) Stats() (sent, failed uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent, f.failed
}

func (f *Forwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}
