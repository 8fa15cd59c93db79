package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"nmea-ng/internal/nmea"
)

type fakeConn struct {
	writes    [][]byte
	writeErr  error
	closed    bool
	closeErr  error
	writeHits int
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.writeHits++
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	cp := append([]byte(nil), p...)
	c.writes = append(c.writes, cp)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return c.closeErr
}

const hdgLine = "$HCHDG,278.4,,,8.7,W*3D"

func TestNewForwarder_DialsResolvedAddr(t *testing.T) {
	var gotNetwork string
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}

	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		gotNetwork = network
		gotRaddr = raddr
		return fc, nil
	}

	f, err := newForwarder("127.0.0.1:10110", net.ResolveUDPAddr, dial)
	if err != nil {
		t.Fatalf("newForwarder() error: %v", err)
	}
	defer f.Close()

	if gotNetwork != "udp" {
		t.Fatalf("network=%q want %q", gotNetwork, "udp")
	}
	if gotRaddr == nil || gotRaddr.Port != 10110 || !gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("raddr=%v want 127.0.0.1:10110", gotRaddr)
	}
}

func TestNewForwarder_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("nope")
	resolve := func(network, address string) (*net.UDPAddr, error) {
		return nil, resolveErr
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return &fakeConn{}, nil
	}

	_, err := newForwarder("bad:addr", resolve, dial)
	if !errors.Is(err, resolveErr) {
		t.Fatalf("err=%v want %v", err, resolveErr)
	}
}

func TestForwarder_Handle_WritesLineWithCRLF(t *testing.T) {
	fc := &fakeConn{}
	f := &Forwarder{dest: "x", conn: fc}

	if err := f.Handle(nmea.Message{Sentence: nmea.RawSentence{Line: hdgLine, Tag: "HCHDG"}}); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if len(fc.writes) != 1 || string(fc.writes[0]) != hdgLine+"\r\n" {
		t.Fatalf("writes=%q", fc.writes)
	}
	if sent, failed := f.Stats(); sent != 1 || failed != 0 {
		t.Fatalf("stats=%d/%d", sent, failed)
	}
}

func TestForwarder_Handle_EmptyNoWrite(t *testing.T) {
	fc := &fakeConn{}
	f := &Forwarder{dest: "x", conn: fc}

	if err := f.Handle(nmea.Message{}); err != nil {
		t.Fatalf("Handle(empty) error: %v", err)
	}
	if err := f.Send(nil); err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	if fc.writeHits != 0 {
		t.Fatalf("expected no writes, got %d", fc.writeHits)
	}
}

func TestForwarder_Send_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	fc := &fakeConn{writeErr: wantErr}
	f := &Forwarder{dest: "x", conn: fc}

	if err := f.Send([]byte{0x01}); !errors.Is(err, wantErr) {
		t.Fatalf("err=%v want %v", err, wantErr)
	}
	if _, failed := f.Stats(); failed != 1 {
		t.Fatalf("failed=%d want 1", failed)
	}
}

func TestForwarder_CloseThenSend(t *testing.T) {
	fc := &fakeConn{}
	f := &Forwarder{dest: "x", conn: fc}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !fc.closed {
		t.Fatalf("conn not closed")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if err := f.Send([]byte("x")); err == nil {
		t.Fatalf("expected error after close")
	}
}

func TestForwarder_RealSocket(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error: %v", err)
	}
	defer pc.Close()

	f, err := NewForwarder(pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewForwarder() error: %v", err)
	}
	defer f.Close()

	p := nmea.NewParser(nil, nmea.WithEvents(true))
	p.SubscribeAll(f.Handle)
	if _, err := p.Dispatch(hdgLine); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error: %v", err)
	}
	if string(buf[:n]) != hdgLine+"\r\n" {
		t.Fatalf("datagram=%q", buf[:n])
	}
}
