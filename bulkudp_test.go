package bulkudp

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"testing"

	"github.com/valyala/fastjson"
)

const testHost = "127.0.0.1"

// testSink is a Sink that records every packet rather than sending it.
type testSink struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
}

func newTestSink() *testSink {
	return &testSink{packets: make([][]byte, 0)}
}

func (s *testSink) Send(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets = append(s.packets, bytes.Clone(p))
	return s.err
}

func (s *testSink) Shutdown(ctx context.Context) error {
	return nil
}

func (s *testSink) last(t *testing.T) []byte {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.packets) == 0 {
		t.Fatal("no packets were sent")
	}
	return s.packets[len(s.packets)-1]
}

func (s *testSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packets)
}

// packet is a decoded packet, with its keys in the order they were sent.
type packet struct {
	raw    []byte
	keys   []string
	values map[string]*fastjson.Value
}

// parsePacket fails the test unless p is one JSON object terminated by a
// newline.
func parsePacket(t *testing.T, p []byte) *packet {
	t.Helper()

	if !bytes.HasSuffix(p, []byte("}\n")) {
		t.Fatalf("packet does not end with \"}\\n\": %q", p)
	}

	var parser fastjson.Parser
	v, err := parser.ParseBytes(p)
	if err != nil {
		t.Fatalf("packet is not valid JSON: %v: %q", err, p)
	}
	o, err := v.Object()
	if err != nil {
		t.Fatalf("packet is not a JSON object: %v: %q", err, p)
	}

	pkt := &packet{raw: p, values: make(map[string]*fastjson.Value)}
	o.Visit(func(key []byte, v *fastjson.Value) {
		pkt.keys = append(pkt.keys, string(key))
		pkt.values[string(key)] = v
	})
	return pkt
}

func (p *packet) has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// str returns the string value of key, failing the test if it is missing or
// not a string.
func (p *packet) str(t *testing.T, key string) string {
	t.Helper()
	v, ok := p.values[key]
	if !ok {
		t.Fatalf("missing field %q in %s", key, p.raw)
	}
	b, err := v.StringBytes()
	if err != nil {
		t.Fatalf("field %q is not a string: %v", key, err)
	}
	return string(b)
}

// json returns the JSON text of the value of key.
func (p *packet) json(t *testing.T, key string) string {
	t.Helper()
	v, ok := p.values[key]
	if !ok {
		t.Fatalf("missing field %q in %s", key, p.raw)
	}
	return v.String()
}

// testServer receives datagrams on a loopback UDP port.
type testServer struct {
	conn      net.PacketConn
	port      int
	packetCh  chan []byte
	closeOnce sync.Once
	verbose   bool
}

func newTestServer(verbose bool) (*testServer, error) {

	// assign port dynamically (use port 0 to assign dynamically)
	conn, err := net.ListenPacket("udp", testHost+":0")
	if err != nil {
		return nil, fmt.Errorf("failed to start test server listener: %v", err)
	}

	s := &testServer{
		conn:     conn,
		port:     conn.LocalAddr().(*net.UDPAddr).Port,
		packetCh: make(chan []byte, 128),
		verbose:  verbose,
	}

	go func() {
		s.debug("starting listener on port %d", s.port)
		buf := make([]byte, 1<<16)
		for {
			n, _, err := conn.ReadFrom(buf)
			if err != nil {
				s.debug("listener stopped: %v", err)
				close(s.packetCh)
				return
			}
			s.packetCh <- bytes.Clone(buf[:n])
		}
	}()

	return s, nil
}

func (s *testServer) Shutdown() {
	s.closeOnce.Do(func() { s.conn.Close() })
}

func (s *testServer) debug(format string, args ...any) {
	if !s.verbose {
		return
	}
	InternalLogger().Printf("testServer: "+format, args...)
}

// captureInternalLogs redirects the internal logger to a buffer for the
// duration of the test.
func captureInternalLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	prev := InternalLogger()
	SetInternalLogger(log.New(buf, "", 0))
	t.Cleanup(func() { SetInternalLogger(prev) })
	return buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
