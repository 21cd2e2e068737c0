package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fastjson"
)

// listen returns a loopback UDP listener and a config file that points at it.
func listen(t *testing.T, extra string) (net.PacketConn, string) {
	t.Helper()
	clearEnv(t)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	port := conn.LocalAddr().(*net.UDPAddr).Port
	return conn, writeConfig(t, fmt.Sprintf("host: 127.0.0.1\nport: %d\nlocalname: test-host\n%s", port, extra))
}

func readPacket(t *testing.T, conn net.PacketConn) *fastjson.Value {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1<<16)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("no packet received: %v", err)
	}
	v, err := fastjson.ParseBytes(buf[:n])
	if err != nil {
		t.Fatalf("packet is not valid JSON: %v: %q", err, buf[:n])
	}
	return v
}

func TestRun_Args(t *testing.T) {
	conn, path := listen(t, "service: billing\n")

	err := run(context.Background(), []string{"-config", path, "-level", "warn", "disk", "full"}, strings.NewReader(""), io.Discard)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	v := readPacket(t, conn)
	if got := string(v.GetStringBytes("message")); got != "disk full" {
		t.Errorf("unexpected message: %q", got)
	}
	if got := string(v.GetStringBytes("level")); got != "WARN" {
		t.Errorf("unexpected level: %q", got)
	}
	if got := string(v.GetStringBytes("service")); got != "billing" {
		t.Errorf("unexpected service: %q", got)
	}
	if got := string(v.GetStringBytes("logsource")); got != "test-host" {
		t.Errorf("unexpected logsource: %q", got)
	}
	if len(v.GetStringBytes("_run_id")) != 36 {
		t.Errorf("expected a uuid run id, got: %q", v.GetStringBytes("_run_id"))
	}
}

func TestRun_Stdin(t *testing.T) {
	conn, path := listen(t, "")

	err := run(context.Background(), []string{"-config", path}, strings.NewReader("one\n\ntwo\n"), io.Discard)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	first, second := readPacket(t, conn), readPacket(t, conn)
	if string(first.GetStringBytes("message")) != "one" || string(second.GetStringBytes("message")) != "two" {
		t.Fatalf("unexpected messages: %q, %q", first.GetStringBytes("message"), second.GetStringBytes("message"))
	}
	if string(first.GetStringBytes("_run_id")) != string(second.GetStringBytes("_run_id")) {
		t.Fatal("expected one run id for the whole run")
	}
}

func TestRun_DebugLevel(t *testing.T) {
	conn, path := listen(t, "")

	err := run(context.Background(), []string{"-config", path, "-level", "debug", "verbose"}, strings.NewReader(""), io.Discard)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	v := readPacket(t, conn)
	if got := string(v.GetStringBytes("level")); got != "DEBUG" {
		t.Errorf("unexpected level: %q", got)
	}
	if got := v.GetInt("severity"); got != 10 {
		t.Errorf("unexpected severity: %d", got)
	}
}

func TestRun_InvalidLevel(t *testing.T) {
	_, path := listen(t, "")

	if err := run(context.Background(), []string{"-config", path, "-level", "loud", "x"}, strings.NewReader(""), io.Discard); err == nil {
		t.Fatal("expected an error for an invalid level")
	}
}
