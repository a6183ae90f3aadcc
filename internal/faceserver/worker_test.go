package faceserver

import (
	"net"
	"testing"

	"github.com/danmuck/faceguard/internal/stats"
	"github.com/danmuck/faceguard/internal/testutil/testlog"
	"github.com/danmuck/faceguard/internal/wire"
)

func newTestServer(maxImageBytes uint32) *Server {
	return New(Config{
		MaxConnections: 0,
		MaxImageBytes:  maxImageBytes,
		PrefixResponse: []byte("canned-response-bytes"),
	}, nil, stats.New())
}

func readErrorResponse(t *testing.T, conn net.Conn) string {
	t.Helper()
	if err := wire.ReadMagic(conn); err != nil {
		t.Fatalf("ReadMagic: %v", err)
	}
	op, err := wire.ReadOp(conn)
	if err != nil {
		t.Fatalf("ReadOp: %v", err)
	}
	if op != wire.OpError {
		t.Fatalf("op = %v, want OpError", op)
	}
	n, err := wire.ReadLen(conn)
	if err != nil {
		t.Fatalf("ReadLen: %v", err)
	}
	payload, err := wire.ReadPayload(conn, n)
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	return string(payload)
}

func TestServeOneRequestBadMagicStreamsPrefixResponse(t *testing.T) {
	testlog.Start(t)
	srv := newTestServer(1024)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		client.Write([]byte{0x00, 0x00, 0x00, 0x00})
	}()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, len("canned-response-bytes"))
		readFull(client, buf)
		done <- buf
	}()

	cont := srv.serveOneRequest(server)
	if cont {
		t.Fatal("serveOneRequest should not continue after bad magic")
	}
	if got := <-done; string(got) != "canned-response-bytes" {
		t.Fatalf("prefix response = %q", got)
	}
	if srv.stats.Snapshot().MalformedRequests != 1 {
		t.Fatal("MalformedRequests should be 1")
	}
}

func TestServeOneRequestUnknownOp(t *testing.T) {
	srv := newTestServer(1024)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		m := wire.EncodeMagic()
		client.Write(m[:])
		client.Write([]byte{7})
	}()

	result := make(chan string, 1)
	go func() { result <- readErrorResponse(t, client) }()

	if cont := srv.serveOneRequest(server); cont {
		t.Fatal("serveOneRequest should not continue after unknown op")
	}
	if got := <-result; got != "invalid operation type" {
		t.Fatalf("payload = %q", got)
	}
}

func TestServeOneRequestZeroLengthImage(t *testing.T) {
	srv := newTestServer(1024)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		m := wire.EncodeMagic()
		client.Write(m[:])
		client.Write([]byte{byte(wire.OpDetect)})
		l := wire.EncodeLen(0)
		client.Write(l[:])
	}()

	result := make(chan string, 1)
	go func() { result <- readErrorResponse(t, client) }()

	if cont := srv.serveOneRequest(server); cont {
		t.Fatal("serveOneRequest should not continue after zero-length image")
	}
	if got := <-result; got != "image is 0 bytes" {
		t.Fatalf("payload = %q", got)
	}
}

func TestServeOneRequestOversizeImage(t *testing.T) {
	srv := newTestServer(1024)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		m := wire.EncodeMagic()
		client.Write(m[:])
		client.Write([]byte{byte(wire.OpDetect)})
		l := wire.EncodeLen(2000)
		client.Write(l[:])
	}()

	result := make(chan string, 1)
	go func() { result <- readErrorResponse(t, client) }()

	if cont := srv.serveOneRequest(server); cont {
		t.Fatal("serveOneRequest should not continue after oversize image")
	}
	if got := <-result; got != "image too large" {
		t.Fatalf("payload = %q", got)
	}
}

// readFull is a tiny local helper so this file does not need to import "io"
// solely for one call.
func readFull(conn net.Conn, buf []byte) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			return
		}
	}
}
