package forwarder

import (
	"bufio"
	"net"
	"testing"

	"github.com/firdavsDev/online-cli/internal/proto"
)

// startEchoLocalServer runs a tiny HTTP/1.1 server on an ephemeral port
// that always replies with the given status and body, and reports the port
// used.
func startEchoLocalServer(t *testing.T, status int, body string) (port int, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				br := bufio.NewReader(c)
				if _, err := proto.ReadRequest(br, 1<<20); err != nil {
					return
				}
				bw := bufio.NewWriter(c)
				headers := proto.Headers{}.Add("Content-Type", "text/plain")
				_ = proto.WriteResponse(bw, status, headers, []byte(body))
			}(conn)
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, func() { ln.Close() }
}

func TestCallLocalRoundTripsSuccessfully(t *testing.T) {
	port, stop := startEchoLocalServer(t, 200, "hello from local")
	defer stop()

	f := &Forwarder{LocalHost: "127.0.0.1", LocalPort: port}
	req := proto.Request{
		RequestID: "r1",
		Method:    "GET",
		Path:      "/",
		Headers:   proto.Headers{}.Add("Accept", "*/*"),
		BodyB64:   "",
	}

	resp := f.callLocal(req)
	if resp.Status != 200 {
		t.Fatalf("got status %d want 200", resp.Status)
	}
	body, err := proto.DecodeBody(resp.BodyB64)
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if string(body) != "hello from local" {
		t.Fatalf("got body %q", body)
	}
	if resp.RequestID != "r1" {
		t.Fatalf("got request id %q want r1", resp.RequestID)
	}
}

func TestCallLocalReturns502WhenLocalServiceUnreachable(t *testing.T) {
	// Grab and release a port so nothing is listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	f := &Forwarder{LocalHost: "127.0.0.1", LocalPort: port}
	resp := f.callLocal(proto.Request{RequestID: "r2", Method: "GET", Path: "/"})

	if resp.Status != 502 {
		t.Fatalf("got status %d want 502", resp.Status)
	}
	body, _ := proto.DecodeBody(resp.BodyB64)
	if got := string(body); got == "" {
		t.Fatalf("expected a non-empty error body")
	}
}

func TestCallLocalReturns502OnMalformedRequestBody(t *testing.T) {
	f := &Forwarder{LocalHost: "127.0.0.1", LocalPort: 1}
	resp := f.callLocal(proto.Request{RequestID: "r3", Method: "GET", Path: "/", BodyB64: "not-valid-base64!!"})
	if resp.Status != 502 {
		t.Fatalf("got status %d want 502", resp.Status)
	}
}

func TestDescribeLocalErrorClassifiesKnownMessages(t *testing.T) {
	if got := describeLocalError(&net.OpError{Op: "dial", Err: errText("connection refused")}); got != "connection refused" {
		t.Errorf("got %q want connection refused", got)
	}
	if got := describeLocalError(&net.OpError{Op: "dial", Err: errText("no such host")}); got != "unknown host" {
		t.Errorf("got %q want unknown host", got)
	}
	if got := describeLocalError(&net.OpError{Op: "read", Err: errText("i/o timeout")}); got != "timeout" {
		t.Errorf("got %q want timeout", got)
	}
	if got := describeLocalError(&net.OpError{Op: "dial", Err: errText("something else entirely")}); got == "" {
		t.Errorf("expected a non-empty fallback message")
	}
}

func TestHandleRequestSendsResponseEnvelope(t *testing.T) {
	port, stop := startEchoLocalServer(t, 201, "created")
	defer stop()

	client, server, cleanup := dialWebSocketPair(t)
	defer cleanup()
	_ = server

	f := &Forwarder{LocalHost: "127.0.0.1", LocalPort: port}
	req := proto.Request{RequestID: "r4", Method: "POST", Path: "/things"}

	go f.handleRequest(client, req)

	msgType, raw, err := server.ReadEnvelope()
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if msgType != proto.TypeResponse {
		t.Fatalf("got %q want %q", msgType, proto.TypeResponse)
	}
	var resp proto.Response
	if err := proto.Decode(raw, &resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.RequestID != "r4" || resp.Status != 201 {
		t.Fatalf("got %+v", resp)
	}
}

// errText is a minimal error implementation for constructing net.OpError
// values with a specific message in tests.
type errText string

func (e errText) Error() string { return string(e) }
