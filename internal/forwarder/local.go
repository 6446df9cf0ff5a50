package forwarder

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/firdavsDev/online-cli/internal/proto"
)

// handleRequest issues req against the local service and emits the
// matching Response envelope. It never lets a single request's failure
// propagate — every code path below ends in a WriteEnvelope call.
func (f *Forwarder) handleRequest(conn *proto.Conn, req proto.Request) {
	resp := f.callLocal(req)
	if err := conn.WriteEnvelope(resp); err != nil {
		f.logger().Printf("sending response for %s: %v", req.RequestID, err)
	}
}

func (f *Forwarder) callLocal(req proto.Request) proto.Response {
	body, err := proto.DecodeBody(req.BodyB64)
	if err != nil {
		return errorResponse(req.RequestID, "invalid request body")
	}

	addr := net.JoinHostPort(f.LocalHost, strconv.Itoa(f.LocalPort))

	dialer := net.Dialer{Timeout: LocalRequestTimeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return errorResponse(req.RequestID, describeLocalError(err))
	}
	defer conn.Close()

	deadline := time.Now().Add(LocalRequestTimeout)
	_ = conn.SetDeadline(deadline)

	headers := proto.StripHopByHop(req.Headers).SetSingle("Host", addr)

	bw := bufio.NewWriter(conn)
	if err := proto.WriteRequest(bw, req.Method, req.Path, headers, body); err != nil {
		return errorResponse(req.RequestID, describeLocalError(err))
	}

	br := bufio.NewReader(conn)
	parsed, err := proto.ReadResponse(br, DefaultMaxLocalResponseBytes)
	if err != nil {
		return errorResponse(req.RequestID, describeLocalError(err))
	}

	return proto.Response{
		Type:      proto.TypeResponse,
		RequestID: req.RequestID,
		Status:    parsed.Status,
		Headers:   proto.StripHopByHop(parsed.Headers),
		BodyB64:   proto.EncodeBody(parsed.Body),
	}
}

// DefaultMaxLocalResponseBytes caps how much of the local service's
// response body the forwarder will buffer before giving up.
const DefaultMaxLocalResponseBytes = 16 << 20 // 16 MiB

func errorResponse(requestID, kind string) proto.Response {
	body := []byte(fmt.Sprintf("Local server error: %s", kind))
	return proto.Response{
		Type:      proto.TypeResponse,
		RequestID: requestID,
		Status:    502,
		Headers:   proto.Headers{}.Add("Content-Type", "text/plain; charset=utf-8"),
		BodyB64:   proto.EncodeBody(body),
	}
}

// describeLocalError turns a dial/read/write error into the short kind
// string used in the 502 body ("Local server error: <kind>").
func describeLocalError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection refused"
	case strings.Contains(msg, "no such host"):
		return "unknown host"
	case strings.Contains(msg, "i/o timeout"):
		return "timeout"
	default:
		return msg
	}
}
