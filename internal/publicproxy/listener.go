// Package publicproxy is the per-session public HTTP listener: it accepts
// arbitrary HTTP/1.1 connections on a session's public port, serializes
// each request onto the control channel, and writes back whatever comes
// out of the request correlation table.
package publicproxy

import (
	"bufio"
	"errors"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/firdavsDev/online-cli/internal/proto"
	"github.com/firdavsDev/online-cli/internal/session"
)

// DefaultMaxRequestBodyBytes caps how large a public request body may be
// before it is rejected with 413.
const DefaultMaxRequestBodyBytes = 16 << 20 // 16 MiB

// Options configures Serve.
type Options struct {
	MaxRequestBodyBytes int64
	RequestTimeout      time.Duration
	Logger              *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxRequestBodyBytes <= 0 {
		o.MaxRequestBodyBytes = DefaultMaxRequestBodyBytes
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Serve runs the accept loop for sess's public listener until it is closed
// (by Manager.Close tearing down the session, or by an unrecoverable
// Accept error). It returns once the listener is no longer accepting.
func Serve(sess *session.Session, mgr *session.Manager, opts Options) {
	opts = opts.withDefaults()

	for {
		conn, err := sess.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-sess.Done():
				return
			default:
			}
			opts.Logger.Printf("[%s] accept error: %v", sess.ClientID, err)
			continue
		}
		go handleConn(conn, sess, mgr, opts)
	}
}

func handleConn(conn net.Conn, sess *session.Session, mgr *session.Manager, opts Options) {
	defer conn.Close()

	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	parsed, err := proto.ReadRequest(br, opts.MaxRequestBodyBytes)
	if err != nil {
		writeError(bw, statusForParseError(err))
		return
	}

	sess.Touch()
	mgr.Hooks.NotifyRequest(sess.ClientID)

	headers := proto.StripHopByHop(parsed.Headers)
	requestID := uuid.NewString()

	waiter := sess.Pending.Insert(requestID, opts.RequestTimeout)
	if waiter == nil {
		// Session is already draining/closed: fail fast rather than insert
		// into a table that will never be completed.
		writeError(bw, 502)
		return
	}

	req := proto.Request{
		Type:      proto.TypeRequest,
		RequestID: requestID,
		Method:    parsed.Method,
		Path:      parsed.Path,
		Headers:   headers,
		BodyB64:   proto.EncodeBody(parsed.Body),
	}
	if err := sess.Conn.WriteEnvelope(req); err != nil {
		sess.Pending.Cancel(requestID, proto.ErrSessionClosed)
		writeError(bw, 502)
		return
	}

	result := waiter.Recv()
	if result.Err != nil {
		writeError(bw, statusForWaitError(result.Err))
		return
	}

	respHeaders := proto.StripHopByHop(result.Headers).SetSingle("Connection", "close")
	if err := proto.WriteResponse(bw, result.Status, respHeaders, result.Body); err != nil {
		opts.Logger.Printf("[%s] writing public response: %v", sess.ClientID, err)
	}
}

func statusForParseError(err error) int {
	switch {
	case errors.Is(err, proto.ErrPayloadTooLarge):
		return 413
	default:
		return 400
	}
}

func statusForWaitError(err error) int {
	switch {
	case errors.Is(err, proto.ErrUpstreamTimeout):
		return 504
	default:
		return 502
	}
}

func writeError(bw *bufio.Writer, status int) {
	body := []byte(statusBody(status))
	headers := proto.Headers{}.
		Add("Content-Type", "text/plain; charset=utf-8").
		Add("Connection", "close")
	_ = proto.WriteResponse(bw, status, headers, body)
}

func statusBody(status int) string {
	switch status {
	case 400:
		return "Bad Request"
	case 413:
		return "Payload Too Large"
	case 502:
		return "Bad Gateway"
	case 504:
		return "Gateway Timeout"
	default:
		return "Error"
	}
}
