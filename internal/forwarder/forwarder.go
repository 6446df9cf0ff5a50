// Package forwarder is the client side of the tunnel: it maintains the
// control channel to the server and, for every inbound Request envelope,
// issues the matching HTTP call against the configured local service.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/firdavsDev/online-cli/internal/proto"
)

// LocalRequestTimeout bounds how long a single local HTTP call may take.
const LocalRequestTimeout = 30 * time.Second

// maxConsecutiveRegisterErrors bounds how many times in a row the server
// may refuse registration (e.g. no_port) before the forwarder gives up
// entirely. This treats "retry indefinitely" and "give up after
// persistent failure" as compatible: a plain network drop resets the counter, but a server that
// keeps actively refusing us is not going to start accepting us by
// retrying faster.
const maxConsecutiveRegisterErrors = 10

// ErrGaveUp is returned by Run when the server has refused registration
// too many times in a row.
var ErrGaveUp = errors.New("forwarder: giving up after repeated registration failures")

// Forwarder holds one client's configuration and connection state.
type Forwarder struct {
	ServerURL  string
	LocalHost  string
	LocalPort  int
	InstanceID string
	Logger     *log.Logger

	// OnRegistered is called with the server-assigned client id and public
	// port every time a Registered envelope arrives, so the caller can
	// print the public URL.
	OnRegistered func(clientID string, publicPort int)
}

func (f *Forwarder) logger() *log.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return log.Default()
}

// Run connects and serves until ctx is cancelled, reconnecting with
// jittered exponential backoff on every transient failure. It returns nil
// on clean shutdown (ctx cancelled) and ErrGaveUp if the server has
// persistently refused registration.
func (f *Forwarder) Run(ctx context.Context) error {
	if _, err := url.Parse(f.ServerURL); err != nil {
		return fmt.Errorf("invalid --server URL: %w", err)
	}

	registerErrors := 0
	backoff := 500 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		f.logger().Printf("connecting to %s...", f.ServerURL)
		gaveUp, err := f.connectAndServe(ctx)
		if gaveUp {
			registerErrors++
			if registerErrors >= maxConsecutiveRegisterErrors {
				return ErrGaveUp
			}
		} else {
			registerErrors = 0
		}

		if err != nil {
			f.logger().Printf("disconnected: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(jitter(backoff)):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// jitter applies +/-25% jitter to d,
func jitter(d time.Duration) time.Duration {
	delta := float64(d) * 0.25
	offset := (rand.Float64()*2 - 1) * delta
	return d + time.Duration(offset)
}

// connectAndServe performs one connection attempt: dial, register, and
// serve until the connection drops. gaveUp is true only when the server
// itself rejected registration with an ErrorFrame.
func (f *Forwarder) connectAndServe(ctx context.Context) (gaveUp bool, err error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, f.ServerURL, nil)
	if err != nil {
		return false, err
	}
	conn := proto.NewConn(ws, proto.DefaultMaxFrameBytes)
	defer conn.Close()

	if err := conn.WriteEnvelope(proto.Register{Type: proto.TypeRegister}); err != nil {
		return false, err
	}

	msgType, raw, err := conn.ReadEnvelope()
	if err != nil {
		return false, err
	}
	switch msgType {
	case proto.TypeRegistered:
		var reg proto.Registered
		if err := proto.Decode(raw, &reg); err != nil {
			return false, err
		}
		if f.OnRegistered != nil {
			f.OnRegistered(reg.ClientID, reg.PublicPort)
		}
	case proto.TypeError:
		var ef proto.ErrorFrame
		_ = proto.Decode(raw, &ef)
		return true, fmt.Errorf("server refused registration: %s: %s", ef.Code, ef.Message)
	default:
		return false, fmt.Errorf("%w: expected registered, got %s", proto.ErrProtocolError, msgType)
	}

	return false, f.serve(ctx, conn)
}

// serve reads envelopes from conn until it errors out or ctx is cancelled.
func (f *Forwarder) serve(ctx context.Context, conn *proto.Conn) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Underlying().WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			conn.Close()
		case <-done:
		}
	}()

	var missedPongs atomic.Int32
	go f.heartbeat(done, conn, &missedPongs)

	for {
		msgType, raw, err := conn.ReadEnvelope()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		switch msgType {
		case proto.TypeRequest:
			var req proto.Request
			if err := proto.Decode(raw, &req); err != nil {
				f.logger().Printf("malformed request envelope: %v", err)
				continue
			}
			go f.handleRequest(conn, req)
		case proto.TypePing:
			_ = conn.WriteEnvelope(proto.Pong{Type: proto.TypePong})
		case proto.TypePong:
			missedPongs.Store(0)
		case proto.TypeError:
			var ef proto.ErrorFrame
			if err := proto.Decode(raw, &ef); err == nil {
				f.logger().Printf("server error: %s: %s", ef.Code, ef.Message)
			}
		default:
			f.logger().Printf("unknown envelope type %q", msgType)
		}
	}
}

// PingInterval mirrors serverapp.PingInterval; kept independent so the
// packages don't need to import each other just for a constant.
const PingInterval = 20 * time.Second

func (f *Forwarder) heartbeat(done <-chan struct{}, conn *proto.Conn, missedPongs *atomic.Int32) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteEnvelope(proto.Ping{Type: proto.TypePing}); err != nil {
				return
			}
			if missedPongs.Add(1) >= 3 {
				conn.Close()
				return
			}
		}
	}
}
