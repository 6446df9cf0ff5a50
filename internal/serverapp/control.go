package serverapp

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/firdavsDev/online-cli/internal/proto"
	"github.com/firdavsDev/online-cli/internal/publicproxy"
	"github.com/firdavsDev/online-cli/internal/session"
)

// PingInterval is how often the server sends a heartbeat Ping down an
// idle control channel.
const PingInterval = 20 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS accepts a WebSocket upgrade on any path, requires the first
// frame to be Register, and on success spins up the public listener and
// control-read loop for the new session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	conn := proto.NewConn(ws, s.cfg.MaxFrameBytes)

	msgType, raw, err := conn.ReadEnvelope()
	if err != nil || msgType != proto.TypeRegister {
		s.logger.Printf("handshake failed: %v", firstNonNil(err, errProtocolMismatch(msgType)))
		_ = conn.WriteEnvelope(proto.ErrorFrame{
			Type:    proto.TypeError,
			Code:    proto.CodeProtocolError,
			Message: "first frame must be register",
		})
		conn.Close()
		return
	}
	var reg proto.Register
	if err := proto.Decode(raw, &reg); err != nil {
		conn.Close()
		return
	}

	sess, err := s.manager.Register(conn)
	if err != nil {
		code := proto.CodeFor(err)
		_ = conn.WriteEnvelope(proto.ErrorFrame{Type: proto.TypeError, Code: code, Message: err.Error()})
		conn.Close()
		s.logger.Printf("registration failed: %v", err)
		return
	}

	opts := publicproxy.Options{
		MaxRequestBodyBytes: s.cfg.MaxRequestBody,
		RequestTimeout:      s.cfg.RequestTimeout,
		Logger:              s.logger,
	}
	go publicproxy.Serve(sess, s.manager, opts)
	go s.heartbeat(sess)
	s.readLoop(sess)
}

func errProtocolMismatch(msgType string) error {
	if msgType == "" {
		return nil
	}
	return errors.New("expected register, got " + msgType)
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return errors.New("unknown handshake failure")
}

// readLoop owns sess.Conn's read side for its entire lifetime. It exits,
// and closes the session, on any I/O error, protocol error, or explicit
// heartbeat loss.
func (s *Server) readLoop(sess *session.Session) {
	var closeErr error
	defer func() { s.manager.Close(sess.ClientID, closeErr) }()

	for {
		msgType, raw, err := sess.Conn.ReadEnvelope()
		if err != nil {
			closeErr = err
			return
		}
		sess.Touch()

		switch msgType {
		case proto.TypeResponse:
			s.handleResponse(sess, raw)
		case proto.TypePing:
			_ = sess.Conn.WriteEnvelope(proto.Pong{Type: proto.TypePong})
		case proto.TypePong:
			sess.RecordPong()
		case proto.TypeError:
			var ef proto.ErrorFrame
			if err := proto.Decode(raw, &ef); err == nil {
				s.logger.Printf("[%s] client error: %s: %s", sess.ClientID, ef.Code, ef.Message)
			}
		default:
			// Unknown envelope types are logged and skipped for forward
			// compatibility.
			s.logger.Printf("[%s] unknown envelope type %q", sess.ClientID, msgType)
		}
	}
}

func (s *Server) handleResponse(sess *session.Session, raw []byte) {
	var resp proto.Response
	if err := proto.Decode(raw, &resp); err != nil {
		s.logger.Printf("[%s] malformed response envelope: %v", sess.ClientID, err)
		return
	}

	body, err := proto.DecodeBody(resp.BodyB64)
	if err != nil {
		sess.Pending.Cancel(resp.RequestID, proto.ErrProtocolError)
		return
	}
	sess.Pending.Complete(resp.RequestID, resp.Status, resp.Headers, body)
}

// heartbeat sends a Ping every PingInterval and closes the session if three
// consecutive pings go unanswered.
func (s *Server) heartbeat(sess *session.Session) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.Done():
			return
		case <-ticker.C:
			if err := sess.Conn.WriteEnvelope(proto.Ping{Type: proto.TypePing}); err != nil {
				return
			}
			if sess.RecordPing() > 3 {
				s.manager.Close(sess.ClientID, proto.ErrHeartbeatLost)
				return
			}
		}
	}
}
