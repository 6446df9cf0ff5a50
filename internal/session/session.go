// Package session owns the server-side per-client Session table: control
// channel, public listener, and request correlation table lifecycle.
package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/firdavsDev/online-cli/internal/correlate"
	"github.com/firdavsDev/online-cli/internal/proto"
)

// State is a Session's position in its lifecycle state machine.
type State int32

const (
	Registering State = iota
	Active
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Registering:
		return "registering"
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one connected client: its control channel, its public
// listener, and its in-flight request table.
type Session struct {
	ClientID   string
	Conn       *proto.Conn
	PublicPort int
	Listener   net.Listener
	Pending    *correlate.Table

	CreatedAt time.Time

	state        atomic.Int32
	lastActivity atomic.Int64 // unix nanos

	missedPongs atomic.Int32

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(clientID string, conn *proto.Conn, port int, ln net.Listener) *Session {
	s := &Session{
		ClientID:   clientID,
		Conn:       conn,
		PublicPort: port,
		Listener:   ln,
		Pending:    correlate.New(),
		CreatedAt:  time.Now(),
		closed:     make(chan struct{}),
	}
	s.state.Store(int32(Registering))
	s.Touch()
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Touch records activity, used to drive last_activity_at for introspection.
func (s *Session) Touch() { s.lastActivity.Store(time.Now().UnixNano()) }

// LastActivity returns the time of the most recent recorded activity.
func (s *Session) LastActivity() time.Time { return time.Unix(0, s.lastActivity.Load()) }

// RecordPing marks that a ping was sent without a matching pong yet.
// Returns the number of pings sent since the last pong, this one included,
// used by the heartbeat monitor to decide whether to close the session:
// once three earlier pings have gone unanswered (a count above three) it
// closes the channel with a heartbeat-lost error.
func (s *Session) RecordPing() int32 { return s.missedPongs.Add(1) }

// RecordPong resets the missed-pong counter.
func (s *Session) RecordPong() { s.missedPongs.Store(0) }

// Done returns a channel closed once the session transitions to Closed.
func (s *Session) Done() <-chan struct{} { return s.closed }
