package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firdavsDev/online-cli/internal/hooks"
	"github.com/firdavsDev/online-cli/internal/portpool"
	"github.com/firdavsDev/online-cli/internal/proto"
)

// Info is a point-in-time snapshot of a Session, used by List and the
// server's introspection endpoint.
type Info struct {
	ClientID     string    `json:"client_id"`
	PublicPort   int       `json:"public_port"`
	State        string    `json:"state"`
	Pending      int       `json:"pending"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity_at"`
}

// Manager owns the client_id -> Session table. It is a process-wide
// singleton in practice; nothing about it prevents
// constructing more than one for tests.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	Ports          *portpool.Pool
	Hooks          *hooks.Pipeline
	MaxClients     int // 0 = unlimited
	ListenHost     string
	RequestTimeout time.Duration
	MaxFrameBytes  int64
}

// NewManager constructs a Manager over the given port pool.
func NewManager(ports *portpool.Pool) *Manager {
	return &Manager{
		sessions:       make(map[string]*Session),
		Ports:          ports,
		Hooks:          &hooks.Pipeline{},
		RequestTimeout: 30 * time.Second,
		MaxFrameBytes:  proto.DefaultMaxFrameBytes,
	}
}

// Register allocates a port, opens the public listener, and creates a new
// Active session for conn. On any failure the port (if allocated) is
// released and the listener (if opened) is closed before returning.
func (m *Manager) Register(conn *proto.Conn) (*Session, error) {
	m.mu.Lock()
	if m.MaxClients > 0 && len(m.sessions) >= m.MaxClients {
		m.mu.Unlock()
		return nil, proto.ErrNoPortAvailable
	}
	m.mu.Unlock()

	port, err := m.Ports.Allocate()
	if err != nil {
		return nil, err
	}

	host := m.ListenHost
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		m.Ports.Release(port)
		return nil, fmt.Errorf("%w: %v", proto.ErrBindFailed, err)
	}

	clientID := uuid.NewString()
	sess := newSession(clientID, conn, port, ln)

	m.mu.Lock()
	m.sessions[clientID] = sess
	m.mu.Unlock()

	if err := conn.WriteEnvelope(proto.Registered{
		Type:       proto.TypeRegistered,
		ClientID:   clientID,
		PublicPort: port,
	}); err != nil {
		m.Close(clientID, err)
		return nil, err
	}

	sess.setState(Active)
	m.Hooks.NotifyConnect(clientID, port)
	return sess, nil
}

// Lookup returns the session for clientID, or nil if none is registered.
func (m *Manager) Lookup(clientID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[clientID]
}

// Close transitions a session Active/Registering -> Draining -> Closed:
// it closes the listener, fails every pending waiter with reason, releases
// the port, and drops the session from the table. Safe to call
// concurrently and more than once; only the first call performs the
// transition.
func (m *Manager) Close(clientID string, reason error) {
	m.mu.Lock()
	sess, ok := m.sessions[clientID]
	if ok {
		delete(m.sessions, clientID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	sess.closeOnce.Do(func() {
		sess.setState(Draining)

		_ = sess.Listener.Close()

		failReason := reason
		if failReason == nil {
			failReason = proto.ErrSessionClosed
		}
		sess.Pending.FailAll(failReason)

		m.Ports.Release(sess.PublicPort)

		sess.setState(Closed)
		close(sess.closed)

		m.Hooks.NotifyDisconnect(clientID, reason)
	})
}

// List returns a snapshot of every currently-registered session, in no
// particular order.
func (m *Manager) List() []Info {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Info{
			ClientID:     s.ClientID,
			PublicPort:   s.PublicPort,
			State:        s.State().String(),
			Pending:      s.Pending.Len(),
			CreatedAt:    s.CreatedAt,
			LastActivity: s.LastActivity(),
		})
	}
	return out
}

// ErrUnknownClient is returned by operations that require an existing
// session when clientID has none.
var ErrUnknownClient = errors.New("unknown client id")
