// Package serverapp wires the control-channel WebSocket endpoint, the
// session manager, and the public listeners into a runnable server.
package serverapp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/firdavsDev/online-cli/internal/hooks"
	"github.com/firdavsDev/online-cli/internal/portpool"
	"github.com/firdavsDev/online-cli/internal/proto"
	"github.com/firdavsDev/online-cli/internal/publicproxy"
	"github.com/firdavsDev/online-cli/internal/session"
)

// Config holds the server's runtime settings.
type Config struct {
	ListenAddr     string
	PortMin        int
	PortMax        int
	RequestTimeout time.Duration
	MaxClients     int
	MaxFrameBytes  int64
	MaxRequestBody int64
	ShutdownGrace  time.Duration
	Logger         *log.Logger
}

// DefaultShutdownGrace is how long Shutdown waits for in-flight requests
// to drain before forcing every session closed.
const DefaultShutdownGrace = 10 * time.Second

// Server is the running tunnel server: one HTTP listener speaking the
// control-channel WebSocket protocol at /ws, plus a debug introspection
// endpoint, plus one dynamically-opened public listener per session.
type Server struct {
	cfg     Config
	logger  *log.Logger
	manager *session.Manager
	http    *http.Server
}

// New constructs a Server. It does not start listening; call Run.
func New(cfg Config) (*Server, error) {
	if cfg.PortMax < cfg.PortMin {
		return nil, fmt.Errorf("port range max (%d) < min (%d)", cfg.PortMax, cfg.PortMin)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = proto.DefaultMaxFrameBytes
	}
	if cfg.MaxRequestBody <= 0 {
		cfg.MaxRequestBody = publicproxy.DefaultMaxRequestBodyBytes
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	pool := portpool.New(cfg.PortMin, cfg.PortMax)
	mgr := session.NewManager(pool)
	mgr.MaxClients = cfg.MaxClients
	mgr.RequestTimeout = cfg.RequestTimeout
	mgr.MaxFrameBytes = cfg.MaxFrameBytes
	mgr.Hooks.Add(&hooks.LoggingHook{Logger: cfg.Logger})

	s := &Server{cfg: cfg, logger: cfg.Logger, manager: mgr}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	mux.HandleFunc("/debug/sessions", s.handleDebugSessions)

	s.http = &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	return s, nil
}

// Run starts the HTTP listener and blocks until ctx is cancelled, at which
// point it drains every session and shuts down. ListenAndServe's bind
// failure is surfaced directly so main can map it to a distinct exit code.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.cfg.ListenAddr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %v", proto.ErrBindFailed, err)
		}
		return nil
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown drains every session, waiting up to ShutdownGrace for in-flight
// requests before forcing closure, then stops the HTTP listener.
func (s *Server) Shutdown() error {
	deadline := time.Now().Add(s.cfg.ShutdownGrace)

	var wg sync.WaitGroup
	for _, info := range s.manager.List() {
		wg.Add(1)
		go func(clientID string) {
			defer wg.Done()
			s.drainThenClose(clientID, deadline)
		}(info.ClientID)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace+time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) drainThenClose(clientID string, deadline time.Time) {
	sess := s.manager.Lookup(clientID)
	if sess == nil {
		return
	}
	for time.Now().Before(deadline) && sess.Pending.Len() > 0 {
		time.Sleep(50 * time.Millisecond)
	}
	s.manager.Close(clientID, nil)
}

// Manager exposes the session manager, primarily for tests.
func (s *Server) Manager() *session.Manager { return s.manager }
