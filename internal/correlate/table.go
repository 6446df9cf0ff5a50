// Package correlate implements the per-session request_id -> waiter index
// that lets a blocked public-side HTTP handler wait for the response that
// eventually arrives on the control channel.
package correlate

import (
	"sync"
	"time"

	"github.com/firdavsDev/online-cli/internal/proto"
)

// Result is what a waiter is completed with: either a decoded response, or
// an error explaining why no response is coming. Body is already
// base64-decoded — callers hand Complete raw bytes, not a wire envelope, so
// a malformed body_b64 can be turned into a Cancel(id, ErrProtocolError)
// before it ever reaches the waiter.
type Result struct {
	Status  int
	Headers proto.Headers
	Body    []byte
	Err     error
}

// Waiter is the server-side record that a public-side caller is blocked
// awaiting a correlated response. Sink fires exactly once.
type Waiter struct {
	RequestID string
	sink      chan Result
	once      sync.Once
	timer     *time.Timer
}

func (w *Waiter) complete(r Result) {
	w.once.Do(func() {
		if w.timer != nil {
			w.timer.Stop()
		}
		w.sink <- r
		close(w.sink)
	})
}

// Recv blocks until the waiter is completed. Safe to call exactly once.
func (w *Waiter) Recv() Result {
	return <-w.sink
}

// Table is a per-session map from request_id to Waiter, guarded by its own
// lock: each session's correlation table is local to that session and
// never shared across sessions.
type Table struct {
	mu      sync.Mutex
	waiters map[string]*Waiter
	closed  bool
}

// New creates an empty correlation table.
func New() *Table {
	return &Table{waiters: make(map[string]*Waiter)}
}

// Insert creates a waiter for requestID with the given deadline and inserts
// it into the table. It must be called before the Request envelope is sent
// so a Response racing ahead of the insert is never lost. Returns nil if
// the table is already closed (session gone) or requestID is already
// present.
func (t *Table) Insert(requestID string, deadline time.Duration) *Waiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	if _, exists := t.waiters[requestID]; exists {
		return nil
	}

	w := &Waiter{RequestID: requestID, sink: make(chan Result, 1)}
	t.waiters[requestID] = w
	w.timer = time.AfterFunc(deadline, func() {
		t.remove(requestID)
		w.complete(Result{Err: proto.ErrUpstreamTimeout})
	})
	return w
}

// Complete fulfils the waiter for requestID with a decoded response. If no
// such waiter exists (already timed out, aborted, or session closed), the
// response is a late arrival and is silently discarded.
func (t *Table) Complete(requestID string, status int, headers proto.Headers, body []byte) {
	w := t.remove(requestID)
	if w == nil {
		return
	}
	w.complete(Result{Status: status, Headers: headers, Body: body})
}

// Cancel removes and fails the waiter for requestID with err, used when the
// public-side connection aborts mid-wait. A no-op if the waiter is already
// gone.
func (t *Table) Cancel(requestID string, err error) {
	w := t.remove(requestID)
	if w == nil {
		return
	}
	w.complete(Result{Err: err})
}

// FailAll removes every waiter and completes each with err, then marks the
// table closed so subsequent Insert calls fail fast. Idempotent: calling it
// twice is safe, the second call finds an empty table.
func (t *Table) FailAll(err error) {
	t.mu.Lock()
	waiters := t.waiters
	t.waiters = make(map[string]*Waiter)
	t.closed = true
	t.mu.Unlock()

	for _, w := range waiters {
		w.complete(Result{Err: err})
	}
}

// Len reports the number of pending waiters, for introspection.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}

func (t *Table) remove(requestID string) *Waiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.waiters[requestID]
	if !ok {
		return nil
	}
	delete(t.waiters, requestID)
	return w
}
