package proto

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// DefaultMaxFrameBytes is the default cap on a single control-channel frame.
const DefaultMaxFrameBytes = 16 << 20 // 16 MiB

// Conn wraps a *websocket.Conn with the control-channel frame codec: one
// self-delimited JSON object per text frame, with a single-writer
// discipline enforced by an internal semaphore.
//
// Conn is safe for concurrent WriteEnvelope calls; ReadEnvelope must only be
// called from one goroutine at a time (the control-read loop owns it).
type Conn struct {
	ws           *websocket.Conn
	maxFrameSize int64
	writeMu      chan struct{} // 1-buffered semaphore; cheaper than sync.Mutex to reason about alongside select
}

// NewConn wraps ws with the envelope codec. maxFrameBytes <= 0 uses
// DefaultMaxFrameBytes.
func NewConn(ws *websocket.Conn, maxFrameBytes int64) *Conn {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}
	ws.SetReadLimit(maxFrameBytes)
	c := &Conn{
		ws:           ws,
		maxFrameSize: maxFrameBytes,
		writeMu:      make(chan struct{}, 1),
	}
	c.writeMu <- struct{}{}
	return c
}

// Underlying returns the wrapped *websocket.Conn, for callers that need
// connection-level controls (deadlines, close codes) the codec doesn't
// expose directly.
func (c *Conn) Underlying() *websocket.Conn { return c.ws }

// typeOnly is used to peek at an envelope's discriminator before deciding
// which concrete type to unmarshal into.
type typeOnly struct {
	Type string `json:"type"`
}

// ReadEnvelope reads one frame and returns its type discriminator along with
// the raw JSON bytes, leaving decoding of the concrete fields to the caller.
// gorilla/websocket already fails ReadMessage once the configured read
// limit (set in NewConn) is exceeded, which is how FrameTooLarge surfaces.
func (c *Conn) ReadEnvelope() (msgType string, raw []byte, err error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		if isMessageTooBig(err) {
			return "", nil, ErrFrameTooLarge
		}
		return "", nil, err
	}
	if kind != websocket.TextMessage {
		return "", nil, fmt.Errorf("%w: unexpected frame type %d", ErrProtocolError, kind)
	}

	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrProtocolError, err)
	}
	return t.Type, data, nil
}

func isMessageTooBig(err error) bool {
	ce, ok := err.(*websocket.CloseError)
	if ok {
		return ce.Code == websocket.CloseMessageTooBig
	}
	// gorilla/websocket returns a plain error (not a CloseError) when the
	// configured read limit is hit mid-message.
	return err != nil && err.Error() == "websocket: read limit exceeded"
}

// WriteEnvelope marshals v and writes it as a single text frame. Safe for
// concurrent use; frames never interleave.
func (c *Conn) WriteEnvelope(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if int64(len(data)) > c.maxFrameSize {
		return ErrFrameTooLarge
	}

	<-c.writeMu
	defer func() { c.writeMu <- struct{}{} }()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying WebSocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
