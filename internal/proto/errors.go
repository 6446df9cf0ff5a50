package proto

import "errors"

// Sentinel errors for the wire error taxonomy. Components compare
// against these with errors.Is rather than matching strings.
var (
	ErrProtocolError    = errors.New("protocol error")
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrNoPortAvailable  = errors.New("no port available")
	ErrBindFailed       = errors.New("bind failed")
	ErrUpstreamTimeout  = errors.New("upstream timeout")
	ErrSessionClosed    = errors.New("session closed")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrBadPublicRequest = errors.New("bad public request")
	ErrHeartbeatLost    = errors.New("heartbeat lost")
)

// CodeFor maps a sentinel error to the wire error code sent in an
// ErrorFrame. Unrecognized errors map to CodeProtocolError.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrNoPortAvailable):
		return CodeNoPort
	case errors.Is(err, ErrBindFailed):
		return CodeBindFailed
	case errors.Is(err, ErrFrameTooLarge):
		return CodeFrameTooLarge
	case errors.Is(err, ErrUpstreamTimeout):
		return CodeUpstreamTimeout
	case errors.Is(err, ErrSessionClosed):
		return CodeSessionClosed
	case errors.Is(err, ErrPayloadTooLarge):
		return CodePayloadTooLarge
	case errors.Is(err, ErrBadPublicRequest):
		return CodeBadRequest
	case errors.Is(err, ErrHeartbeatLost):
		return CodeHeartbeat
	default:
		return CodeProtocolError
	}
}
