package proto

import "encoding/json"

// Decode unmarshals raw into v, wrapping failures as ErrProtocolError.
func Decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// DecodeError wraps a JSON decode failure so errors.Is(err, ErrProtocolError)
// still matches.
type DecodeError struct{ Err error }

func (e *DecodeError) Error() string { return "protocol error: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return ErrProtocolError }
