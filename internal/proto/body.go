package proto

import "encoding/base64"

// EncodeBody base64-encodes body for transport in a Request/Response
// envelope's body_b64 field. An empty body encodes to "".
func EncodeBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(body)
}

// DecodeBody reverses EncodeBody. A malformed value returns
// ErrProtocolError.
func DecodeBody(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return data, nil
}
