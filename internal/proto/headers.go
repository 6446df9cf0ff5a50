// Package proto defines the wire envelopes exchanged on the control channel
// and the framing/codec around them.
package proto

import (
	"encoding/json"
	"strings"
)

// Pair is a single header name/value as it appeared on the wire.
type Pair struct {
	Name  string
	Value string
}

// Headers is an ordered sequence of header name/value pairs. It is not a map:
// HTTP allows repeated header names (Set-Cookie, Cache-Control, ...) and the
// order they appear in matters to some clients, so we never collapse them
// into a map[string]string like a quick implementation would.
type Headers []Pair

// MarshalJSON renders headers as an array of [name, value] pairs rather
// than a JSON object, so repeated header names and their order survive.
func (h Headers) MarshalJSON() ([]byte, error) {
	type pairList = [][2]string
	out := make(pairList, len(h))
	for i, p := range h {
		out[i] = [2]string{p.Name, p.Value}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts an array of [name, value] pairs.
func (h *Headers) UnmarshalJSON(data []byte) error {
	var raw [][2]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Headers, len(raw))
	for i, p := range raw {
		out[i] = Pair{Name: p[0], Value: p[1]}
	}
	*h = out
	return nil
}

// Add appends a new name/value pair, preserving any existing pairs with the
// same name (HTTP headers may repeat).
func (h Headers) Add(name, value string) Headers {
	return append(h, Pair{Name: name, Value: value})
}

// Values returns every value recorded under name, case-insensitively, in the
// order they appear.
func (h Headers) Values(name string) []string {
	var out []string
	for _, p := range h {
		if strings.EqualFold(p.Name, name) {
			out = append(out, p.Value)
		}
	}
	return out
}

// Get returns the first value recorded under name, case-insensitively, or
// "" if absent.
func (h Headers) Get(name string) string {
	for _, p := range h {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}
	return ""
}

// Without returns a copy of h with every pair named name (case-insensitive)
// removed.
func (h Headers) Without(name string) Headers {
	out := make(Headers, 0, len(h))
	for _, p := range h {
		if !strings.EqualFold(p.Name, name) {
			out = append(out, p)
		}
	}
	return out
}

// SetSingle replaces every existing pair named name with a single pair
// holding value, inserted at the position of the first removed pair (or
// appended if name was absent).
func (h Headers) SetSingle(name, value string) Headers {
	out := make(Headers, 0, len(h)+1)
	inserted := false
	for _, p := range h {
		if strings.EqualFold(p.Name, name) {
			if !inserted {
				out = append(out, Pair{Name: name, Value: value})
				inserted = true
			}
			continue
		}
		out = append(out, p)
	}
	if !inserted {
		out = append(out, Pair{Name: name, Value: value})
	}
	return out
}

// hopByHop is the set of header names RFC 7230 §6.1 defines as meaningful
// only on a single connection. These are stripped whenever a request or
// response crosses the tunnel boundary.
var hopByHop = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// StripHopByHop removes the standard hop-by-hop headers, plus any header
// named in a Connection header's value (RFC 7230 §6.1 also makes those
// connection-specific).
func StripHopByHop(h Headers) Headers {
	extra := map[string]bool{}
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				extra[strings.ToLower(name)] = true
			}
		}
	}

	out := make(Headers, 0, len(h))
	for _, p := range h {
		lower := strings.ToLower(p.Name)
		if hopByHop[lower] || extra[lower] {
			continue
		}
		out = append(out, p)
	}
	return out
}
