package proto

import (
	"encoding/json"
	"testing"
)

func TestHeadersOrderPreservedThroughJSON(t *testing.T) {
	h := Headers{}.
		Add("X-First", "1").
		Add("Set-Cookie", "a=1").
		Add("Set-Cookie", "b=2").
		Add("X-Last", "z")

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Headers
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	want := []string{"X-First", "Set-Cookie", "Set-Cookie", "X-Last"}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("pair %d: got name %q want %q", i, got[i].Name, name)
		}
	}
	if got[1].Value != "a=1" || got[2].Value != "b=2" {
		t.Fatalf("Set-Cookie values not preserved in order: %+v", got)
	}
}

func TestHeadersMarshalsAsArrayNotObject(t *testing.T) {
	h := Headers{}.Add("Content-Type", "text/plain")
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if data[0] != '[' {
		t.Fatalf("expected array encoding, got %s", data)
	}
}

func TestHeadersGetIsCaseInsensitive(t *testing.T) {
	h := Headers{}.Add("Content-Type", "text/plain")
	if got := h.Get("content-type"); got != "text/plain" {
		t.Fatalf("Get case-insensitive lookup failed: got %q", got)
	}
	if got := h.Get("missing"); got != "" {
		t.Fatalf("Get on missing header should return empty, got %q", got)
	}
}

func TestHeadersValuesCollectsAllMatches(t *testing.T) {
	h := Headers{}.Add("Set-Cookie", "a=1").Add("Set-Cookie", "b=2").Add("X-Other", "x")
	got := h.Values("set-cookie")
	if len(got) != 2 || got[0] != "a=1" || got[1] != "b=2" {
		t.Fatalf("Values mismatch: %v", got)
	}
}

func TestHeadersWithoutRemovesAllMatchingNames(t *testing.T) {
	h := Headers{}.Add("Connection", "close").Add("X-Keep", "1").Add("connection", "keep-alive")
	out := h.Without("Connection")
	if len(out) != 1 || out[0].Name != "X-Keep" {
		t.Fatalf("Without did not strip all matches: %+v", out)
	}
}

func TestHeadersSetSingleReplacesInPlace(t *testing.T) {
	h := Headers{}.Add("A", "1").Add("Content-Length", "0").Add("B", "2")
	out := h.SetSingle("Content-Length", "42")
	if len(out) != 3 {
		t.Fatalf("expected 3 pairs, got %d: %+v", len(out), out)
	}
	if out[1].Name != "Content-Length" || out[1].Value != "42" {
		t.Fatalf("SetSingle did not replace in position: %+v", out)
	}
}

func TestHeadersSetSingleAppendsWhenAbsent(t *testing.T) {
	h := Headers{}.Add("A", "1")
	out := h.SetSingle("B", "2")
	if len(out) != 2 || out[1].Name != "B" {
		t.Fatalf("SetSingle did not append: %+v", out)
	}
}

func TestStripHopByHopRemovesStandardAndConnectionListed(t *testing.T) {
	h := Headers{}.
		Add("Connection", "X-Custom, Keep-Alive").
		Add("Keep-Alive", "timeout=5").
		Add("X-Custom", "drop-me").
		Add("Content-Type", "text/plain")

	out := StripHopByHop(h)
	for _, p := range out {
		switch p.Name {
		case "Connection", "Keep-Alive", "X-Custom":
			t.Fatalf("expected %s to be stripped, still present: %+v", p.Name, out)
		}
	}
	if got := out.Get("Content-Type"); got != "text/plain" {
		t.Fatalf("Content-Type should survive stripping, got %q", got)
	}
}
