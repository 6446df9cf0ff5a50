package proto

import "testing"

func TestStatusTextKnownCode(t *testing.T) {
	if got := statusText(404); got != "Not Found" {
		t.Fatalf("got %q want %q", got, "Not Found")
	}
}

func TestStatusTextUnknownCodeFallsBackToGenericLabel(t *testing.T) {
	if got := statusText(499); got != "Status" {
		t.Fatalf("got %q want %q", got, "Status")
	}
}
