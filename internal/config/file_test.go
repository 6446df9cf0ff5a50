package config

import "testing"

func TestPeekFlagFindsSpaceSeparatedLongForm(t *testing.T) {
	got := peekFlag([]string{"--port", "3000", "--config", "/tmp/x.yaml"}, "config")
	if got != "/tmp/x.yaml" {
		t.Fatalf("got %q want /tmp/x.yaml", got)
	}
}

func TestPeekFlagFindsShortForm(t *testing.T) {
	got := peekFlag([]string{"-config", "/tmp/x.yaml"}, "config")
	if got != "/tmp/x.yaml" {
		t.Fatalf("got %q want /tmp/x.yaml", got)
	}
}

func TestPeekFlagFindsEqualsForm(t *testing.T) {
	got := peekFlag([]string{"--config=/tmp/y.yaml"}, "config")
	if got != "/tmp/y.yaml" {
		t.Fatalf("got %q want /tmp/y.yaml", got)
	}
}

func TestPeekFlagReturnsEmptyWhenAbsent(t *testing.T) {
	got := peekFlag([]string{"--port", "3000"}, "config")
	if got != "" {
		t.Fatalf("got %q want empty string", got)
	}
}

func TestPeekFlagIgnoresTrailingFlagWithNoValue(t *testing.T) {
	got := peekFlag([]string{"--config"}, "config")
	if got != "" {
		t.Fatalf("got %q want empty string when flag has no following value", got)
	}
}

func TestLoadYAMLReturnsErrorForMissingFile(t *testing.T) {
	var out struct{}
	if err := loadYAML("/nonexistent/path/does/not/exist.yaml", &out); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
