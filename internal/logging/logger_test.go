package logging

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("production", "loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

func TestNewHonoursLevel(t *testing.T) {
	logger, err := New("development", "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(-1) {
		t.Fatalf("debug should be disabled at warn level")
	}
	if !logger.Core().Enabled(1) {
		t.Fatalf("warn should be enabled")
	}
}
