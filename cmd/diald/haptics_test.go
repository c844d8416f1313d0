package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestHapticPort_Trigger tests that a trigger writes the detent report to the
// device node.
func TestHapticPort_Trigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hidraw0")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	p := OpenHapticPort(path, testLogger())
	defer p.Close()

	p.Trigger()
	p.Trigger()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2*len(hapticChunky) {
		t.Fatalf("expected two reports (%d bytes), got %d bytes", 2*len(hapticChunky), len(data))
	}
	for i := range hapticChunky {
		if data[i] != hapticChunky[i] {
			t.Errorf("byte %d: expected %#x, got %#x", i, hapticChunky[i], data[i])
		}
	}
}

// TestHapticPort_Disabled tests that a missing or unconfigured device yields
// a port that drops triggers instead of failing.
func TestHapticPort_Disabled(t *testing.T) {
	p := OpenHapticPort("", testLogger())
	p.Trigger() // must not panic
	if err := p.Close(); err != nil {
		t.Errorf("close of disabled port: %v", err)
	}

	p = OpenHapticPort(filepath.Join(t.TempDir(), "missing"), testLogger())
	p.Trigger() // must not panic
	p.Close()
}

// TestResolveHapticDevice_ExplicitWins tests configuration precedence.
func TestResolveHapticDevice_ExplicitWins(t *testing.T) {
	t.Setenv("DIALD_HAPTIC_DEV", "/dev/hidraw7")

	if got := resolveHapticDevice("/dev/hidraw3", "/dev/input/event0", testLogger()); got != "/dev/hidraw3" {
		t.Errorf("explicit config must win, got %q", got)
	}
	if got := resolveHapticDevice("", "/dev/input/event0", testLogger()); got != "/dev/hidraw7" {
		t.Errorf("environment must win over discovery, got %q", got)
	}
}
