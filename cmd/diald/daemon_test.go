package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startTestDaemon runs a daemon loop wired to a scratch haptic device and no
// telemetry. It returns the event channel, the haptic file path, and a stop
// function that waits for the loop to exit.
func startTestDaemon(t *testing.T) (chan Event, string, func()) {
	t.Helper()

	hapticPath := filepath.Join(t.TempDir(), "hidraw0")
	if err := os.WriteFile(hapticPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	logger := testLogger()
	haptics := OpenHapticPort(hapticPath, logger)
	eff := NewEffects(haptics, nil, logger)
	cfg := testConfig()

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- runDaemon(ctx, events, eff, cfg, NewDialState(cfg), 20*time.Millisecond, logger)
	}()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("daemon exited with error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("daemon did not stop")
		}
		haptics.Close()
	}
	return events, hapticPath, stop
}

// requestSnapshot doubles as a synchronization barrier: the reply proves all
// previously sent events have been reduced.
func requestSnapshot(t *testing.T, events chan Event) StateSnapshot {
	t.Helper()

	reply := make(chan StateSnapshot, 1)
	events <- SnapshotRequest{Reply: reply}
	select {
	case snap := <-reply:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot request timed out")
		return StateSnapshot{}
	}
}

// TestRunDaemon_RotateToSnapshot tests the full path: event in, reduction,
// effect execution, observable state out.
func TestRunDaemon_RotateToSnapshot(t *testing.T) {
	events, hapticPath, stop := startTestDaemon(t)
	defer stop()

	events <- Rotate{Delta: 600}

	snap := requestSnapshot(t, events)
	if snap.Volume != 51 {
		t.Errorf("expected volume 51, got %d", snap.Volume)
	}
	if snap.Mode != "active" {
		t.Errorf("expected active mode, got %q", snap.Mode)
	}

	// The wake buzz went out through the haptic port.
	data, err := os.ReadFile(hapticPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != len(hapticChunky) {
		t.Errorf("expected one haptic report (%d bytes), got %d bytes", len(hapticChunky), len(data))
	}
}

// TestRunDaemon_ClickGesture tests a press/release pair observed through the
// snapshot barrier.
func TestRunDaemon_ClickGesture(t *testing.T) {
	events, _, stop := startTestDaemon(t)
	defer stop()

	events <- Click{Pressed: true}
	snap := requestSnapshot(t, events)
	if !snap.Clicking {
		t.Error("expected clicking state after press")
	}

	events <- Click{Pressed: false}
	snap = requestSnapshot(t, events)
	if snap.Clicking {
		t.Error("expected clicking cleared after release")
	}
}

// TestRunDaemon_DeviceLostResets tests that a device loss reported by the
// input reader returns the daemon to idle.
func TestRunDaemon_DeviceLostResets(t *testing.T) {
	events, _, stop := startTestDaemon(t)
	defer stop()

	events <- Rotate{Delta: 600}
	events <- DeviceLost{}

	snap := requestSnapshot(t, events)
	if snap.Mode != "idle" {
		t.Errorf("expected idle after device loss, got %q", snap.Mode)
	}
	if snap.Volume != 51 {
		t.Errorf("volume must survive device loss, got %d", snap.Volume)
	}
}

// TestRunDaemon_StopsWhenEventsClosed tests clean shutdown on channel close.
func TestRunDaemon_StopsWhenEventsClosed(t *testing.T) {
	logger := testLogger()
	eff := NewEffects(nil, nil, logger)
	cfg := testConfig()

	events := make(chan Event)
	done := make(chan error, 1)
	go func() {
		done <- runDaemon(context.Background(), events, eff, cfg, nil, 20*time.Millisecond, logger)
	}()

	close(events)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("daemon did not stop after channel close")
	}
}
