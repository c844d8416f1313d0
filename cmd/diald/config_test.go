package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig_Validates tests that the shipped defaults are internally
// consistent.
func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got: %v", err)
	}
}

// TestConfig_Validate_Rejections tests the headline validation failures.
func TestConfig_Validate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty device", func(c *Config) { c.Input.Device = "" }, "input.device"},
		{"telemetry url", func(c *Config) { c.Telemetry.WsURL = "" }, "telemetry.ws_url"},
		{"start volume", func(c *Config) { c.Dial.StartVolume = 150 }, "start_volume"},
		{"backlash confirm", func(c *Config) { c.Dial.BacklashConfirm = 0 }, "backlash_confirm"},
		{"alpha", func(c *Config) { c.Dial.SmoothingAlpha = 1.5 }, "smoothing_alpha"},
		{"notch order", func(c *Config) { c.Dial.NotchMid = c.Dial.NotchMax + 1 }, "notch"},
		{"tick interval", func(c *Config) { c.Dial.TickIntervalMS = 0 }, "tick_interval_ms"},
		{"socket path", func(c *Config) { c.IPC.SocketPath = "" }, "socket_path"},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected error mentioning %q, got: %v", tc.name, tc.want, err)
		}
	}
}

// TestLoadConfigFile tests YAML parsing with defaults for omitted sections.
func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diald.yaml")
	content := `
input:
  device: /dev/input/event4
dial:
  start_volume: 25
  backlash_confirm: 30
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Input.Device != "/dev/input/event4" {
		t.Errorf("expected device from file, got %q", cfg.Input.Device)
	}
	if cfg.Dial.StartVolume != 25 {
		t.Errorf("expected start_volume 25, got %d", cfg.Dial.StartVolume)
	}
	if cfg.Dial.BacklashConfirm != 30 {
		t.Errorf("expected backlash_confirm 30, got %d", cfg.Dial.BacklashConfirm)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Logging.Level)
	}
	// Omitted sections keep their defaults.
	if cfg.IPC.SocketPath != "/tmp/diald.sock" {
		t.Errorf("expected default socket path, got %q", cfg.IPC.SocketPath)
	}
	if cfg.Dial.ClickTimeoutMS != defaultClickTimeoutMS {
		t.Errorf("expected default click timeout, got %d", cfg.Dial.ClickTimeoutMS)
	}
}

// TestLoadConfigFile_UnknownField tests that typos are rejected instead of
// silently ignored.
func TestLoadConfigFile_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diald.yaml")
	content := `
input:
  devcie: /dev/input/event4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfigFile(path); err == nil {
		t.Error("expected error for unknown field")
	}
}

// TestFlagOverrides_Apply tests that only set overrides are merged.
func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	device := "/dev/input/event9"
	level := "debug"

	FlagOverrides{InputDevice: &device, LogLevel: &level}.Apply(&cfg)

	if cfg.Input.Device != device {
		t.Errorf("expected device override, got %q", cfg.Input.Device)
	}
	if cfg.Logging.Level != level {
		t.Errorf("expected log level override, got %q", cfg.Logging.Level)
	}
	if cfg.IPC.SocketPath != "/tmp/diald.sock" {
		t.Errorf("nil overrides must not touch config, got %q", cfg.IPC.SocketPath)
	}
}

// TestConfig_ToDialConfig tests the file-to-engine conversion, including the
// derived backlash cancel threshold.
func TestConfig_ToDialConfig(t *testing.T) {
	cfg := DefaultConfig()
	dc := cfg.ToDialConfig()

	if dc.BacklashConfirm != defaultBacklashConfirm {
		t.Errorf("expected confirm %d, got %d", defaultBacklashConfirm, dc.BacklashConfirm)
	}
	if dc.BacklashCancel != defaultBacklashConfirm/backlashCancelDivisor {
		t.Errorf("expected cancel %d, got %d", defaultBacklashConfirm/backlashCancelDivisor, dc.BacklashCancel)
	}
	if dc.IdleTimeout != time.Duration(defaultIdleTimeoutSec)*time.Second {
		t.Errorf("unexpected idle timeout %v", dc.IdleTimeout)
	}
	if dc.ClickTimeout != time.Duration(defaultClickTimeoutMS)*time.Millisecond {
		t.Errorf("unexpected click timeout %v", dc.ClickTimeout)
	}
	if cfg.TickInterval() != time.Duration(defaultTickIntervalMS)*time.Millisecond {
		t.Errorf("unexpected tick interval %v", cfg.TickInterval())
	}
}
