package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the diald daemon.
//
// This is intentionally user-facing and stable-ish. Keep defaults and validation
// centralized so the rest of the code can assume a well-formed config.
//
// Design goals:
// - Make config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is awkward.
type Config struct {
	// Input device configuration
	Input InputConfig `yaml:"input"`

	// Haptic feedback configuration
	Haptics HapticsConfig `yaml:"haptics"`

	// Telemetry WebSocket configuration
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Dial state machine configuration
	Dial DialFileConfig `yaml:"dial"`

	// IPC configuration (used by dialctl)
	IPC IPCConfig `yaml:"ipc"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type InputConfig struct {
	Device string `yaml:"device"` // evdev path of the dial
}

type HapticsConfig struct {
	// Device is an explicit hidraw path. Empty means auto-discover from the
	// input device's sysfs ancestry (falling back to DIALD_HAPTIC_DEV).
	Device string `yaml:"device,omitempty"`
}

type TelemetryConfig struct {
	WsURL   string `yaml:"ws_url"`
	Enabled bool   `yaml:"enabled"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DialFileConfig is the user-facing dial configuration as represented in YAML.
//
// It maps 1:1 to DialConfig used by the state machine, but uses YAML-friendly
// types (durations are represented in milliseconds or seconds).
type DialFileConfig struct {
	StartVolume int `yaml:"start_volume"`

	// Backlash suppression:
	BacklashConfirm int `yaml:"backlash_confirm"`

	// Adaptive sensitivity (velocity-magnitude smoothing and thresholds):
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	NotchMin       float64 `yaml:"notch_min"`
	NotchMid       float64 `yaml:"notch_mid"`
	NotchMax       float64 `yaml:"notch_max"`
	MagLow         float64 `yaml:"mag_low"`
	MagMid         float64 `yaml:"mag_mid"`
	MagHigh        float64 `yaml:"mag_high"`

	// Timing:
	IdleTimeoutSec int `yaml:"idle_timeout_sec"`
	ClickTimeoutMS int `yaml:"click_timeout_ms"`
	BatchWindowMS  int `yaml:"batch_window_ms"`
	EmitIntervalMS int `yaml:"emit_interval_ms"`
	TickIntervalMS int `yaml:"tick_interval_ms"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Device: defaultInputDevice,
		},
		Haptics: HapticsConfig{
			Device: "",
		},
		Telemetry: TelemetryConfig{
			WsURL:   "ws://127.0.0.1:9001",
			Enabled: true,
		},
		Dial: DialFileConfig{
			StartVolume:     defaultStartVolume,
			BacklashConfirm: defaultBacklashConfirm,
			SmoothingAlpha:  defaultSmoothingAlpha,
			NotchMin:        defaultNotchMin,
			NotchMid:        defaultNotchMid,
			NotchMax:        defaultNotchMax,
			MagLow:          defaultMagLow,
			MagMid:          defaultMagMid,
			MagHigh:         defaultMagHigh,
			IdleTimeoutSec:  defaultIdleTimeoutSec,
			ClickTimeoutMS:  defaultClickTimeoutMS,
			BatchWindowMS:   defaultBatchWindowMS,
			EmitIntervalMS:  defaultEmitIntervalMS,
			TickIntervalMS:  defaultTickIntervalMS,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/diald.sock",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if the pointer is
// non-nil. Keeping the override mechanism separate makes it easy to evolve
// flags without proliferating conditionals all over the code.
type FlagOverrides struct {
	InputDevice   *string
	HapticDevice  *string
	TelemetryURL  *string
	IPCSocketPath *string
	LogLevel      *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		cfg.Input.Device = *o.InputDevice
	}
	if o.HapticDevice != nil {
		cfg.Haptics.Device = *o.HapticDevice
	}
	if o.TelemetryURL != nil {
		cfg.Telemetry.WsURL = *o.TelemetryURL
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Input
	if c.Input.Device == "" {
		return errors.New("input.device must not be empty")
	}

	// Telemetry
	if c.Telemetry.Enabled && c.Telemetry.WsURL == "" {
		return errors.New("telemetry.enabled is true but telemetry.ws_url is empty")
	}

	// Dial
	if c.Dial.StartVolume < minVolume || c.Dial.StartVolume > maxVolume {
		return fmt.Errorf("dial.start_volume must be between %d and %d", minVolume, maxVolume)
	}
	if c.Dial.BacklashConfirm <= 0 {
		return errors.New("dial.backlash_confirm must be > 0")
	}
	if c.Dial.SmoothingAlpha <= 0 || c.Dial.SmoothingAlpha > 1 {
		return errors.New("dial.smoothing_alpha must be in (0, 1]")
	}
	if c.Dial.NotchMin <= 0 {
		return errors.New("dial.notch_min must be > 0")
	}
	if c.Dial.NotchMin > c.Dial.NotchMid || c.Dial.NotchMid > c.Dial.NotchMax {
		return errors.New("dial notch thresholds must satisfy notch_min <= notch_mid <= notch_max")
	}
	if c.Dial.MagLow > c.Dial.MagMid || c.Dial.MagMid > c.Dial.MagHigh {
		return errors.New("dial magnitude breakpoints must satisfy mag_low <= mag_mid <= mag_high")
	}
	if c.Dial.IdleTimeoutSec <= 0 {
		return errors.New("dial.idle_timeout_sec must be > 0")
	}
	if c.Dial.ClickTimeoutMS <= 0 {
		return errors.New("dial.click_timeout_ms must be > 0")
	}
	if c.Dial.BatchWindowMS <= 0 {
		return errors.New("dial.batch_window_ms must be > 0")
	}
	if c.Dial.EmitIntervalMS < 0 {
		return errors.New("dial.emit_interval_ms must be >= 0")
	}
	if c.Dial.TickIntervalMS <= 0 {
		return errors.New("dial.tick_interval_ms must be > 0")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// ToDialConfig converts the file config into the internal state machine config.
func (c *Config) ToDialConfig() DialConfig {
	return DialConfig{
		StartVolume: c.Dial.StartVolume,

		BacklashConfirm: c.Dial.BacklashConfirm,
		BacklashCancel:  c.Dial.BacklashConfirm / backlashCancelDivisor,

		SmoothingAlpha: c.Dial.SmoothingAlpha,
		NotchMin:       c.Dial.NotchMin,
		NotchMid:       c.Dial.NotchMid,
		NotchMax:       c.Dial.NotchMax,
		MagLow:         c.Dial.MagLow,
		MagMid:         c.Dial.MagMid,
		MagHigh:        c.Dial.MagHigh,

		IdleTimeout:  time.Duration(c.Dial.IdleTimeoutSec) * time.Second,
		ClickTimeout: time.Duration(c.Dial.ClickTimeoutMS) * time.Millisecond,
		BatchWindow:  time.Duration(c.Dial.BatchWindowMS) * time.Millisecond,
		EmitInterval: time.Duration(c.Dial.EmitIntervalMS) * time.Millisecond,
	}
}

// TickInterval returns the daemon tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Dial.TickIntervalMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
