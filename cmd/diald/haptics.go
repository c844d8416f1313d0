package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ============================================================================
// Haptic Feedback Port
// ============================================================================
// The dial's haptic motor is driven through its hidraw node with a fixed
// output report. The port is best-effort: if the node can't be opened or a
// write fails, triggers become no-ops until the daemon restarts. The state
// machine never sees any of this; it just fires CmdBuzz.
// ============================================================================

// hapticChunky is the "chunky detent" output report:
// report ID 1, repeat=2, manual=3, retrigger=70.
var hapticChunky = []byte{0x01, 0x02, 0x03, 0x46, 0x00}

// HapticPort wraps the hidraw handle for haptic triggers.
type HapticPort struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

// OpenHapticPort opens the haptic device. It never fails: an unusable device
// yields a port whose triggers are dropped, which is the contract the state
// machine relies on.
func OpenHapticPort(path string, logger *slog.Logger) *HapticPort {
	p := &HapticPort{logger: logger}
	if path == "" {
		logger.Info("haptics disabled (no device)")
		return p
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		logger.Warn("failed to open haptic device; buzzes disabled", "device", path, "error", err)
		return p
	}

	logger.Info("opened haptic device", "device", path)
	p.file = f
	return p
}

// Trigger fires one buzz. Write failures mark the port unavailable; later
// triggers are silently dropped.
func (p *HapticPort) Trigger() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return
	}
	if _, err := p.file.Write(hapticChunky); err != nil {
		p.logger.Warn("haptic write failed; buzzes disabled", "error", err)
		p.file.Close()
		p.file = nil
	}
}

// Close releases the hidraw handle.
func (p *HapticPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

// discoverHapticDevice finds the hidraw node that shares a HID parent with
// the given input event device by walking sysfs ancestry. Returns an error
// when no sibling hidraw node exists (e.g. the dial is connected over a
// transport without haptics).
func discoverHapticDevice(inputDevice string) (string, error) {
	base := filepath.Base(inputDevice)
	inputSys, err := filepath.EvalSymlinks(filepath.Join("/sys/class/input", base, "device"))
	if err != nil {
		return "", fmt.Errorf("resolve input sysfs path: %w", err)
	}

	entries, err := os.ReadDir("/sys/class/hidraw")
	if err != nil {
		return "", fmt.Errorf("list hidraw nodes: %w", err)
	}

	for _, entry := range entries {
		hidSys, err := filepath.EvalSymlinks(filepath.Join("/sys/class/hidraw", entry.Name(), "device"))
		if err != nil {
			continue
		}
		// The hidraw node's device dir is the HID parent; the input node
		// lives somewhere underneath it.
		if strings.HasPrefix(inputSys, hidSys+string(filepath.Separator)) {
			return filepath.Join("/dev", entry.Name()), nil
		}
	}

	return "", fmt.Errorf("no hidraw node is an ancestor of %s", inputDevice)
}

// resolveHapticDevice picks the haptic device path: explicit config wins,
// then the DIALD_HAPTIC_DEV environment variable, then sysfs discovery.
// An empty result disables haptics.
func resolveHapticDevice(configured, inputDevice string, logger *slog.Logger) string {
	if configured != "" {
		return configured
	}
	if env := os.Getenv("DIALD_HAPTIC_DEV"); env != "" {
		return env
	}

	path, err := discoverHapticDevice(inputDevice)
	if err != nil {
		logger.Info("haptic device discovery failed", "error", err)
		return ""
	}
	logger.Info("discovered haptic device", "device", path)
	return path
}
