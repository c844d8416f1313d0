package main

import (
	"fmt"
	"time"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect requested by the reducer and
// executed by the daemon loop. In this daemon those are haptic triggers,
// telemetry publishes, and log-worthy anomalies.
type Command interface {
	commandMarker()
	String() string
}

// CmdBuzz fires one haptic feedback trigger. Fire-and-forget: if the haptic
// port is unavailable the trigger is silently dropped.
type CmdBuzz struct{}

func (CmdBuzz) commandMarker() {}
func (CmdBuzz) String() string { return "CmdBuzz()" }

// CmdPublishVolume publishes the current volume level to telemetry.
type CmdPublishVolume struct {
	Level int
}

func (CmdPublishVolume) commandMarker() {}
func (c CmdPublishVolume) String() string {
	return fmt.Sprintf("CmdPublishVolume(level=%d)", c.Level)
}

// CmdPublishCounts publishes a flushed batch of semantic event counts.
type CmdPublishCounts struct {
	Counts []LabelCount
}

func (CmdPublishCounts) commandMarker() {}
func (c CmdPublishCounts) String() string {
	return fmt.Sprintf("CmdPublishCounts(n=%d)", len(c.Counts))
}

// CmdClickAborted reports a click gesture that never saw its release.
// The effect is a warning log line; no semantic click is emitted.
type CmdClickAborted struct {
	Held time.Duration
}

func (CmdClickAborted) commandMarker() {}
func (c CmdClickAborted) String() string {
	return fmt.Sprintf("CmdClickAborted(held=%s)", c.Held)
}

// CmdSendSnapshot delivers a state snapshot to a requester.
// The channel send happens in the effects layer so the reducer stays pure.
type CmdSendSnapshot struct {
	Snapshot StateSnapshot
	Reply    chan StateSnapshot
}

func (CmdSendSnapshot) commandMarker() {}
func (c CmdSendSnapshot) String() string {
	return fmt.Sprintf("CmdSendSnapshot(volume=%d)", c.Snapshot.Volume)
}
