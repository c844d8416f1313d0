package main

import (
	"log/slog"
)

// Effects bundles the daemon's effect ports. The reducer requests side
// effects as Commands; this is the only code that performs them.
//
// Both ports are optional. A nil haptics port drops buzzes; a nil telemetry
// client drops publishes. The state machine never learns about either.
type Effects struct {
	haptics   *HapticPort
	telemetry *TelemetryClient
	logger    *slog.Logger
}

// NewEffects creates the effects executor. Either port may be nil.
func NewEffects(haptics *HapticPort, telemetry *TelemetryClient, logger *slog.Logger) *Effects {
	return &Effects{haptics: haptics, telemetry: telemetry, logger: logger}
}

// run executes a single reducer-emitted Command against the external world.
// It must never call Reduce(); sequencing belongs to the daemon loop.
func (e *Effects) run(cmd Command) {
	switch c := cmd.(type) {
	case CmdBuzz:
		if e.haptics != nil {
			e.haptics.Trigger()
		}

	case CmdPublishVolume:
		if e.telemetry != nil {
			e.telemetry.Publish(topicVolume, c.Level)
		}

	case CmdPublishCounts:
		if e.telemetry != nil {
			e.telemetry.Publish(topicEvents, c.Counts)
		}

	case CmdClickAborted:
		e.logger.Warn("click aborted (timeout)", "held", c.Held)

	case CmdSendSnapshot:
		if c.Reply == nil {
			e.logger.Warn("snapshot requested with nil reply channel")
			return
		}
		// Never block the daemon loop on a slow requester.
		select {
		case c.Reply <- c.Snapshot:
		default:
			e.logger.Warn("snapshot reply channel not ready; dropping snapshot")
		}

	default:
		e.logger.Warn("unknown command type", "command", cmd.String())
	}
}
