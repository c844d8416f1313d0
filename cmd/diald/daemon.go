package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven "Dial Brain"
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands.
//   - The daemon loop is the only place that executes side effects
//     (haptics, telemetry publishes, snapshot replies).
//   - Inbound remote/IPC events arrive on a single channel and are wrapped in
//     TimedEvent so the reducer never consults the clock.
//
// The loop uses explicit event and command queues so effect execution never
// re-enters the reducer.
// ============================================================================

// runDaemon is the main daemon loop that:
//   - Receives Events from input, IPC, and telemetry
//   - Emits Tick events at the poll cadence
//   - Reduces events into (state, commands)
//   - Executes commands against the effect ports
//
// Exits when ctx is canceled or the events channel is closed.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	eff *Effects,
	cfg DialConfig,
	state *DialState,
	tickInterval time.Duration,
	logger *slog.Logger,
) error {
	if state == nil {
		state = NewDialState(cfg)
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
		}
	}

	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]
			eff.run(cmd)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return nil

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return nil
			}
			switch ev.(type) {
			case DeviceLost, SnapshotRequest:
				// Already self-contained; no arrival timestamp needed.
				enqueueEvent(ev)
			default:
				enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			}
			flushEvents()
			flushCommands()

		case now := <-ticker.C:
			enqueueEvent(Tick{Now: now})
			flushEvents()
			flushCommands()
		}
	}
}
