package main

import (
	"math"
	"time"
)

// This file implements the dial event-normalization state machine as a pure
// reducer:
//
//   - Events: raw rotation deltas, button transitions, time ticks, device
//     loss, and remote volume commands
//   - Commands: haptic triggers and telemetry publishes requested by the
//     reducer
//   - Reduce(): computes next state + commands, without performing I/O
//
// The reducer must not mutate anything outside the returned state, must not
// block, and must not consult the clock; timestamps arrive with the events.
// The daemon loop executes Commands and feeds external happenings back in.

// DialMode is the top-level gesture-tracking state.
type DialMode int

const (
	// ModeIdle means no recent input; the next event wakes the dial.
	ModeIdle DialMode = iota
	// ModeActive is normal rotation tracking.
	ModeActive
	// ModeBacklash means a direction reversal is suspected to be mechanical
	// slack rather than a deliberate gesture; rotation is buffered until the
	// reversal is confirmed or cancelled.
	ModeBacklash
)

func (m DialMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeActive:
		return "active"
	case ModeBacklash:
		return "backlash"
	default:
		return "unknown"
	}
}

// DialConfig contains all tunable parameters for the state machine.
// Values, not mechanism: loading and validation live in config.go.
type DialConfig struct {
	IdleTimeout  time.Duration // reset gesture state after this much silence
	ClickTimeout time.Duration // abort a press held past this
	BatchWindow  time.Duration // semantic event coalescing window
	EmitInterval time.Duration // minimum spacing between volume emissions

	BacklashConfirm int // same-direction events that confirm a reversal
	BacklashCancel  int // events back in the original direction that cancel one

	SmoothingAlpha float64 // EMA weight for per-event rotation magnitude

	// Two-segment piecewise-linear magnitude -> notch threshold curve.
	// Slow precise turns need fewer raw units per notch than fast flicks.
	NotchMin float64 // threshold at MagLow
	NotchMid float64 // threshold at MagMid
	NotchMax float64 // threshold at MagHigh
	MagLow   float64
	MagMid   float64
	MagHigh  float64

	StartVolume int // assumed level at daemon start
}

// DialState is the reducer-owned state container. It is mutated only by
// processing one event or one tick, and only ever by the daemon goroutine.
type DialState struct {
	Mode        DialMode
	LastEventAt time.Time // drives the idle timeout; zero means no input yet

	// Volume output
	Volume      float64 // continuous level in [0,100]
	RawAccum    int32   // sub-notch rotation pending conversion
	SmoothedMag float64 // EMA of per-event |delta|; drives adaptive sensitivity

	// Emission suppression
	LastPrinted int       // last emitted (rounded) volume
	LastPrintAt time.Time // when it was emitted

	// Click gesture
	Clicking       bool
	ClickStartedAt time.Time

	// Backlash detector
	LastRawDir         int // -1, 0, or +1
	ConsistentDirCount int // consecutive same-direction events
	PreBacklashDir     int // direction held before entering backlash
	BacklashAccum      int32

	// Pending semantic events awaiting a flush
	Batch batch
}

// NewDialState returns the default state for daemon start.
func NewDialState(cfg DialConfig) *DialState {
	return &DialState{
		Mode:        ModeIdle,
		Volume:      float64(cfg.StartVolume),
		LastPrinted: cfg.StartVolume,
	}
}

// resetTracking clears the gesture-tracking fields, returning to idle.
// Volume and the magnitude EMA persist: an idle dial has not changed level,
// and the user's turning style is not forgotten over a pause.
func (s *DialState) resetTracking() {
	s.Mode = ModeIdle
	s.LastEventAt = time.Time{}
	s.RawAccum = 0
	s.LastRawDir = 0
	s.ConsistentDirCount = 0
	s.PreBacklashDir = 0
	s.BacklashAccum = 0
}

// snapshot returns the externally visible state.
func (s *DialState) snapshot() StateSnapshot {
	return StateSnapshot{
		Volume:   int(math.Round(s.Volume)),
		Mode:     s.Mode.String(),
		Clicking: s.Clicking,
	}
}

// ReduceResult is the output of Reduce(): next state plus commands to execute.
type ReduceResult struct {
	State    *DialState
	Commands []Command
}

// Reduce is the pure reducer. The daemon loop must execute the returned
// Commands and feed any resulting external happenings back as Events.
func Reduce(s *DialState, e Event, cfg DialConfig) ReduceResult {
	if s == nil {
		s = NewDialState(cfg)
	}

	var cmds []Command

	switch ev := e.(type) {
	case Tick:
		cmds = reduceTick(s, ev.Now, cfg)

	case TimedEvent:
		cmds = reduceInput(s, ev.Event, ev.At, cfg)

	case DeviceLost:
		// Device gone: reset to a clean idle state so a reconnect starts
		// from known invariants. Volume persists so the level doesn't jump.
		s.resetTracking()
		s.Clicking = false
		s.ClickStartedAt = time.Time{}
		s.SmoothedMag = 0

	case SnapshotRequest:
		cmds = append(cmds, CmdSendSnapshot{Snapshot: s.snapshot(), Reply: ev.Reply})

	default:
		// Unknown event type: no-op.
	}

	return ReduceResult{State: s, Commands: cmds}
}

// reduceTick evaluates all advisory timeouts. Worst-case lateness is one
// poll interval; none of these are scheduled alarms.
func reduceTick(s *DialState, now time.Time, cfg DialConfig) []Command {
	var cmds []Command

	// Click gestures that never complete are aborted: no semantic click,
	// pending rotation discarded.
	if s.Clicking && !s.ClickStartedAt.IsZero() && now.Sub(s.ClickStartedAt) >= cfg.ClickTimeout {
		held := now.Sub(s.ClickStartedAt)
		s.Clicking = false
		s.ClickStartedAt = time.Time{}
		s.RawAccum = 0
		s.BacklashAccum = 0
		cmds = append(cmds, CmdClickAborted{Held: held})
	}

	if s.Mode != ModeIdle && !s.LastEventAt.IsZero() && now.Sub(s.LastEventAt) >= cfg.IdleTimeout {
		s.resetTracking()
	}

	if counts := s.Batch.tryFlush(now); len(counts) > 0 {
		cmds = append(cmds, CmdPublishCounts{Counts: counts})
	}

	return cmds
}

// reduceInput handles one timestamped external event.
func reduceInput(s *DialState, e Event, at time.Time, cfg DialConfig) []Command {
	var cmds []Command

	switch ev := e.(type) {
	case Rotate, Click:
		// Any device event wakes an idle dial with a single buzz.
		if s.Mode == ModeIdle {
			s.Mode = ModeActive
			cmds = append(cmds, CmdBuzz{})
		}
		s.LastEventAt = at

		if c, ok := ev.(Click); ok {
			cmds = append(cmds, reduceClick(s, c.Pressed, at, cfg)...)
		} else {
			cmds = append(cmds, reduceRotate(s, ev.(Rotate).Delta, at, cfg)...)
		}

	case SetVolume:
		// Remote absolute set; applied only while idle so it never fights a
		// gesture in progress.
		if s.Mode != ModeIdle {
			return cmds
		}
		s.Volume = clampVolume(float64(ev.Level))
		if r := int(math.Round(s.Volume)); r != s.LastPrinted {
			s.LastPrinted = r
			s.LastPrintAt = at
			cmds = append(cmds, CmdPublishVolume{Level: r})
		}
	}

	return cmds
}

func reduceClick(s *DialState, pressed bool, at time.Time, cfg DialConfig) []Command {
	if pressed {
		if s.Clicking {
			return nil
		}
		s.Clicking = true
		s.ClickStartedAt = at
		// A press cancels any in-flight rotation: rotation and click are
		// mutually exclusive gestures.
		s.RawAccum = 0
		s.BacklashAccum = 0
		if s.Mode == ModeBacklash {
			s.Mode = ModeActive
			s.PreBacklashDir = 0
		}
		return nil
	}

	// Release without a tracked press (e.g. after a timeout abort) is noise.
	if !s.Clicking {
		return nil
	}
	s.Clicking = false
	s.ClickStartedAt = time.Time{}
	s.Batch.push("click", at, cfg.BatchWindow)
	return nil
}

func reduceRotate(s *DialState, delta int32, at time.Time, cfg DialConfig) []Command {
	// Rotation while the button is held is ignored entirely.
	if s.Clicking {
		return nil
	}

	var cmds []Command
	dir := sign(delta)
	wasBacklash := s.Mode == ModeBacklash

	// Backlash detection: a direction reversal may be mechanical slack.
	if dir != 0 {
		switch {
		case s.LastRawDir != 0 && dir != s.LastRawDir:
			if s.Mode != ModeBacklash {
				s.Mode = ModeBacklash
				s.PreBacklashDir = s.LastRawDir
				// The pending accumulator belongs to the abandoned direction.
				s.RawAccum = 0
				s.BacklashAccum = delta
			} else {
				s.BacklashAccum += delta
			}
			s.ConsistentDirCount = 1

		case dir == s.LastRawDir:
			s.ConsistentDirCount++
			if s.Mode == ModeBacklash {
				s.BacklashAccum += delta
			}

		default:
			// First movement after a reset.
			s.ConsistentDirCount = 1
		}
	}
	s.LastRawDir = dir

	// Backlash exit policy.
	exited := false
	if s.Mode == ModeBacklash {
		switch {
		case dir == s.PreBacklashDir && s.ConsistentDirCount >= cfg.BacklashCancel:
			// False-positive reversal: silently merge the buffer back.
			s.exitBacklash()
			exited = true

		case s.ConsistentDirCount >= cfg.BacklashConfirm:
			// The reversal was real; acknowledge it once.
			s.exitBacklash()
			cmds = append(cmds, CmdBuzz{})
			exited = true
		}
	}

	// Normal accumulation. An event processed in (or exiting) backlash is
	// already captured in the transferred buffer; adding it again would
	// double-count.
	if s.Mode != ModeBacklash && !wasBacklash && !exited {
		s.RawAccum += delta
	}

	// Adaptive sensitivity tracks rotation speed on every event.
	s.SmoothedMag = cfg.SmoothingAlpha*math.Abs(float64(delta)) + (1-cfg.SmoothingAlpha)*s.SmoothedMag

	// Notch conversion only runs outside backlash; a backlash exit
	// re-validates the merged accumulator immediately.
	if s.Mode != ModeBacklash {
		cmds = append(cmds, convertNotches(s, at, cfg)...)
	}

	return cmds
}

// exitBacklash returns to active tracking, transferring the buffered
// rotation into the live accumulator.
func (s *DialState) exitBacklash() {
	s.Mode = ModeActive
	s.RawAccum += s.BacklashAccum
	s.BacklashAccum = 0
	s.PreBacklashDir = 0
}

// convertNotches drains whole notches from the raw accumulator into volume
// changes. After the loop the accumulator is strictly smaller in magnitude
// than the current threshold.
func convertNotches(s *DialState, at time.Time, cfg DialConfig) []Command {
	var cmds []Command
	threshold := int32(notchThreshold(cfg, s.SmoothedMag))

	for s.RawAccum >= threshold || s.RawAccum <= -threshold {
		step := 1.0
		if s.RawAccum < 0 {
			step = -1.0
			s.RawAccum += threshold
		} else {
			s.RawAccum -= threshold
		}

		unclamped := s.Volume + step
		s.Volume = clampVolume(unclamped)
		if unclamped != s.Volume {
			// Boundary bump: the user hit the end of the range.
			cmds = append(cmds, CmdBuzz{})
		}

		if cmd, ok := emitVolume(s, at, cfg); ok {
			cmds = append(cmds, cmd)
		}
	}

	return cmds
}

// emitVolume applies the emission suppression rule: decade crossings emit
// immediately; any other change waits out the minimum interval.
func emitVolume(s *DialState, at time.Time, cfg DialConfig) (Command, bool) {
	r := int(math.Round(s.Volume))
	crossedDecade := r/10 != s.LastPrinted/10
	changed := r != s.LastPrinted

	if !crossedDecade && !(changed && at.Sub(s.LastPrintAt) >= cfg.EmitInterval) {
		return nil, false
	}
	if !changed {
		return nil, false
	}

	s.LastPrinted = r
	s.LastPrintAt = at
	return CmdPublishVolume{Level: r}, true
}

// notchThreshold maps the smoothed rotation magnitude onto raw units per
// notch via a two-segment piecewise-linear curve, clamped at both ends.
func notchThreshold(cfg DialConfig, mag float64) float64 {
	if mag < cfg.MagMid {
		t := cfg.NotchMin + (mag-cfg.MagLow)/(cfg.MagMid-cfg.MagLow)*(cfg.NotchMid-cfg.NotchMin)
		return clampFloat(t, cfg.NotchMin, cfg.NotchMid)
	}
	t := cfg.NotchMid + (mag-cfg.MagMid)/(cfg.MagHigh-cfg.MagMid)*(cfg.NotchMax-cfg.NotchMid)
	return clampFloat(t, cfg.NotchMid, cfg.NotchMax)
}

func sign(v int32) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clampVolume(v float64) float64 {
	return clampFloat(v, minVolume, maxVolume)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
