package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01
	EV_REL = 0x02

	// The dial reports rotation on REL_DIAL and its button as BTN_0.
	REL_DIAL = 0x07
	BTN_0    = 0x100
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Dial state machine defaults
const (
	defaultTickIntervalMS = 20   // Poll/tick cadence (ms); must stay <= 25ms
	defaultIdleTimeoutSec = 30   // No input for this long resets the gesture state
	defaultClickTimeoutMS = 2000 // A press held past this is aborted, not emitted
	defaultBatchWindowMS  = 250  // Coalescing window for semantic event labels
	defaultEmitIntervalMS = 250  // Minimum spacing between volume emissions

	// Backlash detector: a sustained reversal of this many same-direction
	// events is a real direction change; a brief excursion that returns to
	// the original direction within confirm/divisor events is mechanical
	// noise.
	defaultBacklashConfirm = 25
	backlashCancelDivisor  = 5

	// Adaptive notch threshold: raw units of rotation per volume unit,
	// scaled by an EMA of per-event rotation magnitude.
	defaultSmoothingAlpha = 0.3
	defaultNotchMin       = 200.0 // threshold at magnitude <= 1
	defaultNotchMid       = 400.0 // threshold at magnitude 2
	defaultNotchMax       = 600.0 // threshold at magnitude >= 22
	defaultMagLow         = 1.0
	defaultMagMid         = 2.0
	defaultMagHigh        = 22.0

	// Volume bounds and the level the daemon assumes at start, before any
	// remote sync.
	minVolume          = 0
	maxVolume          = 100
	defaultStartVolume = 50
)

// defaultInputDevice is where the dial usually enumerates; override with
// -device or DIALD_DEVICE.
const defaultInputDevice = "/dev/input/event0"

// Telemetry topics
const (
	topicVolume    = "dial/volume"
	topicEvents    = "dial/events"
	topicSetVolume = "dial/set_volume"
)
