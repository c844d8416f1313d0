package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events - inputs to the reducer
// ============================================================================
// Events represent everything that can happen to the dial state machine:
// raw device input, the periodic tick, device loss, and remote commands
// arriving over telemetry or IPC. The reducer consumes Events one at a time
// and never performs I/O.
// ============================================================================

// Event is the marker interface for all reducer inputs.
type Event interface {
	eventMarker()
}

// Tick is emitted by the daemon loop at the poll cadence. All timeouts
// (idle, click, batch flush) are wall-clock comparisons made on Tick.
type Tick struct {
	Now time.Time
}

func (Tick) eventMarker() {}

// TimedEvent wraps an external event with its arrival timestamp so the
// reducer never has to consult the clock itself.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// Rotate is a raw rotation delta from the dial. Positive is clockwise.
type Rotate struct {
	Delta int32 `json:"delta"`
}

func (Rotate) eventMarker() {}

// Click is a button transition from the dial.
type Click struct {
	Pressed bool `json:"pressed"`
}

func (Click) eventMarker() {}

// DeviceLost indicates the input device disappeared. The state machine
// resets to a clean idle state; reopening the device is the reader's job.
type DeviceLost struct{}

func (DeviceLost) eventMarker() {}

// SetVolume is an absolute volume request from a remote subscriber or IPC.
// It is applied only while the dial is idle, so it never fights a gesture
// the user has in progress.
type SetVolume struct {
	Level int `json:"level"`
}

func (SetVolume) eventMarker() {}

// SnapshotRequest asks for a coherent copy of the externally visible state.
// The reply is delivered by the effects layer, keeping the reducer pure.
type SnapshotRequest struct {
	Reply chan StateSnapshot
}

func (SnapshotRequest) eventMarker() {}

// StateSnapshot is the externally visible daemon state.
type StateSnapshot struct {
	Volume   int    `json:"volume"`
	Mode     string `json:"mode"`
	Clicking bool   `json:"clicking"`
}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps events for JSON serialization over IPC.
// Since Go doesn't have union types, we use a type discriminator.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "rotate":
		var e Rotate
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Rotate: %w", err)
		}
		return e, nil

	case "click":
		var e Click
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Click: %w", err)
		}
		return e, nil

	case "set_volume":
		var e SetVolume
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SetVolume: %w", err)
		}
		return e, nil

	case "device_lost":
		return DeviceLost{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case Rotate:
		env.Type = "rotate"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal Rotate: %w", err)
		}
		env.Data = data

	case Click:
		env.Type = "click"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal Click: %w", err)
		}
		env.Data = data

	case SetVolume:
		env.Type = "set_volume"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetVolume: %w", err)
		}
		env.Data = data

	case DeviceLost:
		env.Type = "device_lost"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
