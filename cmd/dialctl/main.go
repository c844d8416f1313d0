package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// dialctl - Command-line IPC Client
// ============================================================================
// This tool sends commands to the diald daemon via IPC.
//
// Usage:
//   dialctl rotate 120
//   dialctl click
//   dialctl press
//   dialctl release
//   dialctl set-volume 35
//   dialctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/diald.sock)
// ============================================================================

// Event types (duplicated from the daemon package for a standalone binary)
type Rotate struct {
	Delta int32 `json:"delta"`
}

type Click struct {
	Pressed bool `json:"pressed"`
}

type SetVolume struct {
	Level int `json:"level"`
}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StateSnapshot mirrors the daemon's status payload
type StateSnapshot struct {
	Volume   int    `json:"volume"`
	Mode     string `json:"mode"`
	Clicking bool   `json:"clicking"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	State  *StateSnapshot `json:"state,omitempty"`
}

func main() {
	socketPath := "/tmp/diald.sock"

	// Parse arguments
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Parse command
	var envelopes []EventEnvelope

	switch args[0] {
	case "rotate":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: rotate requires a delta value\n")
			os.Exit(1)
		}
		delta, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid delta value: %v\n", err)
			os.Exit(1)
		}
		envelopes = append(envelopes, mustEnvelope("rotate", Rotate{Delta: int32(delta)}))

	case "press":
		envelopes = append(envelopes, mustEnvelope("click", Click{Pressed: true}))

	case "release":
		envelopes = append(envelopes, mustEnvelope("click", Click{Pressed: false}))

	case "click":
		// Full press+release gesture in one command.
		envelopes = append(envelopes,
			mustEnvelope("click", Click{Pressed: true}),
			mustEnvelope("click", Click{Pressed: false}))

	case "set-volume", "set":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: set-volume requires a level\n")
			os.Exit(1)
		}
		level, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid level: %v\n", err)
			os.Exit(1)
		}
		envelopes = append(envelopes, mustEnvelope("set_volume", SetVolume{Level: level}))

	case "status":
		envelopes = append(envelopes, EventEnvelope{Type: "status"})

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	// Send events
	responses, err := sendEnvelopes(socketPath, envelopes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	for _, resp := range responses {
		if resp.State != nil {
			fmt.Printf("volume=%d mode=%s clicking=%t\n", resp.State.Volume, resp.State.Mode, resp.State.Clicking)
			continue
		}
		fmt.Println("ok")
	}
}

func mustEnvelope(eventType string, payload any) EventEnvelope {
	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: marshal %s: %v\n", eventType, err)
		os.Exit(1)
	}
	return EventEnvelope{Type: eventType, Data: data}
}

func sendEnvelopes(socketPath string, envelopes []EventEnvelope) ([]IPCResponse, error) {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	responses := make([]IPCResponse, 0, len(envelopes))

	for _, env := range envelopes {
		data, err := json.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("marshal envelope: %w", err)
		}

		// Send event (line-delimited JSON)
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return nil, fmt.Errorf("send event: %w", err)
		}

		// Read response
		var resp IPCResponse
		if err := decoder.Decode(&resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if resp.Status == "error" {
			return nil, fmt.Errorf("daemon error: %s", resp.Error)
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `dialctl - Control the diald daemon via IPC

Usage:
  dialctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/diald.sock)

Commands:
  rotate <delta>        Inject a raw rotation delta (positive = clockwise)
  press                 Inject a button press
  release               Inject a button release
  click                 Inject a full press+release gesture
  set-volume, set <n>   Set absolute volume level (0-100, applied while idle)
  status                Print the daemon's current state
  help, -h, --help      Show this help message

Examples:
  dialctl rotate 250
  dialctl click
  dialctl set-volume 35
  dialctl -socket /var/run/diald.sock status
`)
}
