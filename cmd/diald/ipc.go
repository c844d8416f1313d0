package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server lets external clients inject JSON events into the daemon
// via a Unix domain socket. This enables:
//   - Remote control via dialctl
//   - Scripting and automation
//   - Exercising the state machine without a physical dial
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "event_name", "data": {...}}
//   - Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
//   - A {"type": "status"} request additionally returns a state snapshot.
// ============================================================================

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string         `json:"status"`          // "ok" or "error"
	Error  string         `json:"error,omitempty"` // error message if status == "error"
	State  *StateSnapshot `json:"state,omitempty"` // present for status requests
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Make socket accessible (consider security implications in production)
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Exit cleanly on shutdown/close.
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(conn, events, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		// Status is a request/reply exchange, not an injected event.
		var probe EventEnvelope
		if err := json.Unmarshal([]byte(line), &probe); err == nil && probe.Type == "status" {
			respondStatus(encoder, events, logger)
			continue
		}

		ev, err := UnmarshalEvent([]byte(line))
		if err != nil {
			respond(encoder, logger, IPCResponse{Status: "error", Error: fmt.Sprintf("parse event: %v", err)})
			continue
		}

		select {
		case events <- ev:
			respond(encoder, logger, IPCResponse{Status: "ok"})
		default:
			respond(encoder, logger, IPCResponse{Status: "error", Error: "event queue full"})
		}
	}

	logger.Debug("IPC connection closed")
}

// respondStatus routes a snapshot request through the daemon loop so the
// reply reflects a coherent state, never a concurrent peek.
func respondStatus(encoder *json.Encoder, events chan<- Event, logger *slog.Logger) {
	reply := make(chan StateSnapshot, 1)

	select {
	case events <- SnapshotRequest{Reply: reply}:
	default:
		respond(encoder, logger, IPCResponse{Status: "error", Error: "event queue full"})
		return
	}

	select {
	case snap := <-reply:
		respond(encoder, logger, IPCResponse{Status: "ok", State: &snap})
	case <-time.After(time.Second):
		respond(encoder, logger, IPCResponse{Status: "error", Error: "status timed out"})
	}
}

func respond(encoder *json.Encoder, logger *slog.Logger, resp IPCResponse) {
	if err := encoder.Encode(resp); err != nil {
		logger.Error("IPC failed to send response", "error", err)
	}
}
