package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"
)

// TestHandleIPCConnection_InjectEvent tests that a well-formed event line is
// queued and acknowledged.
func TestHandleIPCConnection_InjectEvent(t *testing.T) {
	server, client := net.Pipe()
	events := make(chan Event, 4)
	go handleIPCConnection(server, events, testLogger())
	defer client.Close()

	fmt.Fprintln(client, `{"type":"rotate","data":{"delta":120}}`)

	var resp IPCResponse
	if err := json.NewDecoder(client).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected ok, got %+v", resp)
	}

	select {
	case ev := <-events:
		if r, ok := ev.(Rotate); !ok || r.Delta != 120 {
			t.Errorf("expected Rotate{120}, got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not queued")
	}
}

// TestHandleIPCConnection_BadEvent tests the error response for junk input.
func TestHandleIPCConnection_BadEvent(t *testing.T) {
	server, client := net.Pipe()
	events := make(chan Event, 4)
	go handleIPCConnection(server, events, testLogger())
	defer client.Close()

	fmt.Fprintln(client, `{"type":"frobnicate"}`)

	var resp IPCResponse
	if err := json.NewDecoder(client).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "error" || resp.Error == "" {
		t.Errorf("expected error response, got %+v", resp)
	}
	if len(events) != 0 {
		t.Error("junk input must not queue an event")
	}
}

// TestHandleIPCConnection_QueueFull tests backpressure: a full event queue
// yields an error instead of blocking the daemon.
func TestHandleIPCConnection_QueueFull(t *testing.T) {
	server, client := net.Pipe()
	events := make(chan Event) // unbuffered, nobody reading
	go handleIPCConnection(server, events, testLogger())
	defer client.Close()

	fmt.Fprintln(client, `{"type":"click","data":{"pressed":true}}`)

	var resp IPCResponse
	if err := json.NewDecoder(client).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("expected error on full queue, got %+v", resp)
	}
}

// TestHandleIPCConnection_Status tests the snapshot request/reply exchange.
func TestHandleIPCConnection_Status(t *testing.T) {
	server, client := net.Pipe()
	events := make(chan Event, 1)
	go handleIPCConnection(server, events, testLogger())
	defer client.Close()

	// Stand in for the daemon loop: answer the snapshot request.
	go func() {
		ev := <-events
		req, ok := ev.(SnapshotRequest)
		if !ok {
			t.Errorf("expected SnapshotRequest, got %#v", ev)
			return
		}
		req.Reply <- StateSnapshot{Volume: 42, Mode: "active", Clicking: false}
	}()

	fmt.Fprintln(client, `{"type":"status"}`)

	scanner := bufio.NewScanner(client)
	if !scanner.Scan() {
		t.Fatalf("no response: %v", scanner.Err())
	}
	var resp IPCResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.State == nil {
		t.Fatalf("expected ok with state, got %+v", resp)
	}
	if resp.State.Volume != 42 || resp.State.Mode != "active" {
		t.Errorf("unexpected snapshot: %+v", resp.State)
	}
}
