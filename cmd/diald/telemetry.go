package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Telemetry Port - WebSocket publisher + inbound command reader
// ============================================================================
// The telemetry port best-effort publishes semantic events to a remote
// subscriber and accepts asynchronous volume-set commands from it. The wire
// format is JSON text frames: {"topic": "...", "payload": ...}.
//
// Everything here is optional plumbing: when the port is absent or the
// connection is down, publishes are dropped and the daemon carries on.
// ============================================================================

// telemetryFrame is the wire envelope in both directions.
type telemetryFrame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TelemetryClient manages the WebSocket connection to the subscriber.
type TelemetryClient struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	url    string
	logger *slog.Logger

	// inbound receives remote commands (currently SetVolume) for the
	// daemon loop to drain.
	inbound chan<- Event
}

// NewTelemetryClient validates the URL and returns an unconnected client.
// Call Run to connect and keep the connection alive.
func NewTelemetryClient(wsURL string, inbound chan<- Event, logger *slog.Logger) (*TelemetryClient, error) {
	if _, err := url.Parse(wsURL); err != nil {
		return nil, fmt.Errorf("invalid telemetry URL: %w", err)
	}
	return &TelemetryClient{
		url:     wsURL,
		logger:  logger,
		inbound: inbound,
	}, nil
}

// Run connects with backoff and pumps inbound frames until ctx is canceled.
// Each read-loop exit tears the connection down and reconnects.
func (c *TelemetryClient) Run(ctx context.Context) error {
	backoff := 500 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for {
		if err := c.connect(); err != nil {
			c.logger.Warn("telemetry connect failed; retrying", "url", c.url, "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.logger.Info("telemetry connected", "url", c.url)
		backoff = 500 * time.Millisecond

		if err := c.readLoop(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("telemetry connection lost", "error", err)
		}
		c.close()

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *TelemetryClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}
	conn, _, err := d.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	return nil
}

// readLoop parses inbound frames and forwards recognized commands to the
// daemon. It returns when the connection drops or ctx is canceled.
func (c *TelemetryClient) readLoop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no telemetry connection")
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame telemetryFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Debug("dropping malformed telemetry frame", "error", err)
			continue
		}

		switch frame.Topic {
		case topicSetVolume:
			var sv SetVolume
			if err := json.Unmarshal(frame.Payload, &sv); err != nil {
				c.logger.Debug("dropping malformed set_volume payload", "error", err)
				continue
			}
			select {
			case c.inbound <- sv:
			case <-ctx.Done():
				return nil
			}

		default:
			c.logger.Debug("ignoring telemetry frame", "topic", frame.Topic)
		}
	}
}

// Publish sends one (topic, payload) frame. Best-effort: when disconnected
// the frame is dropped; a write failure tears the connection down so Run
// reconnects.
func (c *TelemetryClient) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("telemetry payload marshal failed", "topic", topic, "error", err)
		return
	}
	frame, err := json.Marshal(telemetryFrame{Topic: topic, Payload: data})
	if err != nil {
		c.logger.Warn("telemetry frame marshal failed", "topic", topic, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.logger.Debug("telemetry disconnected; dropping frame", "topic", topic)
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn("telemetry write failed", "topic", topic, "error", err)
		c.conn.Close()
		c.conn = nil
	}
}

func (c *TelemetryClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
