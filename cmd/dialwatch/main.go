package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// dialwatch tails the diald telemetry stream: volume changes on dial/volume,
// coalesced semantic events on dial/events. With -set-volume it publishes a
// single dial/set_volume frame and exits, which the daemon applies while the
// dial is idle.

type telemetryFrame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

type labelCount struct {
	Label string `json:"label"`
	Count uint32 `json:"count"`
}

func main() {
	var (
		wsURL     = flag.String("ws", "ws://127.0.0.1:9001", "Telemetry websocket URL")
		setVolume = flag.Int("set-volume", -1, "Publish a single set_volume frame (0-100) and exit")
	)
	flag.Parse()

	// Parse websocket URL
	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	// Handle shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	// Connect to websocket
	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// Handle single publish mode
	if *setVolume >= 0 {
		if *setVolume > 100 {
			log.Fatalf("set-volume must be between 0 and 100")
		}
		payload, _ := json.Marshal(map[string]int{"level": *setVolume})
		frame, _ := json.Marshal(telemetryFrame{Topic: "dial/set_volume", Payload: payload})
		writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, frame)
		writeMu.Unlock()
		if err != nil {
			log.Fatalf("failed to publish: %v", err)
		}
		fmt.Printf("[SET] volume=%d\n", *setVolume)
		return
	}

	log.Printf("connected! (press Ctrl+C to exit)")

	// Set up ping/pong handlers for connection health
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Start ping ticker to keep connection alive
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	// Track last volume for change detection
	var lastVolume *int

	// Message reading loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}

			switch messageType {
			case websocket.TextMessage:
				handleFrame(message, &lastVolume)
			case websocket.BinaryMessage:
				fmt.Printf("[BINARY] %d bytes\n", len(message))
			case websocket.CloseMessage:
				fmt.Printf("[CLOSE]\n")
				return
			}
		}
	}()

	// Wait for shutdown signal or connection close
	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleFrame processes one incoming telemetry frame
func handleFrame(message []byte, lastVolume **int) {
	var frame telemetryFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch frame.Topic {
	case "dial/volume":
		var level int
		if err := json.Unmarshal(frame.Payload, &level); err != nil {
			fmt.Printf("[dial/volume] %s\n", string(frame.Payload))
			return
		}
		if *lastVolume == nil || **lastVolume != level {
			v := level
			*lastVolume = &v
			fmt.Printf("[VOLUME] %d\n", level)
		}

	case "dial/events":
		var counts []labelCount
		if err := json.Unmarshal(frame.Payload, &counts); err != nil {
			fmt.Printf("[dial/events] %s\n", string(frame.Payload))
			return
		}
		for _, c := range counts {
			fmt.Printf("[EVENT] %s x%d\n", c.Label, c.Count)
		}

	default:
		prettyJSON, _ := json.MarshalIndent(frame, "", "  ")
		fmt.Printf("[FRAME]\n%s\n\n", string(prettyJSON))
	}
}
