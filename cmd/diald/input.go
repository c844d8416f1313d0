package main

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// decodeEvent maps a raw kernel event onto a dial Event. Everything the
// state machine doesn't care about (sync reports, other axes, key repeats)
// is dropped here.
func decodeEvent(ev inputEvent) (Event, bool) {
	switch ev.Type {
	case EV_REL:
		if ev.Code == REL_DIAL {
			return Rotate{Delta: ev.Value}, true
		}
	case EV_KEY:
		if ev.Code == BTN_0 {
			switch ev.Value {
			case evValuePress:
				return Click{Pressed: true}, true
			case evValueRelease:
				return Click{Pressed: false}, true
			}
		}
	}
	return nil, false
}

// runInputReader owns the device handle lifecycle: open with retry, read
// until the device goes away, tell the daemon, reopen. The open failure is
// logged once per outage so a missing device doesn't flood the log.
//
// Exits only when ctx is canceled.
func runInputReader(ctx context.Context, path string, events chan<- Event, logger *slog.Logger) error {
	openErrLogged := false

	for {
		f, err := os.Open(path)
		if err != nil {
			if !openErrLogged {
				logger.Warn("failed to open input device; retrying", "device", path, "error", err,
					"tip", "run as root or add user to 'input' group")
				openErrLogged = true
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		openErrLogged = false
		logger.Info("opened input device", "device", path, "name", evdevName(f))

		err = readDeviceEvents(ctx, f, events, logger)
		f.Close()
		if ctx.Err() != nil {
			return nil
		}

		logger.Warn("lost input device; reopening", "device", path, "error", err)
		select {
		case events <- DeviceLost{}:
		case <-ctx.Done():
			return nil
		}
	}
}
