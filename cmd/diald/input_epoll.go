//go:build linux

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// readDeviceEvents reads input events from one device using epoll with a
// short wait timeout, so context cancellation is honored without needing to
// interrupt a blocking read.
//
// Returns a non-nil error when the device goes away (unplug, revoke); the
// caller decides whether to reopen.
func readDeviceEvents(ctx context.Context, f *os.File, events chan<- Event, logger *slog.Logger) error {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	fd := int(f.Fd())
	event := unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		return fmt.Errorf("epoll_ctl_add: %w", err)
	}

	// Reusable buffers
	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Short timeout keeps shutdown latency bounded.
		n, err := unix.EpollWait(epfd, epollEvents, 500)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return fmt.Errorf("device error/hangup: %s", f.Name())
			}

			if _, err := io.ReadFull(f, buf); err != nil {
				return fmt.Errorf("read from %s: %w", f.Name(), err)
			}

			reader.Reset(buf)
			var raw inputEvent
			if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
				// Skip malformed events
				continue
			}

			ev, ok := decodeEvent(raw)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// evdevName queries the device name via the EVIOCGNAME ioctl. Best-effort:
// an empty string means the query failed.
func evdevName(f *os.File) string {
	var name [256]byte

	// EVIOCGNAME(len) = _IOC(_IOC_READ, 'E', 0x06, len)
	const eviocgname = uintptr(2<<30 | 256<<16 | 'E'<<8 | 0x06)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), eviocgname, uintptr(unsafe.Pointer(&name[0])))
	if errno != 0 {
		return ""
	}
	if i := bytes.IndexByte(name[:], 0); i >= 0 {
		return string(name[:i])
	}
	return string(name[:])
}
