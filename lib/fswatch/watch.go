// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fswatch

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/sourcetree/lib/clock"
)

// DebounceWindow is how long the watcher waits after the first event
// of a burst before delivering it.
const DebounceWindow = 50 * time.Millisecond

// Kind classifies a file event.
type Kind int

const (
	// Created means the file appeared, by creation or by a rename
	// onto its name.
	Created Kind = iota

	// Changed means the file was written and closed.
	Changed

	// Deleted means the file was removed or renamed away.
	Deleted
)

func (kind Kind) String() string {
	switch kind {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("Kind(%d)", int(kind))
	}
}

// Event is a coalesced change to the watched file.
type Event struct {
	Kind Kind
	Path string
}

const watchMask = unix.IN_CREATE | unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO |
	unix.IN_DELETE | unix.IN_MOVED_FROM

// Watcher delivers events for one file. Create one with Watch.
type Watcher struct {
	path    string
	name    string
	fd      int
	clock   clock.Clock
	logger  *slog.Logger
	handler func(Event)

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mutex   sync.Mutex
	closed  bool
	pending Kind
	timer   *clock.Timer
}

// Watch starts watching path and calls handler with each coalesced
// event. The handler runs on a clock timer goroutine, once per burst,
// and no new call starts after Close returns. The parent directory
// must exist.
func Watch(path string, clk clock.Clock, logger *slog.Logger, handler func(Event)) (*Watcher, error) {
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	directory := filepath.Dir(absolutePath)

	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, directory, watchMask); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch on %s: %w", directory, err)
	}

	watcher := &Watcher{
		path:    absolutePath,
		name:    filepath.Base(absolutePath),
		fd:      fd,
		clock:   clk,
		logger:  logger.With("path", absolutePath),
		handler: handler,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.readLoop()
	return watcher, nil
}

// Path returns the absolute path being watched.
func (watcher *Watcher) Path() string {
	return watcher.path
}

// Close stops the watcher, cancels any pending delivery, and releases
// the inotify descriptor. Safe to call multiple times.
func (watcher *Watcher) Close() error {
	watcher.closeOnce.Do(func() {
		close(watcher.stop)
		<-watcher.done

		watcher.mutex.Lock()
		watcher.closed = true
		if watcher.timer != nil {
			watcher.timer.Stop()
			watcher.timer = nil
		}
		watcher.mutex.Unlock()
	})
	return nil
}

// readLoop polls the inotify descriptor with a 100ms timeout so the
// goroutine stays responsive to Close.
func (watcher *Watcher) readLoop() {
	defer close(watcher.done)
	defer unix.Close(watcher.fd)

	buffer := make([]byte, 4096)
	for {
		select {
		case <-watcher.stop:
			return
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(watcher.fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			watcher.logger.Error("polling inotify descriptor failed, watcher stopped", "error", err)
			return
		}
		if count == 0 {
			continue
		}

		bytesRead, err := unix.Read(watcher.fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			watcher.logger.Error("reading inotify descriptor failed, watcher stopped", "error", err)
			return
		}

		for _, mask := range matchingMasks(buffer[:bytesRead], watcher.name) {
			if kind, ok := kindOf(mask); ok {
				watcher.record(kind)
			}
		}
	}
}

// record folds kind into the pending burst, opening the debounce
// window if none is open. Within a burst, Created absorbs a following
// Changed (a new file is usually created and then written); otherwise
// the latest kind wins.
func (watcher *Watcher) record(kind Kind) {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	if watcher.closed {
		return
	}

	if watcher.timer == nil {
		watcher.pending = kind
		watcher.timer = watcher.clock.AfterFunc(DebounceWindow, watcher.deliver)
		return
	}
	if watcher.pending == Created && kind == Changed {
		return
	}
	watcher.pending = kind
}

func (watcher *Watcher) deliver() {
	watcher.mutex.Lock()
	if watcher.closed || watcher.timer == nil {
		watcher.mutex.Unlock()
		return
	}
	kind := watcher.pending
	watcher.timer = nil
	watcher.mutex.Unlock()

	watcher.logger.Debug("file event", "kind", kind)
	watcher.handler(Event{Kind: kind, Path: watcher.path})
}

func kindOf(mask uint32) (Kind, bool) {
	switch {
	case mask&(unix.IN_DELETE|unix.IN_MOVED_FROM) != 0:
		return Deleted, true
	case mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0:
		return Created, true
	case mask&unix.IN_CLOSE_WRITE != 0:
		return Changed, true
	}
	return 0, false
}

// matchingMasks returns the masks of events in buffer whose name is
// targetName, in order. Layout from inotify(7):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded to alignment
//	};
func matchingMasks(buffer []byte, targetName string) []uint32 {
	var masks []uint32
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}

		if nameLength > 0 {
			name := nullTerminatedString(buffer[offset+unix.SizeofInotifyEvent : offset+eventSize])
			if name == targetName {
				masks = append(masks, mask)
			}
		}

		offset += eventSize
	}
	return masks
}

// nullTerminatedString extracts a string from a null-padded byte
// slice, stopping at the first null byte.
func nullTerminatedString(data []byte) string {
	for index, value := range data {
		if value == 0 {
			return string(data[:index])
		}
	}
	return string(data)
}
