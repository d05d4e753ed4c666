package teesplit

import (
	"errors"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

// Sink is one output destination: an open, non-blocking file descriptor
// plus the two offsets that bound its outstanding work. Grounded on
// teebuff.c's struct sink_info (spec §3's Sink Record).
type Sink struct {
	name string
	fd   int

	// posWritten is bytes successfully handed to the kernel.
	posWritten int64
	// posToWrite is the upper bound this sink is currently permitted to
	// write up to.
	posToWrite int64
	// active is false once the sink's reader has closed (broken pipe); an
	// inactive sink is excluded from reclamation and future assignment.
	active bool

	// pollable is true for FIFOs/sockets/char devices, which epoll/kqueue
	// can register. Regular files cannot be registered (EPERM on Linux)
	// and are instead always treated as write-ready — see DESIGN.md.
	pollable bool
}

// Name reports the sink's diagnostic name.
func (s *Sink) Name() string { return s.name }

// Active reports whether the sink is still accepting writes.
func (s *Sink) Active() bool { return s.active }

// Written reports the number of bytes this sink has had acknowledged by
// the kernel so far.
func (s *Sink) Written() int64 { return s.posWritten }

// idle reports whether this sink has no outstanding assigned work.
func (s *Sink) idle() bool { return s.posWritten == s.posToWrite }

// writePass issues one non-blocking write for every active, write-ready
// sink with outstanding assigned bytes, then reclaims pool memory below
// the new watermark. Returns the total number of bytes written across all
// sinks this pass (spec §4.3's "Write operation" + "Reclamation").
//
// ready reports whether a given sink is currently writable: for pollable
// sinks this reflects the last readiness-multiplexer result; for
// non-pollable (regular file) sinks it is always true.
//
// onBrokenPipe, if non-nil, is invoked for every sink that transitions to
// inactive this pass, so the caller can log the event without a second
// scan over sinks.
func writePass(sinks []*Sink, pool *bufferPool, sourcePosRead int64, ready func(*Sink) bool, onBrokenPipe func(*Sink)) (int64, error) {
	var written int64

	for _, s := range sinks {
		if !s.active || s.posWritten >= s.posToWrite || !ready(s) {
			continue
		}

		window, err := pool.sinkWindow(s.posWritten, s.posToWrite)
		if err != nil {
			return written, err
		}

		n, err := unix.Write(s.fd, window)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EPIPE) {
				s.active = false
				if onBrokenPipe != nil {
					onBrokenPipe(s)
				}
				continue
			}
			return written, &FatalError{Kind: KindOutput, Sink: s.name, Err: err}
		}
		s.posWritten += int64(n)
		written += int64(n)
	}

	minPos := sourcePosRead
	for _, s := range sinks {
		if s.active && s.posWritten < minPos {
			minPos = s.posWritten
		}
	}
	pool.reclaim(minPos)

	return written, nil
}

// anyActive reports whether at least one sink is still active.
func anyActive(sinks []*Sink) bool {
	for _, s := range sinks {
		if s.active {
			return true
		}
	}
	return false
}

// allIdle reports whether every active sink has caught up to whatever it
// has most recently been assigned (spec §4.4's termination check, run
// after an assign+write pass so the scheduler has already had its chance
// to hand out any further work this iteration).
func allIdle(sinks []*Sink) bool {
	for _, s := range sinks {
		if s.active && !s.idle() {
			return false
		}
	}
	return true
}

// pendingCount returns the number of active sinks that still have bytes
// to catch up to sourcePosRead (spec §4.4 step 1's active_fds).
func pendingCount(sinks []*Sink, sourcePosRead int64) int {
	n := 0
	for _, s := range sinks {
		if s.active && s.posWritten < sourcePosRead {
			n++
		}
	}
	return n
}

// inactiveNames returns the names of inactive (broken-pipe) sinks in a
// deterministic order, for the one-line summary Loop.Run logs on exit.
// Mirrors sql/export/export.go's use of slices.SortFunc for stable log
// output; unlike that June-2022-vintage call site, this module's
// golang.org/x/exp pin postdates the package's switch to a three-way
// comparator, so the less-function shape doesn't apply here.
func inactiveNames(sinks []*Sink) []string {
	var names []string
	for _, s := range sinks {
		if !s.active {
			names = append(names, s.name)
		}
	}
	slices.SortFunc(names, func(a, b string) int { return strings.Compare(a, b) })
	return names
}
