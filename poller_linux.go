//go:build linux

package teesplit

import (
	"golang.org/x/sys/unix"
)

// fdState tracks one registered descriptor's interest and the readiness
// last reported for it.
type fdState struct {
	interest ioEvents
	ready    ioEvents
	active   bool
}

// poller wraps epoll. Adapted from eventloop/poller_linux.go, trimmed to
// this program's needs: a handful of descriptors (stdin plus one per
// sink), no callback dispatch (readiness is polled via readyRead/
// readyWrite after wait), no FD-growth-to-100M ceiling.
type poller struct {
	epfd     int
	eventBuf [64]unix.EpollEvent
	fds      []fdState
	n        int // number of currently-registered descriptors
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{epfd: epfd}, nil
}

func (p *poller) close() error {
	return unix.Close(p.epfd)
}

func (p *poller) ensureSlot(fd int) {
	if fd < len(p.fds) {
		return
	}
	size := len(p.fds)
	for fd >= size {
		if size == 0 {
			size = 1
		} else {
			size *= 2
		}
	}
	grown := make([]fdState, size)
	copy(grown, p.fds)
	p.fds = grown
}

// registerFD starts monitoring fd for the given interest.
func (p *poller) registerFD(fd int, events ioEvents) error {
	p.ensureSlot(fd)
	if p.fds[fd].active {
		return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
			Events: eventsToEpoll(events),
			Fd:     int32(fd),
		})
	}
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: eventsToEpoll(events),
		Fd:     int32(fd),
	})
	if err != nil {
		return err
	}
	p.fds[fd] = fdState{interest: events, active: true}
	p.n++
	return nil
}

// unregisterFD stops monitoring fd.
func (p *poller) unregisterFD(fd int) error {
	if fd >= len(p.fds) || !p.fds[fd].active {
		return nil
	}
	p.fds[fd] = fdState{}
	p.n--
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// empty reports whether any descriptor is currently registered — when
// true, wait has nothing to block on (see loop.go).
func (p *poller) empty() bool { return p.n == 0 }

// wait is the single suspension point (spec §5): one blocking epoll_wait
// call, with no timeout when timeoutMs < 0. Readiness is recorded into
// fds[fd].ready for readyRead/readyWrite to consult; a spurious error is
// fatal and is not retried (EINTR is the one exception, per spec §7/§9,
// since it is not a real failure of the multiplexer).
func (p *poller) wait(timeoutMs int) error {
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 || fd >= len(p.fds) || !p.fds[fd].active {
			continue
		}
		p.fds[fd].ready = epollToEvents(p.eventBuf[i].Events)
	}
	return nil
}

// clearReady resets all recorded readiness, so a wait call that reports no
// events for a descriptor this iteration is correctly read as "not ready".
func (p *poller) clearReady() {
	for i := range p.fds {
		p.fds[i].ready = 0
	}
}

func (p *poller) readyRead(fd int) bool {
	return fd < len(p.fds) && p.fds[fd].ready&eventRead != 0
}

func (p *poller) readyWrite(fd int) bool {
	return fd < len(p.fds) && p.fds[fd].ready&eventWrite != 0
}

func eventsToEpoll(events ioEvents) uint32 {
	var e uint32
	if events&eventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&eventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

// epollToEvents treats EPOLLHUP and EPOLLERR as readiness, as select(2)
// does: a drained pipe whose writer has closed reports only EPOLLHUP, and
// the read that follows is what returns the zero-byte EOF; likewise a
// write after EPOLLERR is what surfaces EPIPE.
func epollToEvents(e uint32) ioEvents {
	var events ioEvents
	if e&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		events |= eventRead
	}
	if e&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		events |= eventWrite
	}
	return events
}
