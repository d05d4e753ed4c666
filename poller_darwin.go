//go:build darwin

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

// poller wraps kqueue. Adapted from eventloop/poller_darwin.go, trimmed
// the same way as its Linux sibling — see poller_linux.go's doc comment.
type poller struct {
	kq       int
	eventBuf [64]unix.Kevent_t
	fds      []fdState
	n        int
}

func newPoller() (*poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &poller{kq: kq}, nil
}

func (p *poller) close() error {
	return unix.Close(p.kq)
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

func (p *poller) registerFD(fd int, events ioEvents) error {
	p.ensureSlot(fd)
	var oldEvents ioEvents
	if p.fds[fd].active {
		oldEvents = p.fds[fd].interest
	}

	if del := oldEvents &^ events; del != 0 {
		if kevs := eventsToKevents(fd, del, unix.EV_DELETE); len(kevs) > 0 {
			_, _ = unix.Kevent(p.kq, kevs, nil, nil)
		}
	}
	if add := events &^ oldEvents; add != 0 {
		if kevs := eventsToKevents(fd, add, unix.EV_ADD|unix.EV_ENABLE); len(kevs) > 0 {
			if _, err := unix.Kevent(p.kq, kevs, nil, nil); err != nil {
				return err
			}
		}
	}

	if !p.fds[fd].active {
		p.n++
	}
	p.fds[fd] = fdState{interest: events, active: true}
	return nil
}

func (p *poller) unregisterFD(fd int) error {
	if fd >= len(p.fds) || !p.fds[fd].active {
		return nil
	}
	events := p.fds[fd].interest
	p.fds[fd] = fdState{}
	p.n--
	if kevs := eventsToKevents(fd, events, unix.EV_DELETE); len(kevs) > 0 {
		_, _ = unix.Kevent(p.kq, kevs, nil, nil)
	}
	return nil
}

func (p *poller) empty() bool { return p.n == 0 }

func (p *poller) wait(timeoutMs int) error {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 || fd >= len(p.fds) || !p.fds[fd].active {
			continue
		}
		p.fds[fd].ready |= keventToEvents(&p.eventBuf[i])
	}
	return nil
}

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

func eventsToKevents(fd int, events ioEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&eventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&eventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) ioEvents {
	var events ioEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= eventRead
	case unix.EVFILT_WRITE:
		events |= eventWrite
	}
	return events
}
