package teesplit

import (
	"errors"

	"golang.org/x/sys/unix"
)

// readOnce implements the Source Reader contract of spec §4.2: issue
// exactly one non-blocking read into the pool-backed window that begins at
// sourcePosRead, and advance sourcePosRead by whatever it returns.
//
// eof is true only for a genuine zero-byte successful read (the stream is
// exhausted); a retry-later error (EAGAIN/EWOULDBLOCK/EINTR) is reported as
// n=0, eof=false, err=nil, since the caller must not mistake "try again"
// for "done". Any other read error is fatal.
func (l *Loop) readOnce() (n int, eof bool, err error) {
	window, werr := l.pool.sourceWindow(l.sourcePosRead)
	if werr != nil {
		return 0, false, werr
	}

	got, rerr := readFD(l.stdinFD, window)
	if rerr != nil {
		if errors.Is(rerr, unix.EAGAIN) || errors.Is(rerr, unix.EWOULDBLOCK) || errors.Is(rerr, unix.EINTR) {
			return 0, false, nil
		}
		return 0, false, &FatalError{Kind: KindSource, Err: rerr}
	}

	l.sourcePosRead += int64(got)
	if got == 0 {
		return 0, true, nil
	}
	return got, false, nil
}
