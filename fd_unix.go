//go:build linux || darwin

package teesplit

import (
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// setNonblocking puts fd into non-blocking mode, required by spec §5: all
// descriptors must be switched to non-blocking mode before the event loop
// issues reads/writes against them.
func setNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}

// isPollable reports whether fd is a descriptor kind that epoll/kqueue can
// register (FIFO, socket, or character device) as opposed to a regular
// file, which neither can — see poller.go's doc comment and DESIGN.md.
func isPollable(fd int) (bool, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false, err
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFIFO, unix.S_IFSOCK, unix.S_IFCHR:
		return true, nil
	default:
		return false, nil
	}
}

// MaskBrokenPipe ignores SIGPIPE process-wide (spec §6), so that a write
// to a sink whose reader has closed surfaces as an EPIPE return from
// write(2) instead of terminating the process. Callers must invoke this
// once before constructing a Loop; NewLoop does not do it implicitly,
// since a process embedding this package may already manage SIGPIPE
// itself.
func MaskBrokenPipe() {
	signal.Ignore(syscall.SIGPIPE)
}

// closeFD closes a file descriptor.
func closeFD(fd int) error {
	return unix.Close(fd)
}

// readFD issues exactly one read, per the Source Reader contract (spec §4.2).
func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}
