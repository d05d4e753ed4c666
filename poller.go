// poller.go documents the readiness multiplexer. The multiplexer itself is
// implemented per-platform in poller_linux.go (epoll) and
// poller_darwin.go (kqueue), adapted from the teacher's general-purpose
// eventloop poller down to the two interest sets (read, write) and single
// blocking call this program needs — see DESIGN.md.
//
// Only FIFOs, sockets, and character devices can be registered: epoll (and
// kqueue, less commonly) refuses regular files. Sinks and stdin that stat
// as regular files are never registered and are instead always treated as
// ready — see Sink.pollable, Loop.stdinReady and Loop.sinkReady.
package teesplit

// ioEvents is a bitmask of interest/readiness: readable, writable, or both.
type ioEvents uint32

const (
	eventRead ioEvents = 1 << iota
	eventWrite
)
