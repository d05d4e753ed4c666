// Package teesplit implements a non-blocking, memory-bounded fan-out of a
// single input stream to N output sinks, in either replicate mode (every
// sink gets the whole stream) or scatter mode (the stream is partitioned
// across sinks, optionally aligned to line boundaries).
//
// The engine is a single-threaded event loop (Loop) built around a
// readiness multiplexer (epoll on Linux, kqueue on Darwin): one source
// descriptor is read from and N sink descriptors are written to, all
// non-blocking, with a chunked buffer pool that holds only the bytes the
// slowest active sink has not yet written (plus chunk-boundary slack)
// rather than the whole stream. That backlog is not capped: the pool
// grows for as long as a sink lags.
package teesplit
