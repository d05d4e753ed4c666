package teesplit

import "strings"

// Loop is the whole running program: one pool, one scheduler, the sink
// set, the readiness multiplexer, and the single source descriptor.
// Grounded on teebuff.c's main() loop (spec §4.4): build the read/write
// interest, block once, write before reading, repeat until stdin is
// exhausted and every sink has caught up.
type Loop struct {
	pool  *bufferPool
	sched *scheduler
	sinks []*Sink

	poller *poller

	stdinFD       int
	stdinPollable bool
	sourcePosRead int64
	reachedEOF    bool

	logger *Logger
}

// NewLoop builds a Loop from cfg: it puts stdin and every output into
// non-blocking mode, classifies each as pollable or synthetic-ready (spec
// §5, poller.go's doc comment), and registers the pollable ones with the
// platform multiplexer. Descriptors are assumed already open; opening
// files and parsing flags is cmd/teesplit's job (spec §1, §6).
func NewLoop(cfg Config, logger *Logger) (*Loop, error) {
	return newLoop(cfg, logger, 0)
}

// newLoop is NewLoop with the source descriptor made explicit, so tests can
// drive the loop from an os.Pipe instead of the process's real stdin.
func newLoop(cfg Config, logger *Logger, stdinFD int) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = nopLogger()
	}

	if err := setNonblocking(stdinFD); err != nil {
		return nil, &FatalError{Kind: KindSource, Err: err}
	}
	stdinPollable, err := isPollable(stdinFD)
	if err != nil {
		return nil, &FatalError{Kind: KindSource, Err: err}
	}

	p, err := newPoller()
	if err != nil {
		return nil, &FatalError{Kind: KindUsage, Err: err}
	}

	l := &Loop{
		pool:          newBufferPool(cfg.BufferSize),
		poller:        p,
		stdinFD:       stdinFD,
		stdinPollable: stdinPollable,
		logger:        logger,
	}
	l.sched = &scheduler{scatter: cfg.Scatter, line: cfg.Line, pool: l.pool}

	if stdinPollable {
		if err := p.registerFD(stdinFD, eventRead); err != nil {
			return nil, &FatalError{Kind: KindSource, Err: err}
		}
	}

	for _, out := range cfg.Outputs {
		if err := setNonblocking(out.FD); err != nil {
			return nil, &FatalError{Kind: KindOutput, Sink: out.Name, Err: err}
		}
		pollable, err := isPollable(out.FD)
		if err != nil {
			return nil, &FatalError{Kind: KindOutput, Sink: out.Name, Err: err}
		}
		sink := &Sink{name: out.Name, fd: out.FD, active: true, pollable: pollable}
		l.sinks = append(l.sinks, sink)
		if pollable {
			if err := p.registerFD(out.FD, eventWrite); err != nil {
				return nil, &FatalError{Kind: KindOutput, Sink: out.Name, Err: err}
			}
		}
		logger.Debug().Str("sink", out.Name).Log("sink opened")
	}

	return l, nil
}

// Close releases the readiness multiplexer. It does not close sink or
// stdin descriptors — the caller owns those (see NewLoop's doc).
func (l *Loop) Close() error {
	return l.poller.close()
}

// Sinks exposes the current sink set, for diagnostics and tests.
func (l *Loop) Sinks() []*Sink { return l.sinks }

func (l *Loop) stdinReady() bool {
	if !l.stdinPollable {
		return true
	}
	return l.poller.readyRead(l.stdinFD)
}

func (l *Loop) sinkReady(s *Sink) bool {
	if !s.pollable {
		return true
	}
	return l.poller.readyWrite(s.fd)
}

func (l *Loop) logBrokenPipe(s *Sink) {
	l.logger.Warning().Str("sink", s.name).Log("sink closed (broken pipe)")
}

// logExitSummary emits one closing diagnostic line naming every sink that
// never recovered from a broken pipe, in deterministic order, rather than
// re-deriving that per transition (logBrokenPipe already logged each as it
// happened).
func (l *Loop) logExitSummary() {
	if names := inactiveNames(l.sinks); len(names) > 0 {
		l.logger.Warning().Str("sinks", strings.Join(names, ",")).Log("exiting with inactive sinks")
	}
}

// Run drives the loop to completion: spec §4.4's termination condition is
// "stdin exhausted and every active sink has caught up to everything the
// scheduler will ever assign it" — which, in scatter+line mode, can be
// short of the true end of stream if a trailing partial line is never
// terminated (see PendingTail). Every iteration blocks at most once (the
// single suspension point of spec §5), and always attempts an assign-then-
// write pass before a read, skipping the read whenever that pass wrote
// anything. A read still happens when no sink made progress, so a blocked
// sink's backlog (and the pool) can grow by many chunks.
//
// The termination check runs after this iteration's assign+write, not
// before: only then has the scheduler had its chance to hand out whatever
// work remains, so "every active sink is idle" is not mistaken for done
// when it is simply caught up to a frontier that is about to advance.
func (l *Loop) Run() error {
	for {
		if !l.poller.empty() {
			l.poller.clearReady()
			if err := l.poller.wait(-1); err != nil {
				return &FatalError{Kind: KindSource, Err: err}
			}
		}

		if err := l.sched.assign(l.sinks, l.sourcePosRead, l.sinkReady); err != nil {
			return err
		}

		written, err := writePass(l.sinks, l.pool, l.sourcePosRead, l.sinkReady, l.logBrokenPipe)
		if err != nil {
			return err
		}
		if written > 0 {
			continue
		}

		if !anyActive(l.sinks) {
			// Every sink has broken its pipe; nothing left to drain towards,
			// and nothing more can ever become ready to write.
			l.logExitSummary()
			return nil
		}

		if l.reachedEOF {
			if allIdle(l.sinks) {
				if tail := PendingTail(l.sinks, l.sourcePosRead); tail > 0 {
					l.logger.Warning().Int("bytes", int(tail)).Log("dropped unterminated trailing line at eof")
				}
				l.logExitSummary()
				return nil
			}
			// Some active sink still has assigned bytes but wrote nothing
			// this pass (not write-ready, or the write would block); block
			// again until the poller says otherwise.
			continue
		}

		if !l.stdinReady() {
			continue
		}

		_, eof, rerr := l.readOnce()
		if rerr != nil {
			return rerr
		}
		if eof {
			l.reachedEOF = true
			if l.stdinPollable {
				if err := l.poller.unregisterFD(l.stdinFD); err != nil {
					return &FatalError{Kind: KindSource, Err: err}
				}
			}
			l.logger.Debug().Int("bytes", int(l.sourcePosRead)).Log("stdin reached eof")
		}
	}
}
