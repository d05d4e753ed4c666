package teesplit

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal condition to a process exit code, per the
// error handling table in spec §7.
type Kind int

const (
	// KindUsage covers bad flags and pool/sink-array allocation failures.
	KindUsage Kind = iota + 1
	// KindOutput covers output-file open failures and non-EPIPE sink write errors.
	KindOutput
	// KindSource covers stdin read failures and readiness-multiplexer failures.
	KindSource
)

// ExitCode returns the process exit code associated with k, per spec §7.
func (k Kind) ExitCode() int {
	switch k {
	case KindUsage:
		return 1
	case KindOutput:
		return 2
	case KindSource:
		return 3
	default:
		return 1
	}
}

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindOutput:
		return "output"
	case KindSource:
		return "source"
	default:
		return "unknown"
	}
}

// FatalError is the one kind of error this program ever surfaces to its
// caller: every non-recoverable condition (spec §7 — everything except a
// single sink's broken pipe) is wrapped in one of these, tagged with the
// Kind that determines the process exit code.
type FatalError struct {
	Kind Kind
	// Sink, if non-empty, names the sink implicated by the error.
	Sink string
	Err  error
}

func (e *FatalError) Error() string {
	if e.Sink != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Sink, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatalf(kind Kind, sink string, format string, args ...any) *FatalError {
	return &FatalError{Kind: kind, Sink: sink, Err: fmt.Errorf(format, args...)}
}

// ExitCode extracts the process exit code implied by err, defaulting to 1
// for an error that was not produced by this package.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Kind.ExitCode()
	}
	return 1
}
