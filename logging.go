package teesplit

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the type every diagnostic call site in this package uses.
// Grounded on sql/export/export.go's
// `Logger *logiface.Logger[logiface.Event]` field plus its builder-chain
// call sites (`logger.Debug().Str(...).Log(...)`), per SPEC_FULL.md's
// AMBIENT STACK section: diagnostic logging is out of scope as a feature
// (spec §1), but that excludes building a logging system, not carrying
// the teacher's logging idiom.
type Logger = logiface.Logger[*stumpy.Event]

// NewDefaultLogger builds the default logger: stumpy's JSON writer over
// stderr, at the given minimum level. Grounded on
// logiface-stumpy/example_test.go's `stumpy.L.New(stumpy.L.WithStumpy(), ...)`.
func NewDefaultLogger(level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithLevel(level),
	)
}

// nopLogger discards everything; used when the caller supplies no logger.
func nopLogger() *Logger {
	return stumpy.L.New(stumpy.L.WithLevel(logiface.LevelDisabled))
}
