package teesplit

// DefaultBufferSize is the default chunk size of the buffer pool, per
// spec §6 (`-b`'s default).
const DefaultBufferSize = 1 << 20 // 1 MiB

// Config is the configuration surface this package accepts. Constructing
// and validating it is the CLI's job (cmd/teesplit); this package never
// parses flags itself — see spec.md §1's scoping of argument parsing as a
// thin external collaborator.
type Config struct {
	// BufferSize is the buffer pool's chunk size B, in bytes. Must be > 0.
	BufferSize int
	// Scatter enables scatter mode; false selects replicate mode.
	Scatter bool
	// Line enables line-boundary alignment. Only meaningful with Scatter;
	// harmless (ignored) otherwise, per spec §6.
	Line bool
	// Outputs are the already-open sink destinations, in registration
	// order. Opening files, handling permissions, and truncation are the
	// CLI's job, not this package's (spec §1).
	Outputs []Output
}

// Output is a single fan-out destination: a name (for diagnostics/errors)
// and an open, writable file descriptor.
type Output struct {
	Name string
	FD   int
}

func (c Config) validate() error {
	if c.BufferSize <= 0 {
		return fatalf(KindUsage, "", "buffer size must be positive, got %d", c.BufferSize)
	}
	if len(c.Outputs) == 0 {
		return fatalf(KindUsage, "", "at least one output is required")
	}
	return nil
}
