package teesplit

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipeSink(t *testing.T, name string) (*Sink, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(int(w.Fd()), true))
	t.Cleanup(func() { w.Close(); r.Close() })
	return &Sink{name: name, fd: int(w.Fd()), active: true, pollable: true}, r
}

func alwaysReady(*Sink) bool { return true }

func TestWritePass_WritesPendingBytes(t *testing.T) {
	pool := newBufferPool(64)
	window, err := pool.sourceWindow(0)
	require.NoError(t, err)
	copy(window, "hello world")

	sink, r := newPipeSink(t, "a")
	sink.posToWrite = 11

	n, err := writePass([]*Sink{sink}, pool, 11, alwaysReady, nil)
	require.NoError(t, err)
	require.Equal(t, int64(11), n)
	require.Equal(t, int64(11), sink.posWritten)

	buf := make([]byte, 11)
	got, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(buf[:got]))
}

func TestWritePass_BrokenPipeDeactivatesSink(t *testing.T) {
	pool := newBufferPool(64)
	window, err := pool.sourceWindow(0)
	require.NoError(t, err)
	copy(window, "data")

	sink, r := newPipeSink(t, "a")
	sink.posToWrite = 4
	r.Close() // reader gone: next write is EPIPE

	var notified *Sink
	n, err := writePass([]*Sink{sink}, pool, 4, alwaysReady, func(s *Sink) { notified = s })
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
	require.False(t, sink.active)
	require.Same(t, sink, notified)
}

func TestWritePass_SkipsNotReadySinks(t *testing.T) {
	pool := newBufferPool(64)
	window, err := pool.sourceWindow(0)
	require.NoError(t, err)
	copy(window, "data")

	sink, _ := newPipeSink(t, "a")
	sink.posToWrite = 4

	n, err := writePass([]*Sink{sink}, pool, 4, func(*Sink) bool { return false }, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
	require.Equal(t, int64(0), sink.posWritten)
}

func TestPendingCount_CountsOnlyActiveBehindSinks(t *testing.T) {
	caughtUp := &Sink{name: "caught-up", active: true, posWritten: 10, posToWrite: 10}
	behind := &Sink{name: "behind", active: true, posWritten: 4, posToWrite: 4}
	inactive := &Sink{name: "inactive", active: false, posWritten: 0, posToWrite: 0}

	require.Equal(t, 1, pendingCount([]*Sink{caughtUp, behind, inactive}, 10))
}

func TestInactiveNames_SortedDeterministically(t *testing.T) {
	sinks := []*Sink{
		{name: "zeta", active: false},
		{name: "alpha", active: false},
		{name: "beta", active: true},
	}
	require.Equal(t, []string{"alpha", "zeta"}, inactiveNames(sinks))
}
