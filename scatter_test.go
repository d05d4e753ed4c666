package teesplit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduler_Replicate_RaisesEverySinkToSourcePos(t *testing.T) {
	s := &scheduler{scatter: false}
	sinks := []*Sink{
		{name: "a", active: true},
		{name: "b", active: true},
		{name: "c", active: false},
	}

	require.NoError(t, s.assign(sinks, 100, alwaysReady))
	require.Equal(t, int64(100), sinks[0].posToWrite)
	require.Equal(t, int64(100), sinks[1].posToWrite)
	require.Equal(t, int64(0), sinks[2].posToWrite) // inactive sinks are untouched
}

func TestScheduler_Scatter_SplitsFairlyWithRemainderToFirst(t *testing.T) {
	pool := newBufferPool(1 << 10)
	s := &scheduler{scatter: true, pool: pool}
	sinks := []*Sink{
		{name: "a", active: true},
		{name: "b", active: true},
		{name: "c", active: true},
	}

	require.NoError(t, s.assignScatter(sinks, 10, alwaysReady))
	// 10 bytes / 3 sinks = 3 each, remainder 1 goes to the first sink.
	require.Equal(t, int64(4), sinks[0].posToWrite)
	require.Equal(t, int64(7), sinks[1].posToWrite)
	require.Equal(t, int64(10), sinks[2].posToWrite)
}

func TestScheduler_Scatter_SkipsBusyAndNotReadySinks(t *testing.T) {
	pool := newBufferPool(1 << 10)
	s := &scheduler{scatter: true, pool: pool}
	busy := &Sink{name: "busy", active: true, posWritten: 0, posToWrite: 5}
	ready := &Sink{name: "ready", active: true}
	notReady := &Sink{name: "not-ready", active: true}

	sinks := []*Sink{busy, ready, notReady}
	isReady := func(s *Sink) bool { return s != notReady }

	require.NoError(t, s.assignScatter(sinks, 20, isReady))
	require.Equal(t, int64(5), busy.posToWrite)       // untouched, still busy
	require.Equal(t, int64(0), notReady.posToWrite)   // untouched, not ready
	require.Equal(t, int64(20), ready.posToWrite)      // gets everything available
}

func TestScheduler_Scatter_ContiguityViolationIsFatal(t *testing.T) {
	pool := newBufferPool(1 << 10)
	s := &scheduler{scatter: true, pool: pool}
	sinks := []*Sink{{name: "a", active: true, posWritten: 50, posToWrite: 50}}

	err := s.assignScatter(sinks, 10, alwaysReady)
	require.Error(t, err)
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, KindUsage, fe.Kind)
}

func TestPendingTail_ReportsDroppedTrailingBytes(t *testing.T) {
	sinks := []*Sink{
		{name: "a", posToWrite: 8},
		{name: "b", posToWrite: 12},
	}
	require.Equal(t, int64(3), PendingTail(sinks, 15))
	require.Equal(t, int64(0), PendingTail(sinks, 12))
}

func writeAt(t *testing.T, pool *bufferPool, pos int64, data string) {
	t.Helper()
	for i := 0; i < len(data); i++ {
		w, err := pool.sourceWindow(pos + int64(i))
		require.NoError(t, err)
		w[0] = data[i]
	}
}

func TestScheduler_ScatterLine_EfficientAlignsToNewline(t *testing.T) {
	pool := newBufferPool(4) // small chunkSize so availableData > chunkSize/2 triggers efficient path
	data := "aaa\nbbb\nccc\n"
	writeAt(t, pool, 0, data)

	s := &scheduler{scatter: true, line: true, pool: pool}
	sinks := []*Sink{
		{name: "a", active: true},
		{name: "b", active: true},
	}

	require.NoError(t, s.assignScatter(sinks, int64(len(data)), alwaysReady))
	require.Equal(t, byte('\n'), pool.sinkByte(sinks[0].posToWrite-1))
	require.Greater(t, sinks[1].posToWrite, sinks[0].posToWrite)
	require.Equal(t, byte('\n'), pool.sinkByte(sinks[1].posToWrite-1))
}

func TestScheduler_ScatterLine_EfficientNoNewlineIsFatal(t *testing.T) {
	pool := newBufferPool(4)
	data := "aaaaaaaaaaaaaaaa" // no newline anywhere, large enough to hit the efficient path
	writeAt(t, pool, 0, data)

	s := &scheduler{scatter: true, line: true, pool: pool}
	sinks := []*Sink{{name: "a", active: true}}

	err := s.assignScatter(sinks, int64(len(data)), alwaysReady)
	require.Error(t, err)
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, KindUsage, fe.Kind)
}

func TestScheduler_ScatterLine_ReliableDefersWithoutNewline(t *testing.T) {
	pool := newBufferPool(1 << 10) // large chunk: availableData <= chunkSize/2 selects reliable scanner
	data := "nonewlineyet"
	writeAt(t, pool, 0, data)

	s := &scheduler{scatter: true, line: true, pool: pool}
	sinks := []*Sink{{name: "a", active: true}}

	require.NoError(t, s.assignScatter(sinks, int64(len(data)), alwaysReady))
	require.Equal(t, int64(0), sinks[0].posToWrite) // deferred: no assignment made
}

func TestScheduler_ScatterLine_ReliableUsesLastNewlineSeen(t *testing.T) {
	pool := newBufferPool(1 << 10)
	data := "abc\ndef\nunterminated"
	writeAt(t, pool, 0, data)

	s := &scheduler{scatter: true, line: true, pool: pool}
	sinks := []*Sink{{name: "a", active: true}}

	require.NoError(t, s.assignScatter(sinks, int64(len(data)), alwaysReady))
	require.Equal(t, int64(8), sinks[0].posToWrite) // "abc\ndef\n" = 8 bytes
}
