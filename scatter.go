package teesplit

// scheduler implements the sink scheduler/allocator of spec §4.3: in
// replicate mode it trivially raises every sink's upper bound to
// sourcePosRead; in scatter mode it runs the fair, optionally
// line-aligned, allocation grounded on teebuff.c's allocate_data_to_sinks.
type scheduler struct {
	scatter bool
	line    bool
	pool    *bufferPool
}

// assign runs one scheduling pass. ready reports whether a sink is
// currently write-ready (see writePass's doc for pollable vs synthetic
// readiness).
func (s *scheduler) assign(sinks []*Sink, sourcePosRead int64, ready func(*Sink) bool) error {
	if !s.scatter {
		for _, sink := range sinks {
			if sink.active {
				sink.posToWrite = sourcePosRead
			}
		}
		return nil
	}
	return s.assignScatter(sinks, sourcePosRead, ready)
}

func (s *scheduler) assignScatter(sinks []*Sink, sourcePosRead int64, ready func(*Sink) bool) error {
	var posAssigned int64
	availableSinks := 0
	for _, sink := range sinks {
		if sink.posToWrite > posAssigned {
			posAssigned = sink.posToWrite
		}
		if sink.active && sink.idle() && ready(sink) {
			availableSinks++
		}
	}
	if availableSinks == 0 {
		return nil
	}

	availableData := sourcePosRead - posAssigned
	if availableData < 0 {
		// pos_assigned must never exceed sourcePosRead (spec §9's
		// contiguity open question): assert it rather than silently
		// trusting it, unlike teebuff.c.
		return fatalf(KindUsage, "", "scatter allocator: pos_assigned %d exceeds source_pos_read %d", posAssigned, sourcePosRead)
	}
	dataPerSink := availableData / int64(availableSinks)
	remainder := availableData % int64(availableSinks)

	first := true
	for _, sink := range sinks {
		if !sink.active || !sink.idle() || !ready(sink) {
			continue
		}

		dataToAssign := dataPerSink
		if first {
			dataToAssign += remainder
			first = false
		}

		sink.posWritten = posAssigned

		end := posAssigned + dataToAssign
		if s.line {
			var deferred bool
			var err error
			end, deferred, err = s.alignLine(posAssigned, dataToAssign, dataPerSink, availableData, sourcePosRead)
			if err != nil {
				return err
			}
			if deferred {
				sink.posToWrite = posAssigned
				return nil
			}
		}

		sink.posToWrite = end
		posAssigned = end
	}
	return nil
}

// PendingTail reports how many trailing bytes of the stream were never
// assigned to any sink. This is normally zero; it becomes non-zero only in
// scatter+line mode when the stream ends before a trailing unterminated
// line is ever followed by a newline — the dropped-tail decision recorded
// in SPEC_FULL.md's Open Questions (teebuff.c silently does the same; this
// makes it observable instead).
func PendingTail(sinks []*Sink, sourcePosRead int64) int64 {
	var maxAssigned int64
	for _, s := range sinks {
		if s.posToWrite > maxAssigned {
			maxAssigned = s.posToWrite
		}
	}
	return sourcePosRead - maxAssigned
}

// alignLine snaps the nominal window end to the byte after a newline, per
// spec §4.3's two sub-algorithms. Returns the new posAssigned (window
// end), or deferred=true if the reliable scanner could not find a newline
// and the caller must zero this sink's assignment and stop the pass.
func (s *scheduler) alignLine(posAssigned, dataToAssign, dataPerSink, availableData, sourcePosRead int64) (end int64, deferred bool, err error) {
	if availableData > int64(s.pool.chunkSize)/2 {
		return s.alignLineEfficient(posAssigned, dataToAssign)
	}
	return s.alignLineReliable(posAssigned, dataPerSink, sourcePosRead)
}

// alignLineEfficient scans backward from the nominal boundary, for the
// common case where available_data > B/2 (so multiple newlines are
// expected within dataToAssign bytes).
func (s *scheduler) alignLineEfficient(posAssigned, dataToAssign int64) (end int64, deferred bool, err error) {
	dataEnd := posAssigned + dataToAssign - 1
	for {
		if s.pool.sinkByte(dataEnd) == '\n' {
			return dataEnd + 1, false, nil
		}
		dataEnd--
		if dataEnd+1 == posAssigned {
			return 0, false, fatalf(KindUsage, "", "no newline found in a region of %d bytes; increase buffer size", dataToAssign)
		}
	}
}

// alignLineReliable scans forward, for the case where available_data <=
// B/2 (a per-sink slice may legitimately contain no newline yet).
// Remembers the last newline seen; defers (never reorders or drops bytes,
// just leaves them unassigned) if none is found before source_pos_read.
func (s *scheduler) alignLineReliable(posAssigned, dataPerSink, sourcePosRead int64) (end int64, deferred bool, err error) {
	dataEnd := posAssigned
	lastNL := int64(-1)
	for {
		if dataEnd >= sourcePosRead {
			if lastNL != -1 {
				return lastNL + 1, false, nil
			}
			return 0, true, nil
		}
		if s.pool.sinkByte(dataEnd) == '\n' {
			lastNL = dataEnd
			if dataEnd-posAssigned > dataPerSink {
				return dataEnd + 1, false, nil
			}
		}
		dataEnd++
	}
}
