package teesplit

// bufferPool is a growable vector of fixed-size memory chunks addressed by
// absolute stream offset. chunk[i] covers the byte range
// [i*chunkSize, (i+1)*chunkSize). A chunk exists (is non-nil) iff it has
// been allocated and not yet reclaimed.
//
// Grounded on teebuff.c's memory_allocate/memory_free/source_buffer/
// sink_buffer/sink_pointer (spec §4.1): the chunk-index array doubles on
// demand exactly as teebuff.c's pool_size does, and poolBegin mirrors
// teebuff.c's static pool_begin cursor, so reclaim stays idempotent and
// only ever advances.
type bufferPool struct {
	chunkSize int
	chunks    []*[]byte
	// allocated is one past the highest index ever allocated (teebuff.c's
	// allocated_pool_end).
	allocated int
	// poolBegin is the index of the first chunk not yet reclaimed
	// (teebuff.c's pool_begin).
	poolBegin int
}

func newBufferPool(chunkSize int) *bufferPool {
	return &bufferPool{chunkSize: chunkSize}
}

// index returns the chunk index covering pos, and the offset within it.
func (p *bufferPool) index(pos int64) (idx int, offset int) {
	idx = int(pos / int64(p.chunkSize))
	offset = int(pos % int64(p.chunkSize))
	return
}

// ensure grows the chunk-index array (doubling, starting at 1) and
// allocates every chunk from the first never-allocated index through idx
// (reclaimed chunks below that are not re-allocated), matching
// teebuff.c's memory_allocate. Allocation failure is fatal (spec §7); in
// Go that surfaces as an out-of-memory runtime fatal rather than a
// recoverable error, so there is nothing further to check here beyond the
// precondition that idx is sane.
func (p *bufferPool) ensure(idx int) error {
	if idx < 0 {
		return fatalf(KindUsage, "", "negative chunk index %d", idx)
	}
	if idx < p.allocated {
		return nil
	}

	size := len(p.chunks)
	for idx >= size {
		if size == 0 {
			size = 1
		} else {
			size *= 2
		}
	}
	if size > len(p.chunks) {
		grown := make([]*[]byte, size)
		copy(grown, p.chunks)
		p.chunks = grown
	}

	for i := p.allocated; i <= idx; i++ {
		buf := make([]byte, p.chunkSize)
		p.chunks[i] = &buf
	}
	p.allocated = idx + 1
	return nil
}

// sourceWindow returns a writable window beginning at absolute offset pos,
// ending at the next chunk boundary, allocating the enclosing chunk (and
// any missing predecessors) if necessary.
func (p *bufferPool) sourceWindow(pos int64) ([]byte, error) {
	idx, offset := p.index(pos)
	if err := p.ensure(idx); err != nil {
		return nil, err
	}
	chunk := *p.chunks[idx]
	return chunk[offset:], nil
}

// sinkWindow returns a readable window beginning at pos, of length
// min(chunkSize-offset, upper-pos). The enclosing chunk must already
// exist (it was populated by a prior sourceWindow call covering pos).
func (p *bufferPool) sinkWindow(pos, upper int64) ([]byte, error) {
	idx, offset := p.index(pos)
	if idx >= p.allocated || p.chunks[idx] == nil {
		return nil, fatalf(KindUsage, "", "sink window at offset %d: chunk %d not allocated", pos, idx)
	}
	chunk := *p.chunks[idx]
	n := int64(p.chunkSize-offset)
	if want := upper - pos; want < n {
		n = want
	}
	return chunk[offset : int64(offset)+n], nil
}

// sinkByte reads a single byte at pos, used by the line scanner.
func (p *bufferPool) sinkByte(pos int64) byte {
	idx, offset := p.index(pos)
	chunk := *p.chunks[idx]
	return chunk[offset]
}

// reclaim releases chunks whose high bound is <= watermark, i.e. every
// chunk with index < floor(watermark/chunkSize). Idempotent: only ever
// advances poolBegin, so calling it repeatedly with a non-decreasing
// watermark does no redundant work.
func (p *bufferPool) reclaim(watermark int64) {
	end := int(watermark / int64(p.chunkSize))
	if end > p.allocated {
		end = p.allocated
	}
	for i := p.poolBegin; i < end; i++ {
		p.chunks[i] = nil
	}
	if end > p.poolBegin {
		p.poolBegin = end
	}
}

// allocatedChunks reports how many chunks are currently resident (for
// memory-bound property tests — spec I5).
func (p *bufferPool) allocatedChunks() int {
	n := 0
	for i := p.poolBegin; i < p.allocated; i++ {
		if p.chunks[i] != nil {
			n++
		}
	}
	return n
}
