package detector

import (
	"fmt"
	"iter"
)

// Chunker accumulates mono PCM at the recognizer rate and carves it into
// fixed-size overlapping analysis windows. Consecutive windows share their
// trailing overlap region so words spoken across a window boundary are not
// truncated.
//
// Owned by the detector's processing goroutine; not safe for concurrent use.
type Chunker struct {
	chunkSamples   int
	overlapSamples int
	minTailSamples int

	buf    []int16
	chunks uint64
}

// NewChunker validates the window geometry and returns a Chunker. The
// overlap must be strictly smaller than the chunk so the window always
// advances.
func NewChunker(chunkSamples, overlapSamples, minTailSamples int) (*Chunker, error) {
	if chunkSamples <= 0 {
		return nil, fmt.Errorf("chunker: chunk size %d must be positive", chunkSamples)
	}
	if overlapSamples < 0 || overlapSamples >= chunkSamples {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", overlapSamples, chunkSamples)
	}
	if minTailSamples < 0 || minTailSamples > chunkSamples {
		return nil, fmt.Errorf("chunker: min tail %d must be in [0, %d]", minTailSamples, chunkSamples)
	}
	return &Chunker{
		chunkSamples:   chunkSamples,
		overlapSamples: overlapSamples,
		minTailSamples: minTailSamples,
	}, nil
}

// Feed appends converted mono samples to the accumulation buffer.
func (c *Chunker) Feed(samples []int16) {
	c.buf = append(c.buf, samples...)
}

// Chunks yields full analysis windows while enough samples are buffered.
// Each yielded window is a fresh copy of chunkSamples samples; after a yield,
// the buffer advances by chunkSamples − overlapSamples, leaving the overlap
// region as the head of the next window. The sequence is finite and single
// use per call.
func (c *Chunker) Chunks() iter.Seq[[]int16] {
	return func(yield func([]int16) bool) {
		advance := c.chunkSamples - c.overlapSamples
		for len(c.buf) >= c.chunkSamples {
			chunk := make([]int16, c.chunkSamples)
			copy(chunk, c.buf[:c.chunkSamples])
			// Compact in place so the dropped front does not pin the
			// backing array for the lifetime of the run.
			rest := copy(c.buf, c.buf[advance:])
			c.buf = c.buf[:rest]
			c.chunks++
			if !yield(chunk) {
				return
			}
		}
	}
}

// Tail returns the zero-padded remainder as one window when it holds at
// least minTailSamples but less than a full chunk. The buffer is left
// untouched, so the same samples are still the head of the next full window
// once more audio arrives. Returns false when the remainder is too short to
// be worth decoding.
func (c *Chunker) Tail() ([]int16, bool) {
	n := len(c.buf)
	if n == 0 || n < c.minTailSamples || n >= c.chunkSamples {
		return nil, false
	}
	tail := make([]int16, c.chunkSamples)
	copy(tail, c.buf)
	return tail, true
}

// Buffered reports the number of accumulated samples not yet carved into
// windows. Intended for diagnostics.
func (c *Chunker) Buffered() int { return len(c.buf) }

// Count reports the number of full windows produced so far.
func (c *Chunker) Count() uint64 { return c.chunks }
