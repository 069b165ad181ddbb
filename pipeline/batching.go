package pipeline

import "sync"

const (
	// MinSubBatch and MaxSubBatch clamp the inner compute batch size.
	MinSubBatch = 1
	MaxSubBatch = 128

	// Error-rate thresholds for resizing. The rate is measured over a
	// rolling window of recent document outcomes.
	highErrorRate = 0.20
	lowErrorRate  = 0.01

	// Resize decisions need at least this many samples.
	minWindowSamples = 10
	errorWindowSize  = 50

	// targetSubBatchChars caps a sub-batch's total input size so long
	// documents get smaller batches than short ones.
	targetSubBatchChars = 64 * 1024
)

// batchSizer chooses the inner compute batch size from recent document
// outcomes and the length of the texts ahead. An error rate above 20%
// halves the size, below 1% doubles it, and the result always stays in
// [MinSubBatch, MaxSubBatch].
type batchSizer struct {
	mu       sync.Mutex
	size     int
	outcomes []bool // true = errored; rolling window
}

func newBatchSizer(initial int) *batchSizer {
	if initial < MinSubBatch {
		initial = MinSubBatch
	}
	if initial > MaxSubBatch {
		initial = MaxSubBatch
	}
	return &batchSizer{size: initial}
}

// record adds one document outcome to the rolling window.
func (b *batchSizer) record(errored bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.outcomes = append(b.outcomes, errored)
	if len(b.outcomes) > errorWindowSize {
		b.outcomes = b.outcomes[len(b.outcomes)-errorWindowSize:]
	}
}

// halve immediately reduces the batch size, e.g. after a resource
// exhaustion, and resets the window so the smaller size gets a fresh
// measurement.
func (b *batchSizer) halve() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.size = clampSubBatch(b.size / 2)
	b.outcomes = b.outcomes[:0]
}

// next returns the size of the next sub-batch given the average input
// length, in characters, of the documents ahead.
func (b *batchSizer) next(avgLen int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.outcomes) >= minWindowSamples {
		rate := b.errorRate()
		switch {
		case rate > highErrorRate:
			b.size = clampSubBatch(b.size / 2)
			b.outcomes = b.outcomes[:0]
		case rate < lowErrorRate:
			b.size = clampSubBatch(b.size * 2)
			b.outcomes = b.outcomes[:0]
		}
	}

	n := b.size
	if avgLen > 0 {
		if byLength := targetSubBatchChars / avgLen; byLength < n {
			n = byLength
		}
	}
	return clampSubBatch(n)
}

// errorRate computes the fraction of errored outcomes in the window.
// Must be called with lock held.
func (b *batchSizer) errorRate() float64 {
	if len(b.outcomes) == 0 {
		return 0
	}
	errored := 0
	for _, e := range b.outcomes {
		if e {
			errored++
		}
	}
	return float64(errored) / float64(len(b.outcomes))
}

func clampSubBatch(n int) int {
	if n < MinSubBatch {
		return MinSubBatch
	}
	if n > MaxSubBatch {
		return MaxSubBatch
	}
	return n
}

// averageLength returns the mean text length of the given documents,
// rounded down, or 0 for an empty slice.
func averageLength(texts []string) int {
	if len(texts) == 0 {
		return 0
	}
	total := 0
	for _, t := range texts {
		total += len(t)
	}
	return total / len(texts)
}
