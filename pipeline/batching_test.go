package pipeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchSizer_HighErrorRateHalves(t *testing.T) {
	sizer := newBatchSizer(64)
	for i := 0; i < 20; i++ {
		sizer.record(i%2 == 0) // 50% errors
	}
	assert.Equal(t, 32, sizer.next(0))
}

func TestBatchSizer_LowErrorRateDoubles(t *testing.T) {
	sizer := newBatchSizer(32)
	for i := 0; i < 20; i++ {
		sizer.record(false)
	}
	assert.Equal(t, 64, sizer.next(0))
}

func TestBatchSizer_ModerateErrorRateHolds(t *testing.T) {
	sizer := newBatchSizer(32)
	for i := 0; i < 20; i++ {
		sizer.record(i%10 == 0) // 10%: between both thresholds
	}
	assert.Equal(t, 32, sizer.next(0))
}

func TestBatchSizer_NeedsSamplesBeforeResizing(t *testing.T) {
	sizer := newBatchSizer(32)
	for i := 0; i < minWindowSamples-1; i++ {
		sizer.record(true)
	}
	assert.Equal(t, 32, sizer.next(0), "too few samples to resize")
}

func TestBatchSizer_LengthAware(t *testing.T) {
	sizer := newBatchSizer(MaxSubBatch)

	assert.Equal(t, MaxSubBatch, sizer.next(10), "short texts keep the full batch")
	assert.Equal(t, 64, sizer.next(1024))
	assert.Equal(t, 1, sizer.next(targetSubBatchChars), "one huge document per batch")
}

func TestBatchSizer_HalveFloorsAtMin(t *testing.T) {
	sizer := newBatchSizer(2)
	sizer.halve()
	assert.Equal(t, MinSubBatch, sizer.next(0))
	sizer.halve()
	assert.Equal(t, MinSubBatch, sizer.next(0), "never drops below the minimum")
}

// For any outcome trajectory the size stays inside [MinSubBatch, MaxSubBatch].
func TestBatchSizer_BoundInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		sizer := newBatchSizer(rng.Intn(200))
		errorBias := rng.Float64()
		for step := 0; step < 500; step++ {
			for i := 0; i < rng.Intn(10); i++ {
				sizer.record(rng.Float64() < errorBias)
			}
			n := sizer.next(rng.Intn(200_000))
			if n < MinSubBatch || n > MaxSubBatch {
				t.Fatalf("trial %d step %d: size %d out of bounds", trial, step, n)
			}
		}
	}
}
