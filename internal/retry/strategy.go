package retry

import (
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Strategy decides how long to sleep before the retry with the given
// ordinal, and whether the retry budget is already exhausted.
type Strategy interface {
	Sleep(retryCount uint) (time.Duration, bool)
}

type never struct{}

// NewNever returns a strategy that never retries.
func NewNever() *never {
	return &never{}
}

func (nr *never) Sleep(retryCount uint) (time.Duration, bool) {
	return 0, true
}

// Entropy injects the jitter source, mainly for tests.
type Entropy func(int64) int64

type exponentialBackOff struct {
	base          time.Duration
	max           time.Duration
	maxRetryCount uint
	entropy       Entropy
}

func NewExponentialBackOff(base time.Duration, max time.Duration, maxRetryCount uint, entropy Entropy) *exponentialBackOff {
	return &exponentialBackOff{
		base:          base,
		max:           max,
		maxRetryCount: maxRetryCount,
		entropy:       entropy,
	}
}

func (eb *exponentialBackOff) Sleep(retryCount uint) (time.Duration, bool) {
	if retryCount >= eb.maxRetryCount {
		return 0, true
	}

	// base<<retryCount no longer fits in int64 past 63 doublings,
	// saturate at the configured ceiling
	delay := int64(eb.max)
	if retryCount < 63 && int64(eb.base) <= math.MaxInt64>>retryCount {
		delay = minOf(int64(eb.base)<<retryCount, int64(eb.max))
	}

	entropy := eb.entropy
	if entropy == nil {
		entropy = rand.Int63n
	}
	return time.Duration(entropy(delay)), false
}

func minOf[T constraints.Ordered](l T, r T) T {
	if l > r {
		return r
	}
	return l
}
