package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Compute returns the delay before the next attempt based on attempts and
// policy. attempts is expected to be >= 0.
func Compute(policy string, base, max time.Duration, attempts int, rng *rand.Rand) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if max <= 0 {
		max = base
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	switch policy {
	case "fixed":
		return minDur(base, max)
	case "linear":
		return minDur(base*time.Duration(maxInt(1, attempts)), max)
	case "exponential":
		return minDur(scale(base, attempts), max)
	case "exp_equal_jitter":
		maxDelay := minDur(scale(base, attempts), max)
		half := maxDelay / 2
		return half + time.Duration(rng.Int63n(int64(half)+1))
	default: // exp_full_jitter
		maxDelay := minDur(scale(base, attempts), max)
		if maxDelay <= 0 {
			return 0
		}
		return time.Duration(rng.Int63n(int64(maxDelay) + 1))
	}
}

func scale(base time.Duration, attempts int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(attempts)))
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
