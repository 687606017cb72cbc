package lib

import "math"

// ExpDecay computes an exponential decay factor in [0, 1] for an elapsed
// duration against a half-life-style bias, both in seconds.
//
// At elapsed=0 the result is exactly 1, and it decays towards 0 as elapsed
// grows. Negative elapsed values (e.g. clock skew between the caller's "now"
// and a record timestamp) are clamped to zero rather than rewarded.
//
// Example:
//
//	ExpDecay(3600, 3600) ≈ 0.3679 (one bias interval elapsed)
func ExpDecay(elapsedSeconds, biasSeconds float64) float64 {
	if biasSeconds <= 0 {
		return 0
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	return math.Exp(-elapsedSeconds / biasSeconds)
}

// SaturatingLog normalizes a non-negative count to [0, 1] with logarithmic
// saturation: log(1+x) / log(1+cap), clamped at 1 once x exceeds cap.
//
// This keeps a single runaway value (e.g. one viral post's reaction count)
// from dominating a weighted sum indefinitely.
func SaturatingLog(x, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	if x < 0 {
		x = 0
	}

	v := math.Log1p(x) / math.Log1p(cap)
	if v > 1 {
		return 1
	}

	return v
}

// Clamp01 clamps v to the closed interval [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}

	return v
}
