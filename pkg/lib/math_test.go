package lib

import (
	"math"
	"testing"
)

// TestExpDecay_Basic checks boundary and monotonicity behavior of ExpDecay.
func TestExpDecay_Basic(t *testing.T) {
	bias := 3600.0

	// At elapsed=0, output should be exactly 1
	if v := ExpDecay(0, bias); v != 1 {
		t.Errorf("expected 1 at elapsed=0, got %.6f", v)
	}

	// Negative elapsed (clock skew) is clamped, never rewarded above 1
	if v := ExpDecay(-500, bias); v != 1 {
		t.Errorf("expected 1 for negative elapsed, got %.6f", v)
	}

	// Output should strictly decrease as elapsed grows
	prev := 1.0
	for elapsed := 600.0; elapsed <= 86400.0; elapsed *= 2 {
		v := ExpDecay(elapsed, bias)
		if v >= prev {
			t.Errorf("expected strictly decreasing output, got %.6f >= %.6f at elapsed=%.0f", v, prev, elapsed)
		}
		if v < 0 || v > 1 {
			t.Errorf("expected output in [0,1], got %.6f at elapsed=%.0f", v, elapsed)
		}
		prev = v
	}

	// One bias interval elapsed should give ~1/e
	v := ExpDecay(bias, bias)
	if math.Abs(v-math.Exp(-1)) > 1e-9 {
		t.Errorf("expected 1/e at elapsed=bias, got %.6f", v)
	}

	// Non-positive bias disables the factor entirely
	if v := ExpDecay(100, 0); v != 0 {
		t.Errorf("expected 0 for zero bias, got %.6f", v)
	}
}

// TestSaturatingLog verifies normalization and the saturation cap.
func TestSaturatingLog(t *testing.T) {
	cap := 50.0

	if v := SaturatingLog(0, cap); v != 0 {
		t.Errorf("expected 0 at x=0, got %.6f", v)
	}

	prev := 0.0
	for x := 1.0; x <= cap; x *= 2 {
		v := SaturatingLog(x, cap)
		if v <= prev {
			t.Errorf("expected strictly increasing output, got %.6f <= %.6f at x=%.0f", v, prev, x)
		}
		prev = v
	}

	// Exactly at the cap the output is 1
	if v := SaturatingLog(cap, cap); math.Abs(v-1) > 1e-9 {
		t.Errorf("expected 1 at x=cap, got %.6f", v)
	}

	// Beyond the cap the output clamps to 1
	if v := SaturatingLog(cap*100, cap); v != 1 {
		t.Errorf("expected clamp at 1 beyond cap, got %.6f", v)
	}

	// Negative counts are treated as zero
	if v := SaturatingLog(-10, cap); v != 0 {
		t.Errorf("expected 0 for negative x, got %.6f", v)
	}
}

func TestClamp01(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}

	for _, c := range cases {
		if got := Clamp01(c.in); got != c.want {
			t.Errorf("Clamp01(%.2f) = %.2f, want %.2f", c.in, got, c.want)
		}
	}
}
