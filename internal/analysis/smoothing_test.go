// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestSmoothSpatialConstant(t *testing.T) {
	for _, n := range []int{7, 8, 16, 80} {
		src := make([]float64, n)
		for i := range src {
			src[i] = 0.7
		}
		dst := make([]float64, n)

		SmoothSpatial(dst, src)

		for i, v := range dst {
			if math.Abs(v-0.7) > 1e-12 {
				t.Errorf("n=%d: dst[%d] = %v, want 0.7", n, i, v)
			}
		}
	}
}

func TestSmoothSpatialEdgesPassThrough(t *testing.T) {
	src := []float64{9, 1, 7, 3, 8, 2, 6, 4, 5, 0, 11, 13}
	dst := make([]float64, len(src))

	SmoothSpatial(dst, src)

	for _, i := range []int{0, 1, 2, 9, 10, 11} {
		if dst[i] != src[i] {
			t.Errorf("edge dst[%d] = %v, want unmodified %v", i, dst[i], src[i])
		}
	}
}

func TestSmoothSpatialShortInput(t *testing.T) {
	for _, n := range []int{0, 1, 4, 6} {
		src := make([]float64, n)
		for i := range src {
			src[i] = float64(i*i) + 0.5
		}
		dst := make([]float64, n)

		SmoothSpatial(dst, src)

		for i := range src {
			if dst[i] != src[i] {
				t.Errorf("n=%d: dst[%d] = %v, want %v", n, i, dst[i], src[i])
			}
		}
	}
}

func TestSmoothSpatialImpulse(t *testing.T) {
	src := make([]float64, 9)
	src[4] = spatialKernelSum
	dst := make([]float64, len(src))

	SmoothSpatial(dst, src)

	want := []float64{0, 0, 0, 3, 5, 3, 0, 0, 0}
	for i := range want {
		if math.Abs(dst[i]-want[i]) > 1e-12 {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestSmoothTemporalZeroFactor(t *testing.T) {
	history := []float64{5, 5, 5}
	current := []float64{0.1, 0.2, 0.3}

	for range 3 {
		cur := append([]float64(nil), current...)
		SmoothTemporal(history, cur, 0)
		for i := range cur {
			if cur[i] != current[i] {
				t.Fatalf("cur[%d] = %v, want unmodified %v", i, cur[i], current[i])
			}
		}
	}
}

func TestSmoothTemporalFullFactorConverges(t *testing.T) {
	history := []float64{0, 0}
	prev := 0.0

	for n := 1; n <= 400; n++ {
		cur := []float64{1, 1}
		SmoothTemporal(history, cur, 1)
		if cur[0] <= prev {
			t.Fatalf("iteration %d: %v did not increase from %v", n, cur[0], prev)
		}
		if cur[0] > 1 {
			t.Fatalf("iteration %d: %v overshot the steady input", n, cur[0])
		}
		prev = cur[0]
	}
	if math.Abs(prev-1) > 1e-6 {
		t.Errorf("after 400 frames output = %v, want ~1", prev)
	}
}

func TestSmoothTemporalClampsFactor(t *testing.T) {
	tests := []struct {
		factor   float64
		expected float64
	}{
		{-1, 1},
		{0, 1},
		{0.5, 1*(1-0.5*temporalCeiling) + 0},
		{1, 1 - temporalCeiling},
		{3, 1 - temporalCeiling},
		{math.NaN(), 1},
	}

	for _, tt := range tests {
		history := []float64{0}
		cur := []float64{1}
		SmoothTemporal(history, cur, tt.factor)
		if math.Abs(cur[0]-tt.expected) > 1e-12 {
			t.Errorf("factor %v: got %v, want %v", tt.factor, cur[0], tt.expected)
		}
		if history[0] != cur[0] {
			t.Errorf("factor %v: history %v not updated to output %v", tt.factor, history[0], cur[0])
		}
	}
}

func BenchmarkSmoothSpatial(b *testing.B) {
	src := make([]float64, 80)
	for i := range src {
		src[i] = float64(i % 7)
	}
	dst := make([]float64, len(src))

	b.ReportAllocs()
	for b.Loop() {
		SmoothSpatial(dst, src)
	}
}
