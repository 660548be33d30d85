// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
)

func TestGateEnableHotPath(t *testing.T) {
	engine := &Engine{}

	if engine.gateEnabled {
		t.Error("Gate should be disabled initially")
	}

	engine.EnableGate()
	if !engine.gateEnabled {
		t.Error("Gate should be enabled after EnableGate()")
	}

	engine.DisableGate()
	if engine.gateEnabled {
		t.Error("Gate should be disabled after DisableGate()")
	}

	engine.EnableGate()
	engine.EnableGate() // Multiple calls should be idempotent
	if !engine.gateEnabled {
		t.Error("Gate should remain enabled after multiple EnableGate()")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
		{math.NaN(), 0.0},
	}

	engine := &Engine{}

	for _, tt := range tests {
		t.Run(formatFloat(tt.input), func(t *testing.T) {
			engine.SetGateThreshold(tt.input)
			got := engine.GetGateThreshold()

			if absFloat(got-tt.expected) > 1e-6 {
				t.Errorf("Gate threshold conversion: got %.6f, want %.6f", got, tt.expected)
			}
		})
	}
}

func TestPeakAmplitude(t *testing.T) {
	tests := []struct {
		desc   string
		buffer []float32
		want   float32
	}{
		{"Empty", nil, 0},
		{"Silence", make([]float32, 64), 0},
		{"Positive peak", []float32{0.1, 0.5, -0.2}, 0.5},
		{"Negative peak", []float32{0.1, -0.75, 0.3}, 0.75},
		{"Negative zero", []float32{float32(math.Copysign(0, -1))}, 0},
		{"Full scale", []float32{-1, 1}, 1},
		{"Quiet", quietBuffer, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := math.Float32frombits(uint32(peakAmplitude(tt.buffer)))
			if math.Abs(float64(got-tt.want)) > 1e-5 {
				t.Errorf("peakAmplitude() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Comparing bit patterns must agree with comparing the float values.
func TestPeakAmplitudeOrdering(t *testing.T) {
	engine := &Engine{}
	levels := []float64{0, 1e-6, 0.001, 0.1, 0.5, 0.999, 1}

	for _, threshold := range levels {
		engine.SetGateThreshold(threshold)
		for _, level := range levels {
			buffer := []float32{0, float32(-level), float32(level) / 2}
			open := peakAmplitude(buffer) > engine.gateThreshold
			if want := float32(level) > float32(threshold); open != want {
				t.Errorf("level %v threshold %v: open = %v, want %v", level, threshold, open, want)
			}
		}
	}
}

func TestNoiseGateHotPath(t *testing.T) {
	threshold := int32(math.Float32bits(0.1))

	allocs := testing.AllocsPerRun(100, func() {
		_ = peakAmplitude(testBuffer) > threshold
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in noise gate hot path, got %.1f", allocs)
	}
}

func BenchmarkGateThresholdConversionHotPath(b *testing.B) {
	engine := &Engine{}
	values := []float64{0.0, 0.25, 0.5, 0.75, 1.0}

	for _, v := range values {
		b.Run(formatFloat(v), func(b *testing.B) {
			b.ReportAllocs()

			for b.Loop() {
				engine.SetGateThreshold(v)
				_ = engine.GetGateThreshold()
			}
		})
	}
}

func BenchmarkGateProcessingHotPath(b *testing.B) {
	benchmarks := []struct {
		name   string
		buffer []float32
	}{
		{"Quiet signal", quietBuffer},
		{"Normal signal", testBuffer},
		{"Loud signal", loudBuffer},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = peakAmplitude(bm.buffer)
			}
		})
	}
}
