// SPDX-License-Identifier: MIT
package audio

import "math"

const signBit = 1 << 31

func (e *Engine) EnableGate() {
	e.gateEnabled = true
}

func (e *Engine) DisableGate() {
	e.gateEnabled = false
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 || threshold != threshold {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	e.gateThreshold = int32(math.Float32bits(float32(threshold)))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) GetGateThreshold() float64 {
	return float64(math.Float32frombits(uint32(e.gateThreshold)))
}

// peakAmplitude returns the largest absolute sample of buffer as the bit
// pattern of a non-negative float32. For finite non-negative floats the bit
// patterns order the same way as the values, so the comparison stays in
// integer arithmetic and the loop has no branches.
func peakAmplitude(buffer []float32) int32 {
	var maxAmplitude int32
	for _, sample := range buffer {
		amplitude := int32(math.Float32bits(sample) &^ signBit)
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude
}
