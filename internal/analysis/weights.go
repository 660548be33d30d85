// SPDX-License-Identifier: MIT
package analysis

import "math"

// A-weighting pole frequencies (Hz) and the gain that puts 1 kHz at 0 dB.
const (
	aWeightGain = 1.2589
	aWeightF1   = 12194.217
	aWeightF2   = 20.598997
	aWeightF3   = 107.65265
	aWeightF4   = 737.86223
)

var (
	aWeightC1 = aWeightF1 * aWeightF1
	aWeightC2 = aWeightF2 * aWeightF2
	aWeightC3 = aWeightF3 * aWeightF3
	aWeightC4 = aWeightF4 * aWeightF4
)

// WeightTable holds one linear perceptual weight per transform bin.
type WeightTable []float64

// NewWeightTable evaluates the A-weighting curve at the centre frequency of
// every bin of a transformSize-point transform.
func NewWeightTable(sampleRate float64, transformSize int) WeightTable {
	binWidth := sampleRate / float64(transformSize)
	weights := make(WeightTable, transformSize/2)
	for i := range weights {
		weights[i] = AWeight(float64(i) * binWidth)
	}
	return weights
}

// AWeight returns the linear A-weighting gain at freq. It is 0 at DC and
// close to 1 at 1 kHz.
func AWeight(freq float64) float64 {
	f2 := freq * freq
	num := aWeightC1 * f2 * f2
	den := (f2 + aWeightC2) * math.Sqrt((f2+aWeightC3)*(f2+aWeightC4)) * (f2 + aWeightC1)
	return aWeightGain * num / den
}
