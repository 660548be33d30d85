// SPDX-License-Identifier: MIT
package analysis

// Spatial kernel across neighbouring bands. Its half width of bands at each
// edge is passed through untouched.
var spatialKernel = [...]float64{1, 2, 3, 5, 3, 2, 1}

const (
	spatialKernelSum  = 17
	spatialKernelHalf = len(spatialKernel) / 2
)

// temporalCeiling caps how much of the previous frame is retained, so a
// smoothing factor of 1 still converges on a steady input.
const temporalCeiling = 0.95

// SmoothSpatial writes the 7-tap weighted moving average of src into dst.
// The first and last three values are copied unchanged, as is any sequence
// shorter than the kernel. dst and src must not overlap.
func SmoothSpatial(dst, src []float64) {
	n := len(src)
	copy(dst, src)
	for i := spatialKernelHalf; i < n-spatialKernelHalf; i++ {
		var acc float64
		for k, w := range spatialKernel {
			acc += src[i-spatialKernelHalf+k] * w
		}
		dst[i] = acc / spatialKernelSum
	}
}

// SmoothTemporal blends current into history in place as a leaky integrator
// and copies the result into current. factor is clamped to [0,1]; 0 leaves
// current unchanged.
func SmoothTemporal(history, current []float64, factor float64) {
	decay := clampUnit(factor) * temporalCeiling
	for i, v := range current {
		h := history[i]*decay + v*(1-decay)
		history[i] = h
		current[i] = h
	}
}
