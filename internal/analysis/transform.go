// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"

	"spectrum/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Transform owns the FFT plan, window and scratch buffers for one transform
// length. It is not safe for concurrent use; a different length needs a new
// Transform.
type Transform struct {
	size   int
	scale  float64
	plan   *fourier.FFT
	window []float64    // Pre-calculated window coefficients.
	input  []float64    // Windowed samples of the current channel.
	coeffs []complex128 // size/2+1 complex bins from the real FFT.
	mags   []float64    // size/2 normalized magnitudes, Nyquist dropped.
}

// NewTransform allocates everything a size-point windowed real FFT needs.
func NewTransform(size int, wf WindowFunc) (*Transform, error) {
	if !bitint.IsPowerOfTwo(size) || size < 2 {
		return nil, fmt.Errorf("%w: transform size must be a power of 2, got %d", ErrConfiguration, size)
	}
	return &Transform{
		size:   size,
		scale:  1 / float64(size),
		plan:   fourier.NewFFT(size),
		window: windowCoefficients(size, wf),
		input:  make([]float64, size),
		coeffs: make([]complex128, size/2+1),
		mags:   make([]float64, size/2),
	}, nil
}

// Size returns the transform length.
func (t *Transform) Size() int { return t.size }

// BinCount returns the number of magnitudes produced per run.
func (t *Transform) BinCount() int { return t.size / 2 }

// Magnitudes windows one planar run of exactly Size samples, transforms it
// and returns the normalized magnitudes. The returned slice is owned by the
// Transform and overwritten by the next call.
func (t *Transform) Magnitudes(samples []float32) ([]float64, error) {
	if t.plan == nil {
		return nil, ErrClosed
	}
	if len(samples) != t.size {
		return nil, ErrBufferLength
	}
	t.loadPlanar(samples)
	return t.run(), nil
}

// loadPlanar windows a contiguous channel run into the input buffer.
func (t *Transform) loadPlanar(samples []float32) {
	for i, s := range samples[:t.size] {
		t.input[i] = float64(s) * t.window[i]
	}
}

// loadInterleaved picks one channel out of an interleaved block while
// windowing, so no separate de-interleave copy is needed.
func (t *Transform) loadInterleaved(samples []float32, channel, channels int) {
	for i := range t.input {
		t.input[i] = float64(samples[i*channels+channel]) * t.window[i]
	}
}

// run transforms the loaded input and fills t.mags.
func (t *Transform) run() []float64 {
	t.plan.Coefficients(t.coeffs, t.input)

	// A real input has no imaginary DC component; force it for exactness.
	t.coeffs[0] = complex(real(t.coeffs[0]), 0)

	for i := range t.mags {
		t.mags[i] = cmplx.Abs(t.coeffs[i])
	}
	floats.Scale(t.scale, t.mags)

	// One-sided spectrum: DC has no mirrored partner.
	t.mags[0] /= 2
	return t.mags
}

// Close releases the plan and scratch buffers. Further calls to Magnitudes
// return ErrClosed.
func (t *Transform) Close() error {
	t.plan = nil
	t.window = nil
	t.input = nil
	t.coeffs = nil
	t.mags = nil
	return nil
}
