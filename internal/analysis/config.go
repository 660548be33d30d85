// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"spectrum/pkg/bitint"
)

// Limits and defaults for the analyzer configuration. The defaults match a
// full-range 80 bar display fed from a 2048 frame tap.
const (
	MinTransformSize = 32
	MaxTransformSize = 32768

	DefaultSampleRate       = 44100
	DefaultTransformSize    = 2048
	DefaultBandCount        = 80
	DefaultStartFrequency   = 100
	DefaultEndFrequency     = 18000
	DefaultSmoothingFactor  = 0.5
	DefaultSpatialSmoothing = true
)

// Config describes one analyzer instance. It is treated as immutable once an
// analyzer is built from it; changes go through Analyzer.Reconfigure.
type Config struct {
	SampleRate       float64    // Sample rate of the incoming audio (Hz).
	TransformSize    int        // FFT length, a power of two. Bin count is half of it.
	BandCount        int        // Number of output values per channel.
	StartFrequency   float64    // Lower edge of the first band (Hz).
	EndFrequency     float64    // Upper edge of the last band (Hz), at most Nyquist.
	SmoothingFactor  float64    // Temporal smoothing, clamped to [0,1]. 0 disables it.
	SpatialSmoothing bool       // Apply the 7-tap kernel across neighbouring bands.
	Window           WindowFunc // Window applied before the transform.
}

// DefaultConfig returns the configuration used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		SampleRate:       DefaultSampleRate,
		TransformSize:    DefaultTransformSize,
		BandCount:        DefaultBandCount,
		StartFrequency:   DefaultStartFrequency,
		EndFrequency:     DefaultEndFrequency,
		SmoothingFactor:  DefaultSmoothingFactor,
		SpatialSmoothing: DefaultSpatialSmoothing,
		Window:           Hann,
	}
}

// Validate reports the first configuration error found. Every error wraps
// ErrConfiguration.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %g", ErrConfiguration, c.SampleRate)
	}
	if !bitint.IsPowerOfTwo(c.TransformSize) {
		return fmt.Errorf("%w: transform size must be a power of 2, got %d (next is %d)",
			ErrConfiguration, c.TransformSize, bitint.NextPowerOfTwo(c.TransformSize))
	}
	if c.TransformSize < MinTransformSize || c.TransformSize > MaxTransformSize {
		return fmt.Errorf("%w: transform size %d outside [%d, %d]",
			ErrConfiguration, c.TransformSize, MinTransformSize, MaxTransformSize)
	}
	if c.BandCount <= 0 {
		return fmt.Errorf("%w: band count must be positive, got %d", ErrConfiguration, c.BandCount)
	}
	if c.StartFrequency <= 0 {
		return fmt.Errorf("%w: start frequency must be positive, got %g", ErrConfiguration, c.StartFrequency)
	}
	if c.StartFrequency >= c.EndFrequency {
		return fmt.Errorf("%w: start frequency %g must be below end frequency %g",
			ErrConfiguration, c.StartFrequency, c.EndFrequency)
	}
	if c.EndFrequency > c.Nyquist() {
		return fmt.Errorf("%w: end frequency %g exceeds Nyquist %g",
			ErrConfiguration, c.EndFrequency, c.Nyquist())
	}
	if _, ok := windowNames[c.Window]; !ok {
		return fmt.Errorf("%w: unknown window function %d", ErrConfiguration, c.Window)
	}
	return nil
}

// BinCount is the number of magnitude bins the transform produces.
func (c Config) BinCount() int { return c.TransformSize / 2 }

// BinWidth is the spacing between bins in Hz.
func (c Config) BinWidth() float64 { return c.SampleRate / float64(c.TransformSize) }

// Nyquist is half the sample rate.
func (c Config) Nyquist() float64 { return c.SampleRate / 2 }

// sameGeometry reports whether two configs share every table-shaping field,
// meaning only the smoothing settings differ.
func (c Config) sameGeometry(o Config) bool {
	return c.SampleRate == o.SampleRate &&
		c.TransformSize == o.TransformSize &&
		c.BandCount == o.BandCount &&
		c.StartFrequency == o.StartFrequency &&
		c.EndFrequency == o.EndFrequency &&
		c.Window == o.Window
}

func clampUnit(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
