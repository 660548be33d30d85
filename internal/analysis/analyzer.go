// SPDX-License-Identifier: MIT
/*
Package analysis turns fixed-size blocks of PCM into a smoothed,
logarithmically banded, perceptually weighted magnitude spectrum.

Per channel, every call runs:

	window -> real FFT -> |X|/N (DC halved) -> A-weight per bin
	       -> max-hold band reduction -> 7-tap spatial smoothing
	       -> leaky-integrator temporal smoothing

All tables and scratch buffers are built by New or Reconfigure, so
AnalyzeInto does not allocate once the channel count is stable. Rejected
buffers return preallocated errors wrapping ErrInputShape.
*/
package analysis

import (
	"sync"

	applog "spectrum/internal/log"

	"gonum.org/v1/gonum/floats"
)

// Buffer is one block of audio handed to the analyzer. Exactly one of
// Interleaved or Planar is used; Planar wins when both are set.
type Buffer struct {
	SampleRate  float64     // 0 means the analyzer's configured rate.
	Channels    int         // Number of channels in the block.
	Interleaved []float32   // TransformSize*Channels samples, frame-major.
	Planar      [][]float32 // Channels runs of TransformSize samples.
}

// SpectrumFrame holds band values, indexed [channel][band].
type SpectrumFrame [][]float64

// NewFrame allocates a frame for the given shape on one backing array.
func NewFrame(channels, bands int) SpectrumFrame {
	backing := make([]float64, channels*bands)
	frame := make(SpectrumFrame, channels)
	for c := range frame {
		frame[c] = backing[c*bands : (c+1)*bands : (c+1)*bands]
	}
	return frame
}

// HasShape reports whether the frame is channels x bands.
func (f SpectrumFrame) HasShape(channels, bands int) bool {
	if len(f) != channels {
		return false
	}
	for _, ch := range f {
		if len(ch) != bands {
			return false
		}
	}
	return true
}

// CopyFrom copies src into f. Both frames must have the same shape.
func (f SpectrumFrame) CopyFrom(src SpectrumFrame) {
	for c := range f {
		copy(f[c], src[c])
	}
}

// Clone returns a deep copy of the frame.
func (f SpectrumFrame) Clone() SpectrumFrame {
	bands := 0
	if len(f) > 0 {
		bands = len(f[0])
	}
	out := NewFrame(len(f), bands)
	out.CopyFrom(f)
	return out
}

// pipeline is everything derived from one Config: tables, bin ranges and the
// transform. It is replaced as a whole on reconfiguration.
type pipeline struct {
	cfg     Config
	bands   BandTable
	ranges  []binRange
	weights WeightTable
	xform   *Transform
	banded  []float64
}

func newPipeline(cfg Config) (*pipeline, error) {
	bands, err := NewBandTable(cfg.StartFrequency, cfg.EndFrequency, cfg.BandCount)
	if err != nil {
		return nil, err
	}
	xform, err := NewTransform(cfg.TransformSize, cfg.Window)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		cfg:     cfg,
		bands:   bands,
		ranges:  bands.binRanges(cfg.BinWidth(), cfg.BinCount()),
		weights: NewWeightTable(cfg.SampleRate, cfg.TransformSize),
		xform:   xform,
		banded:  make([]float64, cfg.BandCount),
	}, nil
}

func (p *pipeline) close() {
	_ = p.xform.Close()
}

// check validates the shape of buf against the pipeline without touching
// any state.
func (p *pipeline) check(buf Buffer) error {
	if buf.SampleRate != 0 && buf.SampleRate != p.cfg.SampleRate {
		return ErrSampleRate
	}
	if buf.Channels <= 0 {
		return ErrChannelCount
	}
	size := p.cfg.TransformSize
	if buf.Planar != nil {
		if len(buf.Planar) != buf.Channels {
			return ErrChannelCount
		}
		for _, run := range buf.Planar {
			if run == nil {
				return ErrMissingChannel
			}
			if len(run) != size {
				return ErrBufferLength
			}
		}
		return nil
	}
	if buf.Interleaved == nil {
		return ErrMissingChannel
	}
	if len(buf.Interleaved) != size*buf.Channels {
		return ErrBufferLength
	}
	return nil
}

// Analyzer is a real-time spectrum analyzer. Calls are serialized by an
// internal mutex; a single instance should be driven from one audio
// callback.
type Analyzer struct {
	mu   sync.Mutex
	pipe *pipeline

	// Temporal smoothing state, one row per channel.
	history [][]float64
	primed  []bool
}

// New validates cfg and builds every table the analyzer needs.
func New(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SmoothingFactor = clampUnit(cfg.SmoothingFactor)

	pipe, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}

	applog.Infof("Analysis: Initializing analyzer (Size: %d, SampleRate: %.1f Hz, Bands: %d, Range: %.1f-%.1f Hz, Window: %s)",
		cfg.TransformSize, cfg.SampleRate, cfg.BandCount, cfg.StartFrequency, cfg.EndFrequency, cfg.Window)

	return &Analyzer{pipe: pipe}, nil
}

// Config returns the active configuration.
func (a *Analyzer) Config() Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipe == nil {
		return Config{}
	}
	return a.pipe.cfg
}

// Bands returns a copy of the active band table.
func (a *Analyzer) Bands() BandTable {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipe == nil {
		return nil
	}
	return append(BandTable(nil), a.pipe.bands...)
}

// Weights returns a copy of the active per-bin weight table.
func (a *Analyzer) Weights() WeightTable {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipe == nil {
		return nil
	}
	return append(WeightTable(nil), a.pipe.weights...)
}

// Reconfigure swaps in a new configuration between calls. If only the
// smoothing settings change, tables and history are kept. Otherwise new
// tables are built outside the lock, swapped in atomically and the temporal
// history is reset.
func (a *Analyzer) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.SmoothingFactor = clampUnit(cfg.SmoothingFactor)

	a.mu.Lock()
	if a.pipe == nil {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.pipe.cfg.sameGeometry(cfg) {
		a.pipe.cfg = cfg
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	next, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	a.mu.Lock()
	prev := a.pipe
	if prev == nil {
		a.mu.Unlock()
		next.close()
		return ErrClosed
	}
	a.pipe = next
	a.history = nil
	a.primed = nil
	a.mu.Unlock()

	prev.close()
	applog.Infof("Analysis: Reconfigured analyzer (Size: %d, Bands: %d, Range: %.1f-%.1f Hz)",
		cfg.TransformSize, cfg.BandCount, cfg.StartFrequency, cfg.EndFrequency)
	return nil
}

// SetSmoothingFactor changes temporal responsiveness without touching the
// tables or the history. The value is clamped to [0,1].
func (a *Analyzer) SetSmoothingFactor(factor float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipe != nil {
		a.pipe.cfg.SmoothingFactor = clampUnit(factor)
	}
}

// Reset forgets the temporal history. The next frame for every channel is
// returned unblended.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for c := range a.primed {
		a.primed[c] = false
	}
}

// Analyze runs the pipeline on buf and returns a newly allocated frame owned
// by the caller. Use AnalyzeInto on the real-time path.
func (a *Analyzer) Analyze(buf Buffer) (SpectrumFrame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipe == nil {
		return nil, ErrClosed
	}
	if err := a.pipe.check(buf); err != nil {
		return nil, err
	}
	frame := NewFrame(buf.Channels, len(a.pipe.bands))
	a.analyzeLocked(frame, buf)
	return frame, nil
}

// AnalyzeInto runs the pipeline on buf and writes the result into dst, which
// must be Channels x BandCount. It does not allocate unless the channel
// count differs from the previous call. On error dst and the temporal
// history are left untouched.
func (a *Analyzer) AnalyzeInto(dst SpectrumFrame, buf Buffer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipe == nil {
		return ErrClosed
	}
	if err := a.pipe.check(buf); err != nil {
		return err
	}
	if !dst.HasShape(buf.Channels, len(a.pipe.bands)) {
		return ErrFrameShape
	}
	a.analyzeLocked(dst, buf)
	return nil
}

func (a *Analyzer) analyzeLocked(dst SpectrumFrame, buf Buffer) {
	p := a.pipe
	a.ensureHistory(buf.Channels, len(p.bands))

	for c := 0; c < buf.Channels; c++ {
		if buf.Planar != nil {
			p.xform.loadPlanar(buf.Planar[c])
		} else {
			p.xform.loadInterleaved(buf.Interleaved, c, buf.Channels)
		}
		mags := p.xform.run()
		floats.Mul(mags, p.weights)
		reduceBands(p.banded, mags, p.ranges)

		out := dst[c]
		if p.cfg.SpatialSmoothing {
			SmoothSpatial(out, p.banded)
		} else {
			copy(out, p.banded)
		}

		if !a.primed[c] {
			copy(a.history[c], out)
			a.primed[c] = true
			continue
		}
		SmoothTemporal(a.history[c], out, p.cfg.SmoothingFactor)
	}
}

// ensureHistory resizes the temporal state when the channel count changes.
// A change discards all history.
func (a *Analyzer) ensureHistory(channels, bands int) {
	if len(a.history) == channels {
		return
	}
	a.history = NewFrame(channels, bands)
	a.primed = make([]bool, channels)
}

// Close releases the transform. The analyzer cannot be used afterwards.
func (a *Analyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipe == nil {
		return nil
	}
	a.pipe.close()
	a.pipe = nil
	a.history = nil
	a.primed = nil
	applog.Debugf("Analysis: Closed analyzer")
	return nil
}
