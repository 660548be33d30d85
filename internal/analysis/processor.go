// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// AudioProcessor is the interface for components that consume raw audio
// blocks. Process is called from the real-time audio callback and must not
// block or allocate.
type AudioProcessor interface {
	// Process handles one interleaved block of float32 samples.
	Process(in []float32)
}

// ClosableProcessor combines AudioProcessor with a Close method for resource
// cleanup.
type ClosableProcessor interface {
	AudioProcessor
	Close() error
}

// SpectrumProvider exposes the most recent spectrum frame to consumers that
// run outside the audio thread (publishers, UIs).
type SpectrumProvider interface {
	// LatestInto copies the newest frame into dst and returns its sequence
	// number. A sequence of 0 means no frame has been produced yet.
	LatestInto(dst SpectrumFrame) (uint64, error)
	Channels() int
	BandCount() int
	Bands() BandTable
}

// Compile-time checks for interface implementations.
var _ ClosableProcessor = (*SpectrumProcessor)(nil)
var _ SpectrumProvider = (*SpectrumProcessor)(nil)

// SpectrumProcessor drives an Analyzer from interleaved audio callbacks and
// keeps a copy of the latest frame for readers. Buffers the analyzer rejects
// are counted and skipped, freezing the last good frame. A band count change
// on the analyzer is picked up by the next Process call.
type SpectrumProcessor struct {
	analyzer *Analyzer
	channels int

	work SpectrumFrame // Written by Process only.

	mu       sync.RWMutex // Protects bands, latest, seq, updated and lastDrop.
	bands    int
	latest   SpectrumFrame
	seq      uint64
	updated  time.Time
	lastDrop error
	dropped  atomic.Uint64
}

// NewSpectrumProcessor wraps analyzer for a stream with the given channel
// count.
func NewSpectrumProcessor(analyzer *Analyzer, channels int) (*SpectrumProcessor, error) {
	if analyzer == nil {
		return nil, errors.New("analysis: spectrum processor requires an analyzer")
	}
	if channels <= 0 {
		return nil, ErrChannelCount
	}
	bands := analyzer.Config().BandCount
	return &SpectrumProcessor{
		analyzer: analyzer,
		channels: channels,
		bands:    bands,
		work:     NewFrame(channels, bands),
		latest:   NewFrame(channels, bands),
	}, nil
}

// Reconfigure forwards cfg to the analyzer and resizes the published frame
// to the new band count. It must not be called concurrently with itself.
func (p *SpectrumProcessor) Reconfigure(cfg Config) error {
	if err := p.analyzer.Reconfigure(cfg); err != nil {
		return err
	}
	p.adopt(p.analyzer.Config().BandCount)
	return nil
}

// adopt switches the published frame to bands per channel. The new frame
// starts silent; the sequence keeps counting.
func (p *SpectrumProcessor) adopt(bands int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bands <= 0 || bands == p.bands {
		return
	}
	p.bands = bands
	p.latest = NewFrame(p.channels, bands)
}

// Process analyzes one interleaved block and publishes the result. It
// allocates only on the first block after the band count changes.
func (p *SpectrumProcessor) Process(in []float32) {
	buf := Buffer{Channels: p.channels, Interleaved: in}
	err := p.analyzer.AnalyzeInto(p.work, buf)
	if errors.Is(err, ErrFrameShape) {
		if bands := p.analyzer.Config().BandCount; bands > 0 && !p.work.HasShape(p.channels, bands) {
			p.work = NewFrame(p.channels, bands)
			p.adopt(bands)
			err = p.analyzer.AnalyzeInto(p.work, buf)
		}
	}
	if err != nil {
		p.dropped.Add(1)
		p.mu.Lock()
		p.lastDrop = err
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	if !p.latest.HasShape(p.channels, len(p.work[0])) {
		// Reconfigure raced ahead of this block; wait for the next one.
		p.mu.Unlock()
		return
	}
	p.latest.CopyFrom(p.work)
	p.seq++
	p.updated = time.Now()
	p.mu.Unlock()
}

// LatestInto copies the newest frame into dst.
func (p *SpectrumProcessor) LatestInto(dst SpectrumFrame) (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !dst.HasShape(p.channels, p.bands) {
		return 0, ErrFrameShape
	}
	dst.CopyFrom(p.latest)
	return p.seq, nil
}

// Latest returns a copy of the newest frame and the time it was produced.
func (p *SpectrumProcessor) Latest() (SpectrumFrame, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest.Clone(), p.updated
}

// Channels returns the channel count the processor was built for.
func (p *SpectrumProcessor) Channels() int { return p.channels }

// BandCount returns the number of bands per channel.
func (p *SpectrumProcessor) BandCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bands
}

// Bands returns the analyzer's band table.
func (p *SpectrumProcessor) Bands() BandTable { return p.analyzer.Bands() }

// Dropped returns how many blocks were rejected, and the most recent
// rejection reason.
func (p *SpectrumProcessor) Dropped() (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped.Load(), p.lastDrop
}

// Close releases the underlying analyzer.
func (p *SpectrumProcessor) Close() error {
	return p.analyzer.Close()
}
