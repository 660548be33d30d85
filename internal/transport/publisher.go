// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"spectrum/internal/analysis"
	applog "spectrum/internal/log"
)

// DefaultPublishInterval is used when a non-positive interval is given
// (about 30 frames per second).
const DefaultPublishInterval = 33 * time.Millisecond

// Publisher periodically fetches the latest spectrum frame from a provider
// and sends it to every registered transport. Frames that have not changed
// since the previous tick are skipped. It runs in a separate goroutine
// managed by Start and Stop.
type Publisher struct {
	provider   analysis.SpectrumProvider
	transports []Transport
	interval   time.Duration
	now        func() time.Time

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	frame   analysis.SpectrumFrame // Reused until the provider's shape changes.
	lastSeq uint64
	sent    uint64
}

// NewPublisher creates a publisher for provider. At least one transport is
// required.
func NewPublisher(provider analysis.SpectrumProvider, interval time.Duration, transports ...Transport) (*Publisher, error) {
	if provider == nil {
		return nil, errors.New("publisher: spectrum provider cannot be nil")
	}
	if len(transports) == 0 {
		return nil, errors.New("publisher: at least one transport is required")
	}
	for i, t := range transports {
		if t == nil {
			return nil, fmt.Errorf("publisher: transport %d is nil", i)
		}
	}
	if interval <= 0 {
		interval = DefaultPublishInterval
		applog.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("Publisher: Initializing (Interval: %s, Channels: %d, Bands: %d, Transports: %d)",
		interval, provider.Channels(), provider.BandCount(), len(transports))

	return &Publisher{
		provider:   provider,
		transports: transports,
		interval:   interval,
		now:        time.Now,
		frame:      analysis.NewFrame(provider.Channels(), provider.BandCount()),
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				if _, err := p.Publish(); err != nil {
					applog.Errorf("Publisher: %v", err)
				}
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// It is safe to call Stop multiple times.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("Publisher: Stopped after %d messages.", p.Sent())
	return nil
}

// Publish sends the latest frame if it is newer than the last one sent and
// reports whether anything was sent. Every transport is tried; the first
// error is returned.
func (p *Publisher) Publish() (bool, error) {
	if channels, bands := p.provider.Channels(), p.provider.BandCount(); !p.frame.HasShape(channels, bands) {
		applog.Infof("Publisher: Spectrum shape changed to %d x %d", channels, bands)
		p.frame = analysis.NewFrame(channels, bands)
	}
	seq, err := p.provider.LatestInto(p.frame)
	if err != nil {
		return false, fmt.Errorf("fetching spectrum: %w", err)
	}
	if seq == 0 || seq == p.lastSeq {
		return false, nil
	}
	p.lastSeq = seq

	msg := NewSpectrumMessage(seq, p.now(), p.frame, p.provider.Bands())

	var firstErr error
	for _, t := range p.transports {
		if err := t.Send(msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sending spectrum %d: %w", seq, err)
		}
	}

	p.mu.Lock()
	p.sent++
	p.mu.Unlock()
	return true, firstErr
}

// Sent returns the number of frames published so far.
func (p *Publisher) Sent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// Close stops the publisher and closes every transport.
func (p *Publisher) Close() error {
	err := p.Stop()
	for _, t := range p.transports {
		err = errors.Join(err, t.Close())
	}
	return err
}
