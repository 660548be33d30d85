// SPDX-License-Identifier: MIT
/*
Package audio captures live input through PortAudio and feeds it to the
spectrum analyzer:
- Float32 capture with one transform length of frames per callback
- Noise gate with branchless peak detection
- WAV recording of the captured input with atomic state management
- WAV file decoding for offline analysis

Thread Safety:
- Uses atomic operations for recording state
- Pre-allocates buffers to avoid GC in the hot path
- Locks the OS thread during audio processing
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"spectrum/internal/analysis"
	"spectrum/internal/config"
	applog "spectrum/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// Engine owns the input stream and hands every captured block to a
// processor.
type Engine struct {
	config *config.Config

	channels        int
	framesPerBuffer int
	sampleRate      float64

	// Audio input handling.
	inputBuffer  []float32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Spectrum analysis of every block.
	processor analysis.AudioProcessor

	// Noise gate for signal conditioning.
	gateEnabled   bool
	gateThreshold int32 // Bit pattern of the float32 threshold, sign cleared.

	// Recording state and buffers.
	isRecording   int32      // Atomic flag for thread-safe state
	recMu         sync.Mutex // Guards the encoder between the callback and Stop.
	outputFile    *os.File
	wavEncoder    *wav.Encoder
	sampleBuf     *audio.IntBuffer // Reusable buffer for format conversion
	sampleScale   float32
	bitDepth      int
	writeFailures int
}

// NewEngine resolves the configured input device and preallocates the
// capture buffer. Each callback delivers Analyzer.FFTSize frames.
func NewEngine(cfg *config.Config, processor analysis.AudioProcessor) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.Audio.InputChannels {
		return nil, fmt.Errorf("device %q supports %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.Audio.InputChannels)
	}

	engine := newEngine(cfg, processor)
	engine.inputDevice = inputDevice

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	applog.Infof("Audio: Using input device %q (%d channels, %d frames per buffer, latency %v)",
		inputDevice.Name, engine.channels, engine.framesPerBuffer, engine.inputLatency)

	return engine, nil
}

// newEngine builds an engine without touching PortAudio.
func newEngine(cfg *config.Config, processor analysis.AudioProcessor) *Engine {
	e := &Engine{
		config:          cfg,
		channels:        cfg.Audio.InputChannels,
		framesPerBuffer: cfg.Analyzer.FFTSize,
		sampleRate:      cfg.Audio.SampleRate,
		processor:       processor,
		bitDepth:        cfg.Recording.BitDepth,
	}
	e.inputBuffer = make([]float32, e.framesPerBuffer*e.channels)
	if cfg.Audio.NoiseGate > 0 {
		e.SetGateThreshold(cfg.Audio.NoiseGate)
		e.EnableGate()
	}
	return e
}

// StartInputStream opens and starts a float32 input-only stream.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.framesPerBuffer,
		SampleRate:      e.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return err
	}

	return nil
}

// StopInputStream stops and closes the stream if one is open.
func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(e.inputBuffer, in)
	clear(e.inputBuffer[n:])

	if atomic.LoadInt32(&e.isRecording) == 1 {
		e.writeRecording(e.inputBuffer)
	}

	e.processBuffer(e.inputBuffer)
}

// processBuffer gates the block in place and passes it to the processor.
// Performance Critical (Hot Path):
// - No allocations
// - Branchless peak detection
func (e *Engine) processBuffer(buffer []float32) {
	if e.gateEnabled && peakAmplitude(buffer) <= e.gateThreshold {
		// Closed gate: the analyzer sees silence and its display decays.
		clear(buffer)
	}
	if e.processor != nil {
		e.processor.Process(buffer)
	}
}

// Close stops recording and the input stream.
func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	if err := e.StopInputStream(); err != nil {
		return err
	}

	return nil
}
