package audio

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	applog "spectrum/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// maxConsecutiveWriteFailures stops a recording that keeps failing, such as
// on a full disk.
const maxConsecutiveWriteFailures = 5

var errAlreadyRecording = errors.New("already recording")

// StartRecording creates filename and starts writing every captured block
// to it as PCM WAV at the configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return errAlreadyRecording
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	bitDepth := e.bitDepth
	if bitDepth != 24 {
		bitDepth = 16
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, int(e.sampleRate), bitDepth, e.channels, 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.channels,
			SampleRate:  int(e.sampleRate),
		},
		Data:           make([]int, e.framesPerBuffer*e.channels),
		SourceBitDepth: bitDepth,
	}
	e.sampleScale = float32(int(1)<<(bitDepth-1) - 1)
	e.writeFailures = 0

	atomic.StoreInt32(&e.isRecording, 1)
	applog.Infof("Audio: Recording %d-bit WAV to %s", bitDepth, filename)

	return nil
}

// writeRecording converts one float32 block to integer PCM and appends it.
// Runs on the audio thread; a block arriving while StopRecording holds the
// lock is dropped instead of waiting.
func (e *Engine) writeRecording(buffer []float32) {
	if !e.recMu.TryLock() {
		return
	}
	defer e.recMu.Unlock()
	if e.wavEncoder == nil {
		return
	}

	data := e.sampleBuf.Data[:len(buffer)]
	for i, sample := range buffer {
		data[i] = int(clampUnitSample(sample) * e.sampleScale)
	}
	e.sampleBuf.Data = data

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		e.writeFailures++
		applog.Errorf("Audio: Error writing to WAV file: %v", err)
		if e.writeFailures >= maxConsecutiveWriteFailures {
			applog.Errorf("Audio: Stopping recording after %d consecutive write failures", e.writeFailures)
			atomic.StoreInt32(&e.isRecording, 0)
		}
		return
	}
	e.writeFailures = 0
}

// StopRecording finalizes the WAV header and closes the file.
func (e *Engine) StopRecording() error {
	atomic.StoreInt32(&e.isRecording, 0)

	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return fmt.Errorf("failed to finalize recording: %w", err)
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

func clampUnitSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
