// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource reads a PCM WAV file as interleaved float32 blocks of a fixed
// number of frames.
type WAVSource struct {
	file       *os.File
	decoder    *wav.Decoder
	channels   int
	sampleRate float64
	frames     int
	scale      float32
	pcm        *audio.IntBuffer
	block      []float32
	eof        bool
}

// OpenWAV opens path for block reads of frames frames each.
func OpenWAV(path string, frames int) (*WAVSource, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", frames)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}
	if err := decoder.FwdToPCM(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to find PCM data in %s: %w", path, err)
	}

	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)
	if channels == 0 || bitDepth < 16 || bitDepth > 32 {
		file.Close()
		return nil, fmt.Errorf("unsupported WAV format in %s: %d channels, %d bits", path, channels, bitDepth)
	}

	return &WAVSource{
		file:       file,
		decoder:    decoder,
		channels:   channels,
		sampleRate: float64(decoder.SampleRate),
		frames:     frames,
		scale:      1 / float32(int64(1)<<(bitDepth-1)),
		pcm: &audio.IntBuffer{
			Format:         decoder.Format(),
			Data:           make([]int, frames*channels),
			SourceBitDepth: bitDepth,
		},
		block: make([]float32, frames*channels),
	}, nil
}

// Channels returns the file's channel count.
func (s *WAVSource) Channels() int { return s.channels }

// SampleRate returns the file's sample rate in Hz.
func (s *WAVSource) SampleRate() float64 { return s.sampleRate }

// Next returns the next interleaved block, scaled to [-1, 1). A short final
// block is zero padded. It returns io.EOF once the data is exhausted. The
// returned slice is reused by the following call.
func (s *WAVSource) Next() ([]float32, error) {
	if s.eof {
		return nil, io.EOF
	}

	s.pcm.Data = s.pcm.Data[:cap(s.pcm.Data)]
	n, err := s.decoder.PCMBuffer(s.pcm)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode PCM: %w", err)
	}
	if n == 0 {
		s.eof = true
		return nil, io.EOF
	}

	for i, v := range s.pcm.Data[:n] {
		s.block[i] = float32(v) * s.scale
	}
	clear(s.block[n:])
	return s.block, nil
}

// Close closes the underlying file.
func (s *WAVSource) Close() error {
	return s.file.Close()
}
