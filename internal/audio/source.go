package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spectrum/internal/analysis"
	applog "spectrum/internal/log"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Source yields fixed-size blocks of interleaved samples in [-1, 1].
type Source interface {
	Channels() int
	SampleRate() float64
	// Next returns the next block, or io.EOF when the input is exhausted.
	// The returned slice may be reused by the following call.
	Next() ([]float32, error)
	Close() error
}

// ErrUnsupportedFormat is returned by OpenSource for unknown file types.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// OpenSource opens path for block reads of frames frames each, choosing a
// decoder by file extension (.wav, .mp3, .ogg, .flac).
func OpenSource(path string, frames int) (Source, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", frames)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".wav" || ext == ".wave" {
		src, err := OpenWAV(path, frames)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	var open func(*os.File, int) (Source, error)
	switch ext {
	case ".mp3":
		open = newMP3Source
	case ".ogg", ".oga":
		open = newOGGSource
	case ".flac":
		open = newFLACSource
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := open(f, frames)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return src, nil
}

// streamSource cuts a stream of interleaved samples into blocks. read fills
// p with as many samples as it can and returns io.EOF at the end.
type streamSource struct {
	channels   int
	sampleRate float64
	read       func(p []float32) (int, error)
	closer     io.Closer
	block      []float32
	eof        bool
}

func newStreamSource(channels int, sampleRate float64, frames int, read func([]float32) (int, error), closer io.Closer) (*streamSource, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid stream format: %d channels at %v Hz", channels, sampleRate)
	}
	return &streamSource{
		channels:   channels,
		sampleRate: sampleRate,
		read:       read,
		closer:     closer,
		block:      make([]float32, frames*channels),
	}, nil
}

func (s *streamSource) Channels() int       { return s.channels }
func (s *streamSource) SampleRate() float64 { return s.sampleRate }

// Next fills a whole block, zero padding the final one.
func (s *streamSource) Next() ([]float32, error) {
	if s.eof {
		return nil, io.EOF
	}

	filled := 0
	for filled < len(s.block) {
		n, err := s.read(s.block[filled:])
		filled += n
		if errors.Is(err, io.EOF) {
			s.eof = true
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, io.ErrNoProgress
		}
	}

	if filled == 0 {
		return nil, io.EOF
	}
	clear(s.block[filled:])
	return s.block, nil
}

func (s *streamSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// MP3 streams decode to 16-bit little-endian stereo.
func newMP3Source(f *os.File, frames int) (Source, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}

	var raw []byte
	read := func(p []float32) (int, error) {
		// Whole stereo frames only, so channels stay aligned.
		want := len(p) * 2
		if cap(raw) < want {
			raw = make([]byte, want)
		}
		n, err := io.ReadFull(dec, raw[:want])
		n -= n % 4
		pcm16ToFloat(p, raw[:n])
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return n / 2, err
	}
	return newStreamSource(2, float64(dec.SampleRate()), frames, read, f)
}

func newOGGSource(f *os.File, frames int) (Source, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, err
	}
	return newStreamSource(r.Channels(), float64(r.SampleRate()), frames, r.Read, f)
}

func newFLACSource(f *os.File, frames int) (Source, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, err
	}

	channels := int(stream.Info.NChannels)
	if channels == 0 || stream.Info.BitsPerSample == 0 {
		return nil, errors.New("invalid FLAC stream info")
	}
	scale := 1 / float32(int64(1)<<(stream.Info.BitsPerSample-1))

	var (
		decoded  []float32
		pending  []float32 // Tail of decoded not yet handed out.
		subframe = make([][]int32, channels)
	)
	read := func(p []float32) (int, error) {
		if len(pending) == 0 {
			fr, err := stream.ParseNext()
			if err != nil {
				return 0, err
			}
			for ch, sub := range fr.Subframes {
				subframe[ch] = sub.Samples
			}
			decoded = interleaveInt32(decoded[:0], subframe, scale)
			pending = decoded
		}
		n := copy(p, pending)
		pending = pending[n:]
		return n, nil
	}
	return newStreamSource(channels, float64(stream.Info.SampleRate), frames, read, f)
}

// pcm16ToFloat converts little-endian 16-bit samples in raw into dst.
func pcm16ToFloat(dst []float32, raw []byte) {
	for i := 0; i+1 < len(raw) && i/2 < len(dst); i += 2 {
		dst[i/2] = float32(int16(binary.LittleEndian.Uint16(raw[i:]))) / 32768
	}
}

// interleaveInt32 appends one frame's per-channel samples to dst in
// interleaved order, scaled by scale.
func interleaveInt32(dst []float32, channels [][]int32, scale float32) []float32 {
	if len(channels) == 0 {
		return dst
	}
	for i := range channels[0] {
		for _, ch := range channels {
			dst = append(dst, float32(ch[i])*scale)
		}
	}
	return dst
}

// FileFrame is one analyzed block of a file.
type FileFrame struct {
	Index  int
	Offset time.Duration
	Frame  analysis.SpectrumFrame
}

// AnalyzeFile runs every block of the audio file at path through an
// analyzer built from cfg and calls emit with each frame. The analyzer's
// sample rate is taken from the file, and an end frequency above the file's
// Nyquist limit is lowered to it. The frame passed to emit is reused between
// calls.
func AnalyzeFile(ctx context.Context, path string, cfg analysis.Config, emit func(FileFrame) error) error {
	src, err := OpenSource(path, cfg.TransformSize)
	if err != nil {
		return err
	}
	defer src.Close()

	cfg.SampleRate = src.SampleRate()
	if nyquist := cfg.Nyquist(); cfg.EndFrequency > nyquist {
		applog.Warnf("Audio: End frequency %.0f Hz is above the Nyquist limit of %s; using %.0f Hz",
			cfg.EndFrequency, path, nyquist)
		cfg.EndFrequency = nyquist
	}
	analyzer, err := analysis.New(cfg)
	if err != nil {
		return fmt.Errorf("%s at %.0f Hz: %w", path, cfg.SampleRate, err)
	}
	defer analyzer.Close()

	applog.Infof("Audio: Analyzing %s (%d channels, %.0f Hz)", path, src.Channels(), src.SampleRate())

	frame := analysis.NewFrame(src.Channels(), cfg.BandCount)
	blockDuration := time.Duration(float64(cfg.TransformSize) / cfg.SampleRate * float64(time.Second))

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		block, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		buf := analysis.Buffer{SampleRate: src.SampleRate(), Channels: src.Channels(), Interleaved: block}
		if err := analyzer.AnalyzeInto(frame, buf); err != nil {
			return fmt.Errorf("block %d: %w", index, err)
		}
		if err := emit(FileFrame{Index: index, Offset: time.Duration(index) * blockDuration, Frame: frame}); err != nil {
			return err
		}
	}
}
