package config

import (
	"path/filepath"
	"time"

	"spectrum/internal/analysis"
)

// Hardware and processing limits.
const (
	MinDeviceID   = -1     // -1 represents the system default device.
	MinSampleRate = 8000   // Minimum usable sample rate (Hz).
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz).
	MaxChannels   = 32
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // A one-off command to run instead of live capture ("list", "analyze").
	Audio     AudioConfig     `yaml:"audio"`             // Capture settings.
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`          // Spectrum analysis settings.
	Recording RecordingConfig `yaml:"recording"`         // Recording of the captured input.
	Transport TransportConfig `yaml:"transport"`         // Where spectrum frames are sent.

	Args        []string `yaml:"-"` // Positional arguments of the one-off command.
	Interactive bool     `yaml:"-"` // Open the device browser for "list".
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice   int     `yaml:"input_device"`   // PortAudio device index for audio input (-1 for default).
	SampleRate    float64 `yaml:"sample_rate"`    // Sample rate in Hz (e.g., 44100, 48000).
	InputChannels int     `yaml:"input_channels"` // Number of input channels to capture.
	LowLatency    bool    `yaml:"low_latency"`    // Request low latency settings from the device.
	NoiseGate     float64 `yaml:"noise_gate"`     // Blocks whose peak is at or below this level are zeroed. 0 disables the gate.
}

// AnalyzerConfig holds the spectrum analyzer settings. The transform size is
// also the capture buffer size.
type AnalyzerConfig struct {
	FFTSize          int     `yaml:"fft_size"`          // Transform length, a power of two.
	Bands            int     `yaml:"bands"`             // Output values per channel.
	StartFrequency   float64 `yaml:"start_frequency"`   // Lower edge of the first band (Hz).
	EndFrequency     float64 `yaml:"end_frequency"`     // Upper edge of the last band (Hz).
	SmoothingFactor  float64 `yaml:"smoothing_factor"`  // Temporal smoothing in [0,1].
	SpatialSmoothing bool    `yaml:"spatial_smoothing"` // Smooth across neighbouring bands.
	Window           string  `yaml:"window"`            // Window function name (e.g., "hann", "blackman").
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the captured input to file.
	OutputDir  string `yaml:"output_dir"`  // Directory for generated file names.
	OutputFile string `yaml:"output_file"` // Explicit file path, overrides OutputDir.
	BitDepth   int    `yaml:"bit_depth"`   // 16 or 24.
}

// TransportConfig holds settings related to sending spectrum frames over the network.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve frames to WebSocket clients.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address for the WebSocket server.
	PublishInterval  time.Duration `yaml:"publish_interval"`   // Interval between WebSocket frames.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// Default returns the built-in configuration used when no file is found.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:   MinDeviceID,
			SampleRate:    analysis.DefaultSampleRate,
			InputChannels: 2,
		},
		Analyzer: AnalyzerConfig{
			FFTSize:          analysis.DefaultTransformSize,
			Bands:            analysis.DefaultBandCount,
			StartFrequency:   analysis.DefaultStartFrequency,
			EndFrequency:     analysis.DefaultEndFrequency,
			SmoothingFactor:  analysis.DefaultSmoothingFactor,
			SpatialSmoothing: analysis.DefaultSpatialSmoothing,
			Window:           analysis.Hann.String(),
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			WebSocketAddr:    ":8080",
			PublishInterval:  33 * time.Millisecond, // ~30Hz.
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond,
		},
	}
}

// AnalyzerConfig converts the analyzer and audio sections into the
// analysis package's configuration.
func (c *Config) AnalyzerConfig() (analysis.Config, error) {
	wf, err := analysis.ParseWindowFunc(c.Analyzer.Window)
	if err != nil {
		return analysis.Config{}, err
	}
	return analysis.Config{
		SampleRate:       c.Audio.SampleRate,
		TransformSize:    c.Analyzer.FFTSize,
		BandCount:        c.Analyzer.Bands,
		StartFrequency:   c.Analyzer.StartFrequency,
		EndFrequency:     c.Analyzer.EndFrequency,
		SmoothingFactor:  c.Analyzer.SmoothingFactor,
		SpatialSmoothing: c.Analyzer.SpatialSmoothing,
		Window:           wf,
	}, nil
}

// RecordingPath returns the file the recorder should write to. Without an
// explicit output file a timestamped name in OutputDir is used.
func (c *Config) RecordingPath(now time.Time) string {
	if c.Recording.OutputFile != "" {
		return c.Recording.OutputFile
	}
	dir := c.Recording.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "recording_"+now.Format("20060102_150405")+".wav")
}
