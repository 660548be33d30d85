// Package cmd defines the command line interface.
package cmd

import (
	"fmt"

	"spectrum/internal/config"
	"spectrum/pkg/build"

	"github.com/spf13/cobra"
)

// Commands run instead of live capture.
const (
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// options holds raw flag values. Only flags the user set are copied over the
// loaded configuration.
type options struct {
	configPath  string
	device      int
	channels    int
	sampleRate  float64
	lowLatency  bool
	gate        float64
	fftSize     int
	bands       int
	startFreq   float64
	endFreq     float64
	smoothing   float64
	window      string
	record      bool
	output      string
	bitDepth    int
	wsAddr      string
	udpAddr     string
	verbose     bool
	interactive bool
}

// ParseArgs parses args (without the program name) and returns the
// resulting configuration. A nil configuration with a nil error means the
// invocation was fully handled by the parser, as with --help or --version.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.Current()
	defaults := config.Default()
	opts := options{}

	var (
		command  string
		posArgs  []string
		executed *cobra.Command
	)
	run := func(name string) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, a []string) error {
			command, posArgs, executed = name, a, c
			return nil
		}
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio spectrum analyzer",
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: run(""),
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE:  run(CommandList),
	}
	listCmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false,
		"Browse devices and sample rates interactively")

	analyzeCmd := &cobra.Command{
		Use:   CommandAnalyze + " FILE",
		Short: "Analyze a WAV, MP3, Ogg Vorbis or FLAC file and print one JSON spectrum frame per block",
		Args:  cobra.ExactArgs(1),
		RunE:  run(CommandAnalyze),
	}
	rootCmd.AddCommand(listCmd, analyzeCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")

	// Audio input
	pf.IntVarP(&opts.device, "device", "d", defaults.Audio.InputDevice,
		"Input device ID, -1 for the system default. Use 'list' to see devices.")
	pf.IntVarP(&opts.channels, "channels", "c", defaults.Audio.InputChannels,
		"Number of channels to capture (1=mono, 2=stereo)")
	pf.Float64VarP(&opts.sampleRate, "sample-rate", "s", defaults.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.BoolVarP(&opts.lowLatency, "low-latency", "l", defaults.Audio.LowLatency,
		"Use the device's low latency settings")
	pf.Float64VarP(&opts.gate, "gate", "g", defaults.Audio.NoiseGate,
		"Noise gate threshold in [0,1]; blocks whose peak is at or below it are silenced")

	// Analyzer
	pf.IntVarP(&opts.fftSize, "fft-size", "n", defaults.Analyzer.FFTSize,
		"Transform size, a power of two; also the capture block size")
	pf.IntVarP(&opts.bands, "bands", "b", defaults.Analyzer.Bands,
		"Number of frequency bands per channel")
	pf.Float64Var(&opts.startFreq, "start-freq", defaults.Analyzer.StartFrequency,
		"Lower edge of the first band (Hz)")
	pf.Float64Var(&opts.endFreq, "end-freq", defaults.Analyzer.EndFrequency,
		"Upper edge of the last band (Hz), at most half the sample rate")
	pf.Float64Var(&opts.smoothing, "smoothing", defaults.Analyzer.SmoothingFactor,
		"Temporal smoothing factor in [0,1]")
	pf.StringVarP(&opts.window, "window", "w", defaults.Analyzer.Window,
		"Window function (hann, hamming, blackman, blackmannuttall, bartletthann, lanczos, nuttall)")

	// Recording
	pf.BoolVarP(&opts.record, "record", "r", defaults.Recording.Enabled,
		"Record the captured input to a WAV file")
	pf.StringVarP(&opts.output, "output", "o", "",
		"Recording file name. Default is recording_YYYYMMDD_HHMMSS.wav in the output directory")
	pf.IntVar(&opts.bitDepth, "bit-depth", defaults.Recording.BitDepth,
		"Recording bit depth (16 or 24)")

	// Transport
	pf.StringVar(&opts.wsAddr, "ws-addr", "",
		"Serve spectrum frames over WebSocket on this address (e.g. :8080)")
	pf.StringVar(&opts.udpAddr, "udp", "",
		"Send spectrum packets over UDP to this host:port")

	// Debug
	pf.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if executed == nil {
		return nil, nil
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	opts.apply(cfg, executed.Flags().Changed)
	validate := cfg.Validate
	if command == CommandAnalyze {
		// The file's own rate replaces --sample-rate.
		validate = cfg.ValidateOffline
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Command = command
	cfg.Args = posArgs
	cfg.Interactive = opts.interactive
	return cfg, nil
}

// apply copies every changed flag into cfg.
func (o *options) apply(cfg *config.Config, changed func(string) bool) {
	if changed("device") {
		cfg.Audio.InputDevice = o.device
	}
	if changed("channels") {
		cfg.Audio.InputChannels = o.channels
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	if changed("gate") {
		cfg.Audio.NoiseGate = o.gate
	}
	if changed("fft-size") {
		cfg.Analyzer.FFTSize = o.fftSize
	}
	if changed("bands") {
		cfg.Analyzer.Bands = o.bands
	}
	if changed("start-freq") {
		cfg.Analyzer.StartFrequency = o.startFreq
	}
	if changed("end-freq") {
		cfg.Analyzer.EndFrequency = o.endFreq
	}
	if changed("smoothing") {
		cfg.Analyzer.SmoothingFactor = o.smoothing
	}
	if changed("window") {
		cfg.Analyzer.Window = o.window
	}
	if changed("record") {
		cfg.Recording.Enabled = o.record
	}
	if changed("output") {
		cfg.Recording.OutputFile = o.output
		cfg.Recording.Enabled = true
	}
	if changed("bit-depth") {
		cfg.Recording.BitDepth = o.bitDepth
	}
	if changed("ws-addr") {
		cfg.Transport.WebSocketEnabled = o.wsAddr != ""
		cfg.Transport.WebSocketAddr = o.wsAddr
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = o.udpAddr != ""
		cfg.Transport.UDPTargetAddress = o.udpAddr
	}
	if o.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}
