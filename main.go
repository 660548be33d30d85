package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"spectrum/cmd"
	"spectrum/internal/analysis"
	"spectrum/internal/audio"
	"spectrum/internal/config"
	applog "spectrum/internal/log"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
	"spectrum/internal/tui"
	"spectrum/pkg/build"
)

// debugLogInterval is how often the logging transport summarizes frames.
const debugLogInterval = time.Second

// main is the entry point. The program flow has three phases:
//
// 1. Startup (cold path): build info, configuration, logging, PortAudio.
// One-off commands (list, analyze) run here and exit.
//
// 2. Capture (hot path): the PortAudio callback feeds the spectrum
// processor; publishers push frames to the configured transports.
//
// 3. Shutdown (cold path): on SIGINT/SIGTERM the stream, recording and
// transports are closed in reverse order.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: development build (%v)", err)
	}

	// One thread for the audio callback, one for everything else.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}
	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		applog.Errorf("%v", err)
		applog.Sync()
		os.Exit(1)
	}
	applog.Sync()
}

func configureLogging(cfg *config.Config) {
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	switch cfg.Command {
	case cmd.CommandAnalyze:
		return analyzeFile(ctx, cfg, cfg.Args[0], os.Stdout)
	case cmd.CommandList:
		return listDevices(cfg)
	default:
		return capture(ctx, cfg)
	}
}

func listDevices(cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !cfg.Interactive {
		return audio.ListDevices(os.Stdout)
	}

	sel, ok, err := tui.StartDeviceListUI(cfg.Analyzer.EndFrequency)
	if err != nil || !ok {
		return err
	}
	fmt.Printf("Selected %s: run with --device %d --sample-rate %.0f\n",
		sel.Device.Name, sel.Device.ID, sel.SampleRate)
	return nil
}

// fileFrame is one JSON line of offline analysis output.
type fileFrame struct {
	Index  int         `json:"index"`
	Time   float64     `json:"time"` // Seconds from the start of the file.
	Values [][]float64 `json:"values"`
}

// analyzeFile writes one JSON object per analyzed block of path to w.
func analyzeFile(ctx context.Context, cfg *config.Config, path string, w io.Writer) error {
	acfg, err := cfg.AnalyzerConfig()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	frames := 0
	err = audio.AnalyzeFile(ctx, path, acfg, func(f audio.FileFrame) error {
		frames++
		return enc.Encode(fileFrame{
			Index:  f.Index,
			Time:   f.Offset.Seconds(),
			Values: f.Frame,
		})
	})
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", path, err)
	}
	applog.Infof("Analyze: Wrote %d frames", frames)
	return nil
}

// capture runs live analysis until ctx is cancelled.
func capture(ctx context.Context, cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	acfg, err := cfg.AnalyzerConfig()
	if err != nil {
		return err
	}
	analyzer, err := analysis.New(acfg)
	if err != nil {
		return err
	}
	proc, err := analysis.NewSpectrumProcessor(analyzer, cfg.Audio.InputChannels)
	if err != nil {
		analyzer.Close()
		return err
	}
	defer proc.Close()

	engine, err := audio.NewEngine(cfg, proc)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing audio engine: %v", err)
		}
		if dropped, last := proc.Dropped(); dropped > 0 {
			applog.Warnf("Analysis: %d blocks skipped, last: %v", dropped, last)
		}
	}()

	publishers, err := newPublishers(cfg, proc)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range publishers {
			if err := p.Close(); err != nil {
				applog.Errorf("Error closing publisher: %v", err)
			}
		}
	}()

	// The first callback starts the hot path.
	if err := engine.StartInputStream(); err != nil {
		return err
	}
	for _, p := range publishers {
		p.Start()
	}

	if cfg.Recording.Enabled {
		path := cfg.RecordingPath(time.Now())
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating recording directory: %w", err)
		}
		if err := engine.StartRecording(path); err != nil {
			return err
		}
		defer func() {
			if err := engine.StopRecording(); err != nil {
				applog.Errorf("Error stopping recording: %v", err)
				return
			}
			applog.Infof("Recording saved to: %s", path)
		}()
	}

	applog.Infof("Running %s %s; press Ctrl+C to stop", build.Current().Name, build.Current().Version)
	<-ctx.Done()
	applog.Infof("Shutting down...")
	return nil
}

// newPublishers builds one publisher per enabled transport.
func newPublishers(cfg *config.Config, provider analysis.SpectrumProvider) ([]*transport.Publisher, error) {
	var publishers []*transport.Publisher
	add := func(interval time.Duration, t transport.Transport) error {
		p, err := transport.NewPublisher(provider, interval, t)
		if err != nil {
			t.Close()
			return err
		}
		publishers = append(publishers, p)
		return nil
	}
	closeAll := func() {
		for _, p := range publishers {
			p.Close()
		}
	}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		if err := add(cfg.Transport.PublishInterval, ws); err != nil {
			return nil, err
		}
	}
	if cfg.Transport.UDPEnabled {
		u, err := udp.NewTransport(cfg.Transport.UDPTargetAddress)
		if err == nil {
			err = add(cfg.Transport.UDPSendInterval, u)
		}
		if err != nil {
			closeAll()
			return nil, err
		}
	}
	if cfg.Debug {
		if err := add(debugLogInterval, transport.NewLoggingTransport()); err != nil {
			closeAll()
			return nil, err
		}
	}
	return publishers, nil
}
