// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "spectrum/internal/log"

	"gopkg.in/yaml.v3"
)

// defaultCandidates are searched in order when no path is given.
var defaultCandidates = []string{"config.yaml", "spectrum.yaml"}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches the default locations. If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range defaultCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: Loaded %s", path)
	}

	// Environment overrides win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks every section. Analyzer settings are checked by the
// analysis package itself.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateOffline is Validate for file analysis, where the sample rate comes
// from the file. The end frequency is not checked against the configured
// rate's Nyquist limit.
func (c *Config) ValidateOffline() error {
	return c.validate(false)
}

func (c *Config) validate(checkNyquist bool) error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		return fmt.Errorf("log_level %q is not recognised", c.LogLevel)
	}

	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %g outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > MaxChannels {
		return fmt.Errorf("audio.input_channels must be in [1, %d], got %d", MaxChannels, c.Audio.InputChannels)
	}
	if c.Audio.NoiseGate < 0 || c.Audio.NoiseGate > 1 {
		return fmt.Errorf("audio.noise_gate must be in [0, 1], got %g", c.Audio.NoiseGate)
	}

	acfg, err := c.AnalyzerConfig()
	if err != nil {
		return err
	}
	if !checkNyquist {
		acfg.SampleRate = max(acfg.SampleRate, 2*acfg.EndFrequency)
	}
	if err := acfg.Validate(); err != nil {
		return err
	}

	if c.Recording.Enabled && c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		return fmt.Errorf("recording.bit_depth must be 16 or 24, got %d", c.Recording.BitDepth)
	}

	if c.Transport.WebSocketEnabled {
		if c.Transport.WebSocketAddr == "" {
			return errors.New("transport.websocket_addr must be set when WebSocket is enabled")
		}
		if c.Transport.PublishInterval <= 0 {
			return errors.New("transport.publish_interval must be positive when WebSocket is enabled")
		}
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return errors.New("transport.udp_target_address must be set when UDP is enabled")
		}
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return errors.New("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}

	return nil
}

// applyEnvOverrides replaces file or default values with ENV_* variables.
// Values that fail to parse are ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Infof("Config: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("Config: Overriding log_level from env: %s", val)
	}

	// ENV_INPUT_DEVICE
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = iVal
			applog.Infof("Config: Overriding audio.input_device from env: %d", iVal)
		}
	}

	// ENV_FFT_SIZE
	if val, ok := os.LookupEnv("ENV_FFT_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Analyzer.FFTSize = iVal
			applog.Infof("Config: Overriding analyzer.fft_size from env: %d", iVal)
		}
	}
	// ENV_BANDS
	if val, ok := os.LookupEnv("ENV_BANDS"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Analyzer.Bands = iVal
			applog.Infof("Config: Overriding analyzer.bands from env: %d", iVal)
		}
	}
	// ENV_SMOOTHING
	if val, ok := os.LookupEnv("ENV_SMOOTHING"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.Analyzer.SmoothingFactor = fVal
			applog.Infof("Config: Overriding analyzer.smoothing_factor from env: %g", fVal)
		}
	}
	// ENV_WINDOW
	if val, ok := os.LookupEnv("ENV_WINDOW"); ok {
		c.Analyzer.Window = val
		applog.Infof("Config: Overriding analyzer.window from env: %s", val)
	}

	// ENV_WS_{...}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
			applog.Infof("Config: Overriding transport.websocket_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
		applog.Infof("Config: Overriding transport.websocket_addr from env: %s", val)
	}

	// ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Infof("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Infof("Config: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
