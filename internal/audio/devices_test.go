package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

// fakeDevices replaces the PortAudio device queries for one test.
func fakeDevices(t *testing.T, infos []*portaudio.DeviceInfo, def *portaudio.DeviceInfo) {
	t.Helper()
	origDevices, origDefault := paLibDevicesFunc, paLibDefaultInputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc = origDevices
		paLibDefaultInputDeviceFunc = origDefault
	})
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return infos, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if def == nil {
			return nil, fmt.Errorf("no default input device")
		}
		return def, nil
	}
}

var (
	testMic = &portaudio.DeviceInfo{
		Name:                    "Built-in Microphone",
		MaxInputChannels:        2,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  3 * time.Millisecond,
		DefaultHighInputLatency: 12 * time.Millisecond,
		HostApi:                 &portaudio.HostApiInfo{Name: "Core Audio"},
	}
	testSpeakers = &portaudio.DeviceInfo{
		Name:              "Built-in Output",
		MaxOutputChannels: 2,
		DefaultSampleRate: 44100,
	}
	testInterface = &portaudio.DeviceInfo{
		Name:              "USB Interface",
		MaxInputChannels:  8,
		MaxOutputChannels: 8,
		DefaultSampleRate: 96000,
	}
)

func TestHostDevices(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testMic, testSpeakers, testInterface}, testMic)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}

	tests := []struct {
		id      int
		typ     string
		input   bool
		nyquist float64
	}{
		{0, "Input", true, 24000},
		{1, "Output", false, 22050},
		{2, "Input/Output", true, 48000},
	}
	for _, tt := range tests {
		d := devices[tt.id]
		if d.ID != tt.id {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, tt.id)
		}
		if d.Type() != tt.typ || d.IsInput() != tt.input || d.Nyquist() != tt.nyquist {
			t.Errorf("device %d = %s/%v/%v, want %s/%v/%v",
				tt.id, d.Type(), d.IsInput(), d.Nyquist(), tt.typ, tt.input, tt.nyquist)
		}
	}
	if devices[0].HostAPI != "Core Audio" || devices[0].LowInputLatency != 3*time.Millisecond {
		t.Errorf("device 0 details = %+v", devices[0])
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testMic, testSpeakers, testInterface}, testInterface)

	if dev, err := InputDevice(-1); err != nil || dev != testInterface {
		t.Errorf("InputDevice(-1) = %v, %v; want the default device", dev, err)
	}
	if dev, err := InputDevice(0); err != nil || dev != testMic {
		t.Errorf("InputDevice(0) = %v, %v; want the microphone", dev, err)
	}

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 13, "invalid device ID"},
		{"Non-input device", 1, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDevice_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice_paDefaultInputDeviceError(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testSpeakers}, nil)

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "no default input device") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestNewEngineChecksChannels(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testMic}, testMic)

	if _, err := NewEngine(testConfig(4), nil); err == nil || !strings.Contains(err.Error(), "input channels") {
		t.Errorf("NewEngine(4 channels) error = %v, want channel error", err)
	}

	cfg := testConfig(2)
	cfg.Audio.LowLatency = true
	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.inputLatency != testMic.DefaultLowInputLatency {
		t.Errorf("latency = %v, want low latency %v", e.inputLatency, testMic.DefaultLowInputLatency)
	}
}

func TestListDevices(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testMic, testSpeakers}, testMic)

	var out bytes.Buffer
	if err := ListDevices(&out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"[1] Built-in Output (Output)",
		"analysis up to 24000 Hz",
		"Low=3.00ms, High=12.00ms",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	fakeDevices(t, nil, nil)

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}
