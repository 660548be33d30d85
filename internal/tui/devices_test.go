package tui

import (
	"errors"
	"strings"
	"testing"

	"spectrum/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

var testDevices = []audio.Device{
	{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000},
	{ID: 1, Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	{ID: 2, Name: "Field Recorder", MaxInputChannels: 4, DefaultSampleRate: 32000},
}

func send(t *testing.T, m DeviceListModel, msgs ...tea.Msg) (DeviceListModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(DeviceListModel)
	}
	return m, cmd
}

func newTestModel(t *testing.T, endFrequency float64) DeviceListModel {
	t.Helper()
	m := NewDeviceListModel(endFrequency)
	m.fetch = func() ([]audio.Device, error) { return testDevices, nil }
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40}, m.Init()())
	return m
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyQuit  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
)

func TestDeviceListShowsInputsOnly(t *testing.T) {
	m := newTestModel(t, 18000)

	if len(m.devices) != 2 {
		t.Fatalf("got %d devices, want the 2 inputs", len(m.devices))
	}
	view := m.View()
	if strings.Contains(view, "Built-in Output") {
		t.Error("output-only device should not be listed")
	}
	if !strings.Contains(view, "Nyquist: 24000 Hz") {
		t.Errorf("view missing the Nyquist limit:\n%s", view)
	}
}

func TestDeviceListNavigation(t *testing.T) {
	m := newTestModel(t, 18000)

	m, _ = send(t, m, keyUp)
	if m.selectedIndex != 0 {
		t.Errorf("up at the top moved to %d", m.selectedIndex)
	}
	m, _ = send(t, m, keyDown, keyDown)
	if m.selectedIndex != 1 {
		t.Errorf("selected = %d, want 1 (clamped)", m.selectedIndex)
	}

	m, _ = send(t, m, keyEnter)
	if m.activeScreen != ConfigScreen {
		t.Fatal("enter should open the configuration screen")
	}
	// The 32 kHz default is not a standard rate and is inserted first.
	if m.availableSampleRates[0] != 32000 || m.sampleRateIndex != 0 {
		t.Errorf("rates = %v, index %d", m.availableSampleRates, m.sampleRateIndex)
	}
	if !strings.Contains(m.View(), "above Nyquist 16000 Hz") {
		t.Errorf("expected a Nyquist warning at 32 kHz:\n%s", m.View())
	}

	m, _ = send(t, m, keyDown)
	if strings.Contains(m.View(), "above Nyquist") {
		t.Error("44.1 kHz covers 18 kHz and should not warn")
	}

	m, _ = send(t, m, keyEsc)
	if m.activeScreen != ListScreen {
		t.Error("esc should return to the list")
	}
}

func TestDeviceListSelection(t *testing.T) {
	m := newTestModel(t, 18000)

	m, _ = send(t, m, keyEnter)
	if m.availableSampleRates[m.sampleRateIndex] != 48000 {
		t.Fatalf("default rate not preselected: %v", m.availableSampleRates[m.sampleRateIndex])
	}
	m, _ = send(t, m, keyDown)
	m, cmd := send(t, m, keyEnter)
	if cmd == nil {
		t.Fatal("selecting a rate should quit")
	}

	sel, ok := m.Selection()
	if !ok || sel.Device.ID != 0 || sel.SampleRate != 88200 {
		t.Errorf("Selection() = %+v, %v", sel, ok)
	}
}

func TestDeviceListQuitAndErrors(t *testing.T) {
	m := newTestModel(t, 18000)
	if _, cmd := send(t, m, keyQuit); cmd == nil {
		t.Error("q should quit")
	}
	if _, ok := m.Selection(); ok {
		t.Error("no selection expected before choosing")
	}

	m = NewDeviceListModel(18000)
	if m.View() != "Initializing..." {
		t.Errorf("view before sizing = %q", m.View())
	}
	m.fetch = func() ([]audio.Device, error) { return nil, errors.New("no host") }
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, m.Init()())
	if !strings.Contains(m.View(), "no host") {
		t.Errorf("view should show the error:\n%s", m.View())
	}
}
