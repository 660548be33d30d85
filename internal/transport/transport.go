// SPDX-License-Identifier: MIT
//
// Package transport moves spectrum frames from the analysis side of the
// program to external consumers. A Publisher samples the latest frame from a
// SpectrumProvider at a fixed interval and fans it out to any number of
// Transports.
package transport

import (
	"errors"
	"time"

	"spectrum/internal/analysis"
)

// Transport defines a generic interface for sending spectrum data.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// ErrTransportClosed is returned by Send after Close.
var ErrTransportClosed = errors.New("transport: closed")

// SpectrumMessage is the unit handed to transports. Values holds one slice of
// band magnitudes per channel and is owned by the message.
type SpectrumMessage struct {
	Sequence  uint64      `json:"seq"`
	Timestamp int64       `json:"timestamp"` // Unix nanoseconds.
	Channels  int         `json:"channels"`
	Bands     int         `json:"bands"`
	Centers   []float64   `json:"centers,omitempty"`
	Values    [][]float64 `json:"values"`
}

// NewSpectrumMessage copies frame into a message stamped with t.
func NewSpectrumMessage(seq uint64, t time.Time, frame analysis.SpectrumFrame, table analysis.BandTable) SpectrumMessage {
	msg := SpectrumMessage{
		Sequence:  seq,
		Timestamp: t.UnixNano(),
		Channels:  len(frame),
		Values:    frame.Clone(),
	}
	if len(frame) > 0 {
		msg.Bands = len(frame[0])
	}
	if len(table) > 0 {
		msg.Centers = make([]float64, len(table))
		for i, b := range table {
			msg.Centers[i] = b.Center()
		}
	}
	return msg
}

// Peak returns the largest value across all channels.
func (m SpectrumMessage) Peak() float64 {
	var peak float64
	for _, ch := range m.Values {
		for _, v := range ch {
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}
