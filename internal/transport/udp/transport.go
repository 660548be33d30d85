// Package udp sends spectrum frames as compact binary datagrams.
package udp

import (
	"fmt"
	"sync"

	applog "spectrum/internal/log"
	"spectrum/internal/transport"
)

// Transport encodes SpectrumMessages and sends them through a Sender.
type Transport struct {
	sender *Sender

	mu  sync.Mutex // Serializes use of enc.
	enc encoder
}

// NewTransport dials targetAddress and returns a transport sending to it.
func NewTransport(targetAddress string) (*Transport, error) {
	sender, err := NewSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return &Transport{sender: sender}, nil
}

// Send encodes a transport.SpectrumMessage and transmits it.
func (t *Transport) Send(data any) error {
	msg, ok := data.(transport.SpectrumMessage)
	if !ok {
		return fmt.Errorf("udp: cannot send %T", data)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	packet, err := t.enc.encode(msg)
	if err != nil {
		return err
	}
	if err := t.sender.Send(packet); err != nil {
		return err
	}
	applog.Debugf("UDPTransport: Sent packet %d (%d bytes)", msg.Sequence, len(packet))
	return nil
}

// Close closes the sender.
func (t *Transport) Close() error {
	return t.sender.Close()
}

var _ transport.Transport = (*Transport)(nil)
