// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"spectrum/internal/transport"
)

/*
Spectrum packet layout (big endian):

	| Field     | Type      | Size  | Description                          |
	|-----------|-----------|-------|--------------------------------------|
	| Sequence  | uint32    | 4     | Frame sequence (low 32 bits)         |
	| Timestamp | int64     | 8     | Unix nanoseconds                     |
	| Channels  | uint16    | 2     | Number of channels (C)               |
	| Bands     | uint16    | 2     | Bands per channel (B)                |
	| Values    | []float32 | C*B*4 | Channel-major band magnitudes        |
*/

// HeaderSize is the number of bytes before the values.
const HeaderSize = 4 + 8 + 2 + 2

// MaxPacketSize is the largest UDP payload over IPv4.
const MaxPacketSize = 65507

var (
	errPacketTooShort = errors.New("udp: packet shorter than header")
	errPacketLength   = errors.New("udp: packet length does not match header")
)

// Packet is a decoded spectrum datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Channels  int
	Bands     int
	Values    [][]float32
}

// encoder packs messages into a reused buffer.
type encoder struct {
	buf     bytes.Buffer
	scratch []float32
}

// encode writes msg into the encoder's buffer and returns the packet bytes.
// The slice is valid until the next call.
func (e *encoder) encode(msg transport.SpectrumMessage) ([]byte, error) {
	channels, bands := len(msg.Values), 0
	if channels > 0 {
		bands = len(msg.Values[0])
	}
	if channels > math.MaxUint16 || bands > math.MaxUint16 {
		return nil, fmt.Errorf("udp: %d channels of %d bands cannot be encoded", channels, bands)
	}
	if size := HeaderSize + 4*channels*bands; size > MaxPacketSize {
		return nil, fmt.Errorf("udp: packet of %d bytes exceeds %d", size, MaxPacketSize)
	}

	e.scratch = e.scratch[:0]
	for ch, values := range msg.Values {
		if len(values) != bands {
			return nil, fmt.Errorf("udp: channel %d has %d bands, want %d", ch, len(values), bands)
		}
		for _, v := range values {
			e.scratch = append(e.scratch, float32(v))
		}
	}

	e.buf.Reset()
	err := binary.Write(&e.buf, binary.BigEndian, uint32(msg.Sequence))
	if err == nil {
		err = binary.Write(&e.buf, binary.BigEndian, msg.Timestamp)
	}
	if err == nil {
		err = binary.Write(&e.buf, binary.BigEndian, [2]uint16{uint16(channels), uint16(bands)})
	}
	if err == nil {
		err = binary.Write(&e.buf, binary.BigEndian, e.scratch)
	}
	if err != nil {
		return nil, fmt.Errorf("udp: packing spectrum: %w", err)
	}
	return e.buf.Bytes(), nil
}

// Decode parses a spectrum datagram.
func Decode(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, errPacketTooShort
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		Channels:  int(binary.BigEndian.Uint16(b[12:14])),
		Bands:     int(binary.BigEndian.Uint16(b[14:16])),
	}
	if len(b) != HeaderSize+4*p.Channels*p.Bands {
		return Packet{}, errPacketLength
	}

	p.Values = make([][]float32, p.Channels)
	off := HeaderSize
	for ch := range p.Values {
		p.Values[ch] = make([]float32, p.Bands)
		for i := range p.Values[ch] {
			p.Values[ch][i] = math.Float32frombits(binary.BigEndian.Uint32(b[off:]))
			off += 4
		}
	}
	return p, nil
}
