package transport

import (
	applog "spectrum/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of each message at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	switch msg := data.(type) {
	case SpectrumMessage:
		applog.Debugf("LoggingTransport: seq=%d channels=%d bands=%d peak=%.5f",
			msg.Sequence, msg.Channels, msg.Bands, msg.Peak())
	default:
		applog.Debugf("LoggingTransport: received %T", data)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LoggingTransport: Close called")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
