package report

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// SerialSink writes one Line per report to a serial device, typically the
// sprayer controller or a telemetry radio.
type SerialSink struct {
	port io.WriteCloser
}

// NewSerialSink wraps an already open port.
func NewSerialSink(port io.WriteCloser) *SerialSink {
	return &SerialSink{port: port}
}

// OpenSerialSink opens the serial device at path with 8N1 framing.
func OpenSerialSink(path string, baudRate int) (*SerialSink, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return NewSerialSink(port), nil
}

// Emit writes the report line terminated by CRLF.
func (s *SerialSink) Emit(r Report) error {
	if _, err := io.WriteString(s.port, Line(r)+"\r\n"); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// Close closes the port.
func (s *SerialSink) Close() error {
	return s.port.Close()
}
