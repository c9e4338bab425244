//go:build !serialport_nocgo

package serialport

import (
	"time"

	"go.bug.st/serial"
)

// realPort adapts go.bug.st/serial.Port to SerialPorter.
type realPort struct {
	serial.Port
}

func (p *realPort) SetReadTimeout(t time.Duration) error {
	return p.Port.SetReadTimeout(t)
}

// RealFactory opens actual OS serial devices via go.bug.st/serial.
type RealFactory struct{}

// Open implements Factory.
func (RealFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: normalized.BaudRate,
		DataBits: normalized.DataBits,
	}

	switch normalized.Parity {
	case NoParity:
		mode.Parity = serial.NoParity
	case OddParity:
		mode.Parity = serial.OddParity
	case EvenParity:
		mode.Parity = serial.EvenParity
	}

	switch normalized.StopBits {
	case OneStopBit:
		mode.StopBits = serial.OneStopBit
	case OnePointFiveStopBits:
		mode.StopBits = serial.OnePointFiveStopBits
	case TwoStopBits:
		mode.StopBits = serial.TwoStopBits
	}

	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return &realPort{Port: p}, nil
}
