// Package serialdrv drives an ASCII step/dir breakout board over a serial
// port. The breakout generates the electrical pulse itself; this driver only
// sequences the commands and reports the board's minimum inter-pulse delay
// back to the control loop.
package serialdrv

import (
	"fmt"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"

	"stepcontrol/pkg/types"
)

// Config describes the serial link and the board's pulse timing.
type Config struct {
	PortName string `yaml:"port_name"` // e.g. "/dev/ttyUSB0", "COM3"
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`

	// PulseDelayMicros is the board's minimum delay between step commands.
	PulseDelayMicros uint32 `yaml:"pulse_delay_us"`
}

// Stepper implements hal.Stepper over the breakout's line protocol:
// "E1"/"E0" enable, "D0"/"D1" direction, "P" one pulse.
type Stepper struct {
	config Config
	port   io.ReadWriteCloser
	mu     sync.Mutex
}

// Open connects to the breakout and leaves the driver disabled.
func Open(config Config) (*Stepper, error) {
	options := serial.OpenOptions{
		PortName:        config.PortName,
		BaudRate:        uint(config.BaudRate),
		DataBits:        uint(config.DataBits),
		StopBits:        uint(config.StopBits),
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", config.PortName, err)
	}

	s := &Stepper{config: config, port: port}
	if err := s.Disable(); err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stepper) send(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.port.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("serial write %q: %w", cmd, err)
	}
	return nil
}

func (s *Stepper) Enable() error {
	return s.send("E1")
}

func (s *Stepper) Disable() error {
	return s.send("E0")
}

func (s *Stepper) SetDirection(dir types.Direction) error {
	if dir == types.DirectionReversed {
		return s.send("D1")
	}
	return s.send("D0")
}

func (s *Stepper) Step() (uint32, error) {
	if err := s.send("P"); err != nil {
		return 0, err
	}
	return s.config.PulseDelayMicros, nil
}

// Close disables the driver and releases the port.
func (s *Stepper) Close() error {
	if err := s.Disable(); err != nil {
		s.port.Close()
		return err
	}
	return s.port.Close()
}
