// Package modbusdrv drives a register-mapped stepper drive over Modbus RTU
// or TCP. The drive exposes enable and direction as coils and a pulse
// trigger register; writing the trigger emits one step edge with the
// drive's own pulse width.
package modbusdrv

import (
	"fmt"
	"time"

	"github.com/goburrow/modbus"

	"stepcontrol/pkg/types"
)

// Drive register map.
const (
	coilEnable    = 0
	coilDirection = 1
	regPulse      = 0
)

const (
	coilOn  = 0xFF00
	coilOff = 0x0000
)

// Config describes the Modbus endpoint and the drive's pulse timing.
type Config struct {
	Mode     string `yaml:"mode"`    // "tcp" or "rtu"
	Address  string `yaml:"address"` // host:port for TCP, device path for RTU
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
	SlaveID  byte   `yaml:"slave_id"`
	Timeout  time.Duration

	// PulseDelayMicros is the drive's minimum delay between pulse triggers.
	PulseDelayMicros uint32 `yaml:"pulse_delay_us"`
}

type closer interface {
	Close() error
}

// Stepper implements hal.Stepper against the drive's register map.
type Stepper struct {
	config  Config
	client  modbus.Client
	handler closer
}

// Open connects to the drive and leaves it disabled.
func Open(config Config) (*Stepper, error) {
	var client modbus.Client
	var handler closer

	switch config.Mode {
	case "tcp":
		h := modbus.NewTCPClientHandler(config.Address)
		h.Timeout = config.Timeout
		h.SlaveId = config.SlaveID
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to modbus drive at %s: %w", config.Address, err)
		}
		client = modbus.NewClient(h)
		handler = h
	case "rtu":
		h := modbus.NewRTUClientHandler(config.Address)
		h.BaudRate = config.BaudRate
		h.DataBits = config.DataBits
		h.StopBits = config.StopBits
		h.Parity = config.Parity
		h.Timeout = config.Timeout
		h.SlaveId = config.SlaveID
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to modbus drive at %s: %w", config.Address, err)
		}
		client = modbus.NewClient(h)
		handler = h
	default:
		return nil, fmt.Errorf("unknown modbus mode %q", config.Mode)
	}

	s := &Stepper{config: config, client: client, handler: handler}
	if err := s.Disable(); err != nil {
		handler.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stepper) Enable() error {
	if _, err := s.client.WriteSingleCoil(coilEnable, coilOn); err != nil {
		return fmt.Errorf("modbus enable: %w", err)
	}
	return nil
}

func (s *Stepper) Disable() error {
	if _, err := s.client.WriteSingleCoil(coilEnable, coilOff); err != nil {
		return fmt.Errorf("modbus disable: %w", err)
	}
	return nil
}

func (s *Stepper) SetDirection(dir types.Direction) error {
	value := uint16(coilOff)
	if dir == types.DirectionReversed {
		value = coilOn
	}
	if _, err := s.client.WriteSingleCoil(coilDirection, value); err != nil {
		return fmt.Errorf("modbus set direction: %w", err)
	}
	return nil
}

func (s *Stepper) Step() (uint32, error) {
	if _, err := s.client.WriteSingleRegister(regPulse, 1); err != nil {
		return 0, fmt.Errorf("modbus pulse: %w", err)
	}
	return s.config.PulseDelayMicros, nil
}

// Close disables the drive and releases the connection.
func (s *Stepper) Close() error {
	if err := s.Disable(); err != nil {
		s.handler.Close()
		return err
	}
	return s.handler.Close()
}
