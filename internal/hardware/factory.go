// Package hardware builds the configured stepper backend behind the
// hal.Stepper interface, so the control loop never knows which transport
// drives the motor.
package hardware

import (
	"fmt"
	"time"

	"stepcontrol/internal/config"
	"stepcontrol/internal/hal"
	"stepcontrol/internal/hardware/modbusdrv"
	"stepcontrol/internal/hardware/serialdrv"
)

// NewStepper constructs the backend named in cfg and returns it with a
// close function for teardown.
func NewStepper(cfg *config.Config, clock hal.Clock) (hal.Stepper, func() error, error) {
	switch cfg.Stepper.Backend {
	case "sim":
		stepper := hal.NewSimStepper(clock, cfg.Axis.PulseDelayMicros)
		return stepper, func() error { return nil }, nil

	case "serial":
		stepper, err := serialdrv.Open(serialdrv.Config{
			PortName:         cfg.Stepper.Serial.PortName,
			BaudRate:         cfg.Stepper.Serial.BaudRate,
			DataBits:         cfg.Stepper.Serial.DataBits,
			StopBits:         cfg.Stepper.Serial.StopBits,
			PulseDelayMicros: cfg.Axis.PulseDelayMicros,
		})
		if err != nil {
			return nil, nil, err
		}
		return stepper, stepper.Close, nil

	case "modbus":
		stepper, err := modbusdrv.Open(modbusdrv.Config{
			Mode:             cfg.Stepper.Modbus.Mode,
			Address:          cfg.Stepper.Modbus.Address,
			BaudRate:         cfg.Stepper.Modbus.BaudRate,
			DataBits:         cfg.Stepper.Modbus.DataBits,
			StopBits:         cfg.Stepper.Modbus.StopBits,
			Parity:           cfg.Stepper.Modbus.Parity,
			SlaveID:          cfg.Stepper.Modbus.SlaveID,
			Timeout:          time.Duration(cfg.Stepper.Modbus.TimeoutMS) * time.Millisecond,
			PulseDelayMicros: cfg.Axis.PulseDelayMicros,
		})
		if err != nil {
			return nil, nil, err
		}
		return stepper, stepper.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown stepper backend %q", cfg.Stepper.Backend)
	}
}
