package hal

import (
	"fmt"

	"stepcontrol/pkg/types"
)

// EnableMode is the polarity of the driver's enable input.
type EnableMode int

const (
	// ActiveHigh drivers enable on a high level.
	ActiveHigh EnableMode = iota
	// ActiveLow drivers enable on a low level.
	ActiveLow
)

// GPIOStepper bit-bangs a step/dir/enable driver over three output pins.
// Pulse width is enforced with the clock; SetDirection settling is left to
// the caller, which knows the cycle budget.
type GPIOStepper struct {
	enablePin    Pin
	stepPin      Pin
	directionPin Pin
	enableMode   EnableMode

	pulseWidthMicros uint32
	pulseDelayMicros uint32

	clock Clock
}

// NewGPIOStepper wires a bit-banged stepper. pulseWidthMicros is the high
// time of each step pulse; pulseDelayMicros is the minimum time between
// pulses demanded by the driver's datasheet.
func NewGPIOStepper(enablePin, stepPin, directionPin Pin, mode EnableMode,
	pulseWidthMicros, pulseDelayMicros uint32, clock Clock) *GPIOStepper {
	return &GPIOStepper{
		enablePin:        enablePin,
		stepPin:          stepPin,
		directionPin:     directionPin,
		enableMode:       mode,
		pulseWidthMicros: pulseWidthMicros,
		pulseDelayMicros: pulseDelayMicros,
		clock:            clock,
	}
}

// InitializeIO drives all pins to their safe idle levels: step low,
// direction low, driver disabled.
func (s *GPIOStepper) InitializeIO() error {
	if err := s.stepPin.SetLow(); err != nil {
		return fmt.Errorf("step pin: %w", err)
	}
	if err := s.directionPin.SetLow(); err != nil {
		return fmt.Errorf("direction pin: %w", err)
	}
	return s.Disable()
}

func (s *GPIOStepper) Enable() error {
	if s.enableMode == ActiveHigh {
		return s.enablePin.SetHigh()
	}
	return s.enablePin.SetLow()
}

func (s *GPIOStepper) Disable() error {
	if s.enableMode == ActiveHigh {
		return s.enablePin.SetLow()
	}
	return s.enablePin.SetHigh()
}

func (s *GPIOStepper) SetDirection(dir types.Direction) error {
	if dir == types.DirectionReversed {
		return s.directionPin.SetHigh()
	}
	return s.directionPin.SetLow()
}

func (s *GPIOStepper) Step() (uint32, error) {
	start := s.clock.NowMicros()
	if err := s.stepPin.SetHigh(); err != nil {
		return 0, err
	}
	s.clock.SleepUntilMicros(start + uint64(s.pulseWidthMicros))
	if err := s.stepPin.SetLow(); err != nil {
		return 0, err
	}
	return s.pulseDelayMicros, nil
}
