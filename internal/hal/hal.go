// Package hal defines the hardware capabilities the motion core consumes: a
// stepper (enable, direction, single step pulse) and a monotonic microsecond
// clock with absolute-deadline suspension. The control loop owns exactly one
// Stepper and mutates it from a single goroutine; implementations do not need
// internal locking for the step path.
package hal

import "stepcontrol/pkg/types"

// Stepper is the abstract single-axis stepper capability.
type Stepper interface {
	Enable() error
	Disable() error
	SetDirection(dir types.Direction) error

	// Step emits one pulse of the configured minimum width and returns the
	// minimum delay in microseconds before the next call is legal. The caller
	// spaces pulses by max(its own schedule, the returned delay).
	Step() (pulseDelayMicros uint32, err error)
}

// Clock is the abstract monotonic time source for the control loop. The only
// operation that may suspend the calling goroutine is SleepUntilMicros.
type Clock interface {
	NowMicros() uint64

	// SleepUntilMicros suspends until the absolute deadline. A deadline that
	// has already passed returns immediately.
	SleepUntilMicros(deadline uint64)
}

// Pin is a two-state output. Implementations are expected to be
// bounds-checked; there is no raw index escape hatch.
type Pin interface {
	SetHigh() error
	SetLow() error
}
