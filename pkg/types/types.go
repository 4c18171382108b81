// Package types defines the fundamental data structures shared across the
// stepper control system: kinematic state, motion segments, step direction,
// and sequence policies that form the common language between components.
package types

import "fmt"

// KinematicState describes one degree of freedom at a single control cycle.
// Position is related to the physical step count by a fixed steps-per-unit
// scale factor owned by the control loop, not by this type.
type KinematicState struct {
	Position     float64
	Velocity     float64
	Acceleration float64
}

// Segment is one waypoint-to-waypoint move with its own kinematic limits.
// Immutable once created; exactly one segment is active at a time.
type Segment struct {
	TargetPosition  float64
	MaxJerk         float64
	MaxAcceleration float64
	MaxVelocity     float64
}

// Direction is the state of the stepper direction pin.
type Direction int

const (
	DirectionNormal Direction = iota
	DirectionReversed
)

func (d Direction) String() string {
	switch d {
	case DirectionNormal:
		return "normal"
	case DirectionReversed:
		return "reversed"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// DirectionOf maps the sign of a position delta onto a pin direction.
// A zero delta keeps the previous direction.
func DirectionOf(delta float64, previous Direction) Direction {
	switch {
	case delta > 0:
		return DirectionNormal
	case delta < 0:
		return DirectionReversed
	default:
		return previous
	}
}

// SequencePolicy selects what happens when the waypoint list is exhausted.
type SequencePolicy int

const (
	// PolicyRunOnce stops the run after the last segment completes.
	PolicyRunOnce SequencePolicy = iota
	// PolicyLoop cycles back to the first segment, for soak testing and
	// continuous demonstration runs.
	PolicyLoop
)

func (p SequencePolicy) String() string {
	switch p {
	case PolicyRunOnce:
		return "once"
	case PolicyLoop:
		return "loop"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseSequencePolicy converts a configuration string into a SequencePolicy.
func ParseSequencePolicy(s string) (SequencePolicy, error) {
	switch s {
	case "", "once":
		return PolicyRunOnce, nil
	case "loop":
		return PolicyLoop, nil
	default:
		return PolicyRunOnce, fmt.Errorf("unknown sequence policy %q", s)
	}
}
