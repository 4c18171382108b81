package hal

import "stepcontrol/pkg/types"

// SimClock is a virtual-time Clock. Sleeping jumps the clock forward, so a
// full control run completes as fast as the planner math allows. Every sleep
// target is recorded for timing assertions in tests.
type SimClock struct {
	now          uint64
	sleepTargets []uint64
}

func NewSimClock() *SimClock {
	return &SimClock{}
}

func (c *SimClock) NowMicros() uint64 {
	return c.now
}

func (c *SimClock) SleepUntilMicros(deadline uint64) {
	c.sleepTargets = append(c.sleepTargets, deadline)
	if deadline > c.now {
		c.now = deadline
	}
}

// AdvanceMicros moves virtual time forward without a sleep, to model
// compute cost inside a cycle.
func (c *SimClock) AdvanceMicros(d uint64) {
	c.now += d
}

// SleepTargets returns every deadline passed to SleepUntilMicros, in order.
func (c *SimClock) SleepTargets() []uint64 {
	return c.sleepTargets
}

// Pulse is one recorded step edge.
type Pulse struct {
	TimeMicros uint64
	Direction  types.Direction
}

// SimStepper records enable state, direction changes, and pulse times
// against a SimClock. It stands in for real drive hardware in the simulator
// binary and in the scheduler tests.
type SimStepper struct {
	clock Clock

	pulseDelayMicros uint32
	enabled          bool
	direction        types.Direction

	pulses           []Pulse
	directionChanges int

	// Optional fault injection for the I/O failure path.
	StepErr error
}

func NewSimStepper(clock Clock, pulseDelayMicros uint32) *SimStepper {
	return &SimStepper{
		clock:            clock,
		pulseDelayMicros: pulseDelayMicros,
		pulses:           make([]Pulse, 0, 4096),
	}
}

func (s *SimStepper) Enable() error {
	s.enabled = true
	return nil
}

func (s *SimStepper) Disable() error {
	s.enabled = false
	return nil
}

func (s *SimStepper) SetDirection(dir types.Direction) error {
	if dir != s.direction {
		s.directionChanges++
	}
	s.direction = dir
	return nil
}

func (s *SimStepper) Step() (uint32, error) {
	if s.StepErr != nil {
		return 0, s.StepErr
	}
	s.pulses = append(s.pulses, Pulse{
		TimeMicros: s.clock.NowMicros(),
		Direction:  s.direction,
	})
	return s.pulseDelayMicros, nil
}

// Pulses returns every recorded step edge, in issue order.
func (s *SimStepper) Pulses() []Pulse {
	return s.pulses
}

// StepCount returns the total number of pulses emitted.
func (s *SimStepper) StepCount() int {
	return len(s.pulses)
}

// NetSteps returns pulses signed by direction: normal counts up, reversed
// counts down.
func (s *SimStepper) NetSteps() int64 {
	var net int64
	for _, p := range s.pulses {
		if p.Direction == types.DirectionReversed {
			net--
		} else {
			net++
		}
	}
	return net
}

// Enabled reports the current enable state.
func (s *SimStepper) Enabled() bool {
	return s.enabled
}

// DirectionChanges returns how many times the direction pin was reprogrammed
// to a new value.
func (s *SimStepper) DirectionChanges() int {
	return s.directionChanges
}
