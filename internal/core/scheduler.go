package core

import (
	"context"
	"fmt"
	"math"

	"stepcontrol/internal/hal"
	"stepcontrol/internal/logging"
	"stepcontrol/pkg/types"
)

// Config carries the scheduler's timing and scale parameters.
type Config struct {
	// CyclePeriodMicros is the fixed control period, e.g. 1000 for 1 kHz.
	CyclePeriodMicros uint32
	// StepsPerUnit converts axis units to steps, including any
	// microstepping multiplier.
	StepsPerUnit float64
	// DirectionSettleMicros is waited after reprogramming the direction pin
	// while a move is in progress. Zero disables the wait.
	DirectionSettleMicros uint32
}

// RunState is the scheduler's lifecycle state.
type RunState int

const (
	StateIdle RunState = iota
	StatePreparing
	StateRunning
	StateDone
)

// Stats are counters accumulated over one run.
type Stats struct {
	Cycles         uint64
	Overruns       uint64
	SegmentsDone   uint64
	StepsRequested uint64
	StepsPulsed    uint64
}

// Scheduler drives the fixed-period control loop: one planner advance per
// cycle, fractional step accumulation, within-cycle pulse sub-scheduling,
// and deadline management against the clock. It is the single owner of the
// stepper; no other goroutine touches the pins while a run is active.
type Scheduler struct {
	cfg     Config
	planner *Planner
	accum   *StepAccumulator
	seq     *Sequencer
	stepper hal.Stepper
	clock   hal.Clock
	logger  *logging.Logger

	state       types.KinematicState
	direction   types.Direction
	dirKnown    bool
	nextPulseAt uint64
	runState    RunState
	stats       Stats
}

// NewScheduler wires a scheduler over the given sequence and hardware. The
// axis is assumed to start at rest at position zero; call SetState before
// Run to seed a different starting point.
func NewScheduler(cfg Config, seq *Sequencer, stepper hal.Stepper, clock hal.Clock) (*Scheduler, error) {
	if cfg.CyclePeriodMicros == 0 {
		return nil, fmt.Errorf("scheduler: cycle period must be positive")
	}
	if cfg.StepsPerUnit <= 0 || math.IsNaN(cfg.StepsPerUnit) {
		return nil, fmt.Errorf("scheduler: steps per unit must be positive, got %v", cfg.StepsPerUnit)
	}
	return &Scheduler{
		cfg:     cfg,
		planner: NewPlanner(),
		accum:   NewStepAccumulator(),
		seq:     seq,
		stepper: stepper,
		clock:   clock,
		logger:  logging.GetLogger("scheduler"),
	}, nil
}

// SetState seeds the kinematic state the first segment plans from.
func (s *Scheduler) SetState(state types.KinematicState) {
	s.state = state
}

// State returns the most recent kinematic state.
func (s *Scheduler) State() types.KinematicState {
	return s.state
}

// Stats returns the counters for the current or last run.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// RunState returns the scheduler's lifecycle state.
func (s *Scheduler) RunState() RunState {
	return s.runState
}

// Run executes the configured sequence to completion. It returns nil on a
// clean finish, ctx.Err() after a cancellation-triggered deceleration to
// rest, and a wrapped error on infeasible segments or stepper I/O failures.
// On any exit the stepper is disabled (fail-safe).
//
// A requested-vs-pulsed step mismatch at clean completion is a programming
// error in the planner or accumulator and panics: there is no sane recovery
// once discrete step accounting has drifted.
func (s *Scheduler) Run(ctx context.Context) error {
	period := uint64(s.cfg.CyclePeriodMicros)
	dt := float64(period) / 1e6

	if err := s.stepper.Enable(); err != nil {
		return fmt.Errorf("enable stepper: %w", err)
	}
	defer func() {
		if err := s.stepper.Disable(); err != nil {
			s.logger.Error("Failed to disable stepper", "error", err)
		}
	}()

	segment := s.seq.Current()
	preparing := true
	halting := false
	var nextDeadline uint64

	for {
		if preparing {
			s.runState = StatePreparing
			if err := s.planner.Reset(s.state, segment); err != nil {
				return fmt.Errorf("segment %d: %w", s.seq.Index(), err)
			}
			requested := requestedSteps(s.state.Position, segment.TargetPosition, s.cfg.StepsPerUnit)
			s.stats.StepsRequested += requested

			dir := types.DirectionOf(segment.TargetPosition-s.state.Position, s.direction)
			if err := s.applyDirection(dir); err != nil {
				return err
			}

			s.logger.Info("Preparing segment",
				"index", s.seq.Index(),
				"target", segment.TargetPosition,
				"requested_steps", requested)
		}

		if ctx.Err() != nil && !halting {
			halting = true
			if err := s.planner.Halt(s.state, segment.MaxJerk, segment.MaxAcceleration); err != nil {
				return fmt.Errorf("halt: %w", err)
			}
			s.logger.Info("Cancellation requested, decelerating to rest")
		}

		newState, status := s.planner.Advance(dt)

		if preparing {
			preparing = false
			s.runState = StateRunning
			// Profile construction costs many times a steady cycle, so the
			// deadline restarts from now instead of inheriting the backlog,
			// which would force a burst of catch-up cycles.
			nextDeadline = s.clock.NowMicros() + period
		}

		delta := newState.Position - s.state.Position
		if delta != 0 {
			if err := s.applyDirection(types.DirectionOf(delta, s.direction)); err != nil {
				return err
			}
		}

		steps := s.accum.Accumulate(math.Abs(delta), s.cfg.StepsPerUnit)
		if status == StatusFinished {
			steps += s.accum.Settle()
		}
		if steps > 0 {
			if err := s.emitPulses(steps, period); err != nil {
				return err
			}
		}

		s.state = newState

		if status == StatusFinished {
			if halting {
				s.runState = StateIdle
				s.logger.Info("Stopped at rest",
					"position", s.state.Position,
					"steps_pulsed", s.stats.StepsPulsed)
				return ctx.Err()
			}

			s.stats.SegmentsDone++
			next, ok := s.seq.Advance()
			if !ok {
				s.runState = StateDone
				s.verifyStepAccounting()
				s.logger.Info("Sequence complete",
					"segments", s.stats.SegmentsDone,
					"steps_pulsed", s.stats.StepsPulsed,
					"overruns", s.stats.Overruns)
				return nil
			}
			segment = next
			preparing = true
		}

		if s.clock.NowMicros() > nextDeadline {
			// Lateness is absorbed into the next cycle's pulse spacing;
			// the counter makes sustained overload visible.
			s.stats.Overruns++
		}
		s.clock.SleepUntilMicros(nextDeadline)
		nextDeadline += period
		s.stats.Cycles++
	}
}

// emitPulses spreads the cycle's pulses evenly across the period, honoring
// the driver's minimum inter-pulse delay when it exceeds the even spacing.
// There is no wait after the final pulse: the cycle deadline provides it,
// and the driver minimum is carried over to the next cycle's first pulse.
func (s *Scheduler) emitPulses(steps uint32, period uint64) error {
	interval := period / uint64(steps)
	deadline := s.clock.NowMicros()
	if deadline < s.nextPulseAt {
		deadline = s.nextPulseAt
		s.clock.SleepUntilMicros(deadline)
	}

	var pulseDelay uint32
	for i := uint32(0); i < steps; i++ {
		var err error
		if pulseDelay, err = s.stepper.Step(); err != nil {
			return fmt.Errorf("step pulse: %w", err)
		}
		s.stats.StepsPulsed++

		if i+1 == steps {
			break
		}
		spacing := interval
		if uint64(pulseDelay) > spacing {
			spacing = uint64(pulseDelay)
		}
		deadline += spacing
		s.clock.SleepUntilMicros(deadline)
	}

	s.nextPulseAt = deadline + uint64(pulseDelay)
	return nil
}

func (s *Scheduler) applyDirection(dir types.Direction) error {
	if s.dirKnown && dir == s.direction {
		return nil
	}
	if err := s.stepper.SetDirection(dir); err != nil {
		return fmt.Errorf("set direction: %w", err)
	}
	if s.cfg.DirectionSettleMicros > 0 {
		s.clock.SleepUntilMicros(s.clock.NowMicros() + uint64(s.cfg.DirectionSettleMicros))
	}
	s.direction = dir
	s.dirKnown = true
	return nil
}

func (s *Scheduler) verifyStepAccounting() {
	if s.stats.StepsRequested != s.stats.StepsPulsed {
		panic(fmt.Sprintf("step count mismatch: requested %d, pulsed %d",
			s.stats.StepsRequested, s.stats.StepsPulsed))
	}
}

// requestedSteps is the whole-step distance between two positions, the
// independent count the pulse total is checked against at sequence end.
func requestedSteps(from, to, stepsPerUnit float64) uint64 {
	fromSteps := int64(math.Round(from * stepsPerUnit))
	toSteps := int64(math.Round(to * stepsPerUnit))
	d := toSteps - fromSteps
	if d < 0 {
		d = -d
	}
	return uint64(d)
}
