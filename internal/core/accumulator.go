package core

import "math"

// StepAccumulator converts the continuous position delta produced each
// control cycle into whole step pulses using fractional carry-over. The
// carry stays in [0, 1) after every cycle, so across an arbitrarily long run
// the emitted total tracks the commanded distance with at most one step of
// transient error and zero cumulative drift.
//
// The carry persists across segment boundaries and retargets: position is
// continuous there, so the fraction is too. It resets only on an explicit
// sequence restart.
type StepAccumulator struct {
	carry float64
}

func NewStepAccumulator() *StepAccumulator {
	return &StepAccumulator{}
}

// Accumulate absorbs one cycle's position delta magnitude and returns the
// number of step pulses to emit this cycle. Direction is tracked by the
// caller; deltas are folded in by magnitude only.
func (a *StepAccumulator) Accumulate(deltaUnits, stepsPerUnit float64) uint32 {
	a.carry += math.Abs(deltaUnits) * stepsPerUnit
	steps := math.Floor(a.carry)
	a.carry -= steps
	return uint32(steps)
}

// Carry returns the fractional step balance, always in [0, 1).
func (a *StepAccumulator) Carry() float64 {
	return a.carry
}

// settleEpsilon bounds the floating-point rounding the carry can pick up
// across the cycles of one segment.
const settleEpsilon = 1e-9

// Settle clamps the carry at a profile terminal sample, where the commanded
// position is exact. Rounding across thousands of cycles can leave the
// carry a hair under a whole step; the returned step makes the segment
// total exact. A genuine sub-step fraction is preserved.
func (a *StepAccumulator) Settle() uint32 {
	if a.carry >= 1-settleEpsilon {
		a.carry = 0
		return 1
	}
	if a.carry <= settleEpsilon {
		a.carry = 0
	}
	return 0
}

// Reset clears the carry. Only valid at an explicit sequence restart, when
// the step position reference is re-established.
func (a *StepAccumulator) Reset() {
	a.carry = 0
}
