// Package core implements the real-time motion core: the jerk-limited
// trajectory planner, the fractional step accumulator, the waypoint
// sequencer, and the fixed-period cycle scheduler that drives them.
package core

import (
	"errors"
	"math"

	"stepcontrol/pkg/types"
)

// Status reports whether the active profile still has time left.
type Status int

const (
	StatusRunning Status = iota
	StatusFinished
)

// ErrInfeasible means the segment limits cannot produce a valid profile
// (zero, negative, or non-finite jerk/acceleration/velocity limits, or a
// non-finite target). Fatal for the segment; never retried.
var ErrInfeasible = errors.New("planner: no feasible profile for segment limits")

// A profile is a sequence of constant-jerk phases. Worst case is a
// jerk-limited stop (cancel acceleration, then a deceleration trapezoid)
// followed by a full 7-phase rest-to-rest S-curve.
const maxPhases = 12

type phase struct {
	start float64 // profile time at phase start (s)
	dur   float64
	jerk  float64
	// kinematic state at phase start
	pos float64
	vel float64
	acc float64
}

// Planner generates and evaluates time-optimal jerk-limited S-curve profiles
// for a single axis. Reset builds the profile for a segment; Advance
// evaluates it one control period forward. Evaluation is deterministic and
// the terminal sample is exactly (target, 0, 0), which the step
// accumulator's drift-free guarantee depends on.
//
// Reset may be called while a profile is running (abort/retarget): the old
// profile is fully discarded and a new one is planned that first brings the
// axis to a jerk-limited stop, then moves rest-to-rest to the new target.
type Planner struct {
	target  float64
	total   float64
	elapsed float64
	phases  [maxPhases]phase
	nphases int
	state   types.KinematicState
}

func NewPlanner() *Planner {
	return &Planner{}
}

// Reset discards any previous profile and plans a move from state to the
// segment target, ending at zero velocity and acceleration, within the
// segment's jerk/acceleration/velocity limits.
func (p *Planner) Reset(state types.KinematicState, seg types.Segment) error {
	if !limitsFeasible(seg) {
		return ErrInfeasible
	}

	b := profileBuilder{phases: &p.phases, p: state.Position, v: state.Velocity, a: state.Acceleration}
	if state.Velocity != 0 || state.Acceleration != 0 {
		b.addStop(seg.MaxJerk, seg.MaxAcceleration)
	}
	b.addRestToRest(seg.TargetPosition-b.p, seg.MaxJerk, seg.MaxAcceleration, seg.MaxVelocity)

	p.target = seg.TargetPosition
	p.total = b.t
	p.elapsed = 0
	p.nphases = b.n
	p.state = state
	return nil
}

// Halt discards any previous profile and plans a jerk-limited stop from
// state under the given limits. The stop position becomes the new target.
// An axis already at rest finishes on the next Advance.
func (p *Planner) Halt(state types.KinematicState, maxJerk, maxAcceleration float64) error {
	if maxJerk <= 0 || maxAcceleration <= 0 || math.IsNaN(maxJerk) || math.IsNaN(maxAcceleration) {
		return ErrInfeasible
	}

	b := profileBuilder{phases: &p.phases, p: state.Position, v: state.Velocity, a: state.Acceleration}
	if state.Velocity != 0 || state.Acceleration != 0 {
		b.addStop(maxJerk, maxAcceleration)
	}

	p.target = b.p
	p.total = b.t
	p.elapsed = 0
	p.nphases = b.n
	p.state = state
	return nil
}

// Advance evaluates the profile dt seconds forward and returns the new
// state. Once the profile time is exhausted it returns exactly the target
// with zero velocity and acceleration, and keeps doing so on further calls.
func (p *Planner) Advance(dt float64) (types.KinematicState, Status) {
	p.elapsed += dt
	if p.elapsed >= p.total-1e-12 {
		p.state = types.KinematicState{Position: p.target}
		return p.state, StatusFinished
	}

	ph := p.phaseAt(p.elapsed)
	t := p.elapsed - ph.start
	p.state = types.KinematicState{
		Position:     ph.pos + ph.vel*t + 0.5*ph.acc*t*t + ph.jerk*t*t*t/6,
		Velocity:     ph.vel + ph.acc*t + 0.5*ph.jerk*t*t,
		Acceleration: ph.acc + ph.jerk*t,
	}
	return p.state, StatusRunning
}

// State returns the most recent kinematic state.
func (p *Planner) State() types.KinematicState {
	return p.state
}

// Duration returns the total profile time in seconds.
func (p *Planner) Duration() float64 {
	return p.total
}

// Target returns the position the active profile terminates at.
func (p *Planner) Target() float64 {
	return p.target
}

func (p *Planner) phaseAt(t float64) *phase {
	for i := p.nphases - 1; i >= 0; i-- {
		if t >= p.phases[i].start {
			return &p.phases[i]
		}
	}
	return &p.phases[0]
}

func limitsFeasible(seg types.Segment) bool {
	for _, v := range [...]float64{seg.MaxJerk, seg.MaxAcceleration, seg.MaxVelocity} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !(math.IsNaN(seg.TargetPosition) || math.IsInf(seg.TargetPosition, 0))
}

// profileBuilder accumulates constant-jerk phases, integrating the boundary
// state analytically as each phase is appended.
type profileBuilder struct {
	phases *[maxPhases]phase
	n      int
	t      float64
	p      float64
	v      float64
	a      float64
}

func (b *profileBuilder) add(dur, jerk float64) {
	if dur <= 0 {
		return
	}
	b.phases[b.n] = phase{start: b.t, dur: dur, jerk: jerk, pos: b.p, vel: b.v, acc: b.a}
	b.n++

	t := dur
	b.p += b.v*t + 0.5*b.a*t*t + jerk*t*t*t/6
	b.v += b.a*t + 0.5*jerk*t*t
	b.a += jerk * t
	b.t += dur
}

// addStop appends phases that bring the axis to rest: cancel any residual
// acceleration, then run a jerk-limited deceleration down to zero velocity.
// Boundary values are snapped to exact zero so the following rest-to-rest
// phases integrate from a clean state.
func (b *profileBuilder) addStop(maxJerk, maxAcc float64) {
	if b.a != 0 {
		b.add(math.Abs(b.a)/maxJerk, -sign(b.a)*maxJerk)
		b.a = 0
	}

	if b.v != 0 {
		s := sign(b.v)
		speed := math.Abs(b.v)
		var tj, ta float64
		if speed*maxJerk <= maxAcc*maxAcc {
			// deceleration never saturates: triangular acceleration shape
			tj = math.Sqrt(speed / maxJerk)
		} else {
			tj = maxAcc / maxJerk
			ta = speed/maxAcc - tj
		}
		b.add(tj, -s*maxJerk)
		b.add(ta, 0)
		b.add(tj, s*maxJerk)
		b.v = 0
		b.a = 0
	}
}

// addRestToRest appends a 7-phase S-curve covering the signed distance d
// from rest to rest. Short moves degrade first to a velocity triangle
// (no cruise), then to a fully jerk-limited move (no constant-acceleration
// phase) while still honoring all three limits.
func (b *profileBuilder) addRestToRest(d, maxJerk, maxAcc, maxVel float64) {
	dist := math.Abs(d)
	if dist == 0 {
		return
	}
	s := sign(d)

	// Nominal acceleration ramp 0 -> maxVel.
	var tj, ta float64
	if maxVel*maxJerk >= maxAcc*maxAcc {
		tj = maxAcc / maxJerk
		ta = maxVel/maxAcc - tj
	} else {
		tj = math.Sqrt(maxVel / maxJerk)
	}
	vPeak := maxVel
	tAccel := 2*tj + ta

	// The accel and decel ramps each cover vPeak*tAccel/2 (the average
	// velocity over a rest-to-rest ramp is vPeak/2).
	if vPeak*tAccel > dist {
		// Cannot reach maxVel: lower the peak. Try keeping the full
		// constant-acceleration phase first.
		tjA := maxAcc / maxJerk
		vp := (-maxAcc*tjA + math.Sqrt(maxAcc*tjA*maxAcc*tjA+4*maxAcc*dist)) / 2
		if vp >= maxAcc*maxAcc/maxJerk {
			tj = tjA
			ta = vp/maxAcc - tjA
		} else {
			// Even the acceleration profile degenerates to a triangle.
			tj = math.Cbrt(dist / (2 * maxJerk))
			ta = 0
			vp = maxJerk * tj * tj
		}
		vPeak = vp
		tAccel = 2*tj + ta
	}

	tCruise := (dist - vPeak*tAccel) / vPeak
	if tCruise < 0 {
		tCruise = 0
	}

	b.add(tj, s*maxJerk)
	b.add(ta, 0)
	b.add(tj, -s*maxJerk)
	b.add(tCruise, 0)
	b.add(tj, -s*maxJerk)
	b.add(ta, 0)
	b.add(tj, s*maxJerk)
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
