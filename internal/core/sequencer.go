package core

import (
	"errors"

	"stepcontrol/pkg/types"
)

// Sequencer owns the ordered list of target segments and the exhaustion
// policy. It has no retry or skip semantics: an infeasible segment is fatal
// for the run and the sequencer will hand it out again unchanged.
type Sequencer struct {
	segments []types.Segment
	index    int
	policy   types.SequencePolicy
}

func NewSequencer(segments []types.Segment, policy types.SequencePolicy) (*Sequencer, error) {
	if len(segments) == 0 {
		return nil, errors.New("sequencer: segment list is empty")
	}
	segs := make([]types.Segment, len(segments))
	copy(segs, segments)
	return &Sequencer{segments: segs, policy: policy}, nil
}

// Current returns the active segment.
func (s *Sequencer) Current() types.Segment {
	return s.segments[s.index]
}

// Advance moves to the next segment. Under the loop policy the list wraps
// to index 0; under run-once it reports false when exhausted.
func (s *Sequencer) Advance() (types.Segment, bool) {
	s.index++
	if s.index >= len(s.segments) {
		if s.policy != types.PolicyLoop {
			s.index = len(s.segments) - 1
			return types.Segment{}, false
		}
		s.index = 0
	}
	return s.segments[s.index], true
}

// Reset returns to the first segment.
func (s *Sequencer) Reset() {
	s.index = 0
}

// Len returns the number of segments in the list.
func (s *Sequencer) Len() int {
	return len(s.segments)
}

// Index returns the position of the active segment.
func (s *Sequencer) Index() int {
	return s.index
}
