// Package selector decides which of a sequence of candidate units are used.
//
// A Selector walks positions 1, 2, 3, ... and classifies each one: the first
// skip positions are skipped, then every (step+1)-th position is used, and the
// positions in between are stepped over. With a limit, the selector finishes
// right after the limit-th use.
package selector

import (
	"math"

	"github.com/spacemeshos/unitstream/shared"
)

type Action int

const (
	Skip Action = iota
	Step
	Use
	Finished
)

var actions = []string{
	"skip",
	"step",
	"use",
	"finished",
}

func (a Action) String() string {
	if a < Skip || a > Finished {
		return "unknown"
	}
	return actions[a]
}

type Selector struct {
	position uint64
	skip     uint64
	step     uint64

	limited bool
	// last is the final position that can be used, valid if limited.
	last uint64
}

// New returns a Selector skipping the first skip positions and stepping over
// step positions between uses. A nil limit means unlimited uses.
func New(skip, step int64, limit *int64) (*Selector, error) {
	if skip < 0 {
		return nil, shared.InvalidParam("Skip", ">= 0", skip)
	}
	if step < 0 {
		return nil, shared.InvalidParam("Step", ">= 0", step)
	}
	s := &Selector{
		skip: uint64(skip),
		step: uint64(step),
	}
	if limit == nil {
		return s, nil
	}
	if *limit <= 0 {
		return nil, shared.InvalidParam("Limit", "> 0 (or unset for unlimited)", *limit)
	}

	// span = (limit-1)*(step+1)+1
	n := uint64(*limit) - 1
	stride := s.step + 1
	if n > (math.MaxUint64-1-s.skip)/stride {
		return nil, shared.InvalidParam("Limit", "skip + (limit-1)*(step+1) + 1 to fit in uint64", *limit)
	}
	s.limited = true
	s.last = s.skip + n*stride + 1
	return s, nil
}

// Unlimited returns a Selector that uses every position.
func Unlimited() *Selector {
	return &Selector{}
}

// Next advances to the next position and classifies it.
func (s *Selector) Next() Action {
	if s.position < math.MaxUint64 {
		s.position++
	}
	return s.classify(s.position)
}

// Position returns the number of positions classified so far.
func (s *Selector) Position() uint64 {
	return s.position
}

// Included reports whether the current position is used.
func (s *Selector) Included() bool {
	return s.position > 0 && s.classify(s.position) == Use
}

// Finished reports whether no further position will be used.
func (s *Selector) Finished() bool {
	return s.limited && s.position >= s.last
}

func (s *Selector) classify(p uint64) Action {
	switch {
	case s.limited && p > s.last:
		return Finished
	case p <= s.skip:
		return Skip
	case (p-s.skip-1)%(s.step+1) == 0:
		return Use
	default:
		return Step
	}
}
