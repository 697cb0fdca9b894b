package structural

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/verigraph/verigraph/internal/ir"
)

// rank orders the direction lattice from least to most specific knowledge.
func rank(d ir.Direction) int {
	switch d {
	case ir.DirUnknown:
		return 0
	case ir.DirInternal:
		return 1
	case ir.DirInput, ir.DirOutput:
		return 2
	default:
		return 3
	}
}

// applyObs decodes an observation (0..3) into the drives/consumes pair and
// feeds it through Observe.
func applyObs(d ir.Direction, obs int) ir.Direction {
	return Observe(d, obs&1 != 0, obs&2 != 0)
}

// TestObserveInvariants verifies the direction lattice properties the rest of
// the pipeline relies on: inference only ever widens, and the final
// classification does not depend on the order endpoints were seen in.
func TestObserveInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Property 1: each observation moves the direction up the lattice or
	// keeps it in place, never down.
	properties.Property("observation only widens", prop.ForAll(
		func(seq []int) bool {
			d := ir.DirUnknown
			for _, obs := range seq {
				next := applyObs(d, obs)
				if rank(next) < rank(d) {
					return false
				}
				d = next
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	// Property 2: bidirectional is absorbing.
	properties.Property("bidirectional never narrows", prop.ForAll(
		func(seq []int) bool {
			d := ir.DirBidir
			for _, obs := range seq {
				d = applyObs(d, obs)
				if d != ir.DirBidir {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	// Property 3: the result is a join over the observation set, so any
	// permutation yields the same classification. Reversal exercises every
	// adjacent transposition.
	properties.Property("order of observations is irrelevant", prop.ForAll(
		func(seq []int) bool {
			forward := ir.DirUnknown
			for _, obs := range seq {
				forward = applyObs(forward, obs)
			}
			backward := ir.DirUnknown
			for i := len(seq) - 1; i >= 0; i-- {
				backward = applyObs(backward, seq[i])
			}
			return forward == backward
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}
