package behavior

import (
	"regexp"

	"github.com/verigraph/verigraph/internal/ir"
)

// namedConstant matches an identifier-shaped case guard. Numeric literals
// (sized or plain) do not match, which is what separates an FSM state
// dispatch from an ordinary decoder.
var namedConstant = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// classify labels a block for rendering using structural heuristics:
// an edge-triggered block dispatching on a case is an FSM controller, a
// register incremented from itself is a counter, a combinational block with
// a dispatch or enough arithmetic is a datapath.
func classify(blk *ir.Block) string {
	if blk.Kind == ir.BlockAssign {
		return "Continuous Assignment"
	}
	if blk.Kind == ir.BlockInitial {
		return "Initial Block"
	}

	if blk.Sequential {
		if hasKind(blk.Frags, ir.FragCase) {
			return "FSM Controller"
		}
		if hasSelfIncrement(blk.Frags) {
			return "Counter"
		}
		return "Sequential Logic"
	}

	if hasKind(blk.Frags, ir.FragCase) || countArith(blk.Frags) > 3 {
		return "Combinational Datapath"
	}
	return "Combinational Logic"
}

func hasKind(frags []*ir.Fragment, kind ir.FragKind) bool {
	found := false
	walkFrags(frags, func(f *ir.Fragment) {
		if f.Kind == kind {
			found = true
		}
	})
	return found
}

// hasSelfIncrement looks for a nonblocking assignment whose target also
// appears among its own uses, the shape of a counter register.
func hasSelfIncrement(frags []*ir.Fragment) bool {
	found := false
	walkFrags(frags, func(f *ir.Fragment) {
		if f.Kind != ir.FragAssign || !f.Nonblocking {
			return
		}
		for _, use := range f.Uses {
			if use == f.Target || stripSSA(use) == f.Target {
				found = true
			}
		}
	})
	return found
}

var arithOp = regexp.MustCompile(`[-+*^&|]|<<|>>`)

func countArith(frags []*ir.Fragment) int {
	count := 0
	walkFrags(frags, func(f *ir.Fragment) {
		if f.Kind == ir.FragAssign {
			count += len(arithOp.FindAllString(f.Label, -1))
		}
	})
	return count
}

// walkFrags visits every fragment in a sequence, including branch bodies.
func walkFrags(frags []*ir.Fragment, visit func(*ir.Fragment)) {
	for _, f := range frags {
		visit(f)
		for _, branch := range f.Branches {
			walkFrags(branch, visit)
		}
	}
}

// stripSSA removes a trailing _<n> version suffix.
func stripSSA(name string) string {
	for i := len(name) - 1; i > 0; i-- {
		c := name[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '_' && i < len(name)-1 {
			return name[:i]
		}
		break
	}
	return name
}

// tagFSMs derives state machine hints. A case fragment earns one when its
// selector net is written by a block whose only assignment target is that
// single net and every case label is a named constant; the states and their
// guards are recorded, and literal assignments back to the selector are
// marked as state-defining.
func tagFSMs(mod *ir.Module) {
	for _, blk := range mod.Blocks {
		for _, frag := range blk.Frags {
			walkFrags([]*ir.Fragment{frag}, func(f *ir.Fragment) {
				if f.Kind != ir.FragCase {
					return
				}
				selector := caseSelector(f)
				if selector == "" {
					return
				}
				if !drivenAsOnlyTarget(mod, selector) {
					return
				}
				if !allNamedGuards(f) {
					return
				}
				hint := &ir.FSMHint{StateNet: selector}
				for i, guard := range f.Guards {
					hint.States = append(hint.States, ir.FSMState{Name: guard, Guard: guard})
					markStateDefs(f.Branches[i], selector)
				}
				blk.FSM = hint
			})
		}
	}
}

// caseSelector recovers the bare selector net from the fragment's uses.
func caseSelector(f *ir.Fragment) string {
	if len(f.Uses) != 1 {
		return ""
	}
	return stripSSA(f.Uses[0])
}

// drivenAsOnlyTarget reports whether some block in the module assigns the
// given net and nothing else.
func drivenAsOnlyTarget(mod *ir.Module, net string) bool {
	for _, blk := range mod.Blocks {
		targets := make(map[string]bool)
		walkFrags(blk.Frags, func(f *ir.Fragment) {
			if f.Kind == ir.FragAssign && f.Target != "" {
				targets[f.Target] = true
			}
		})
		if len(targets) == 1 && targets[net] {
			return true
		}
	}
	return false
}

func allNamedGuards(f *ir.Fragment) bool {
	if len(f.Guards) == 0 {
		return false
	}
	for _, g := range f.Guards {
		if g == "default" {
			continue
		}
		if !namedConstant.MatchString(g) {
			return false
		}
	}
	return true
}

// markStateDefs flags literal assignments to the state net inside one branch.
func markStateDefs(branch []*ir.Fragment, stateNet string) {
	walkFrags(branch, func(f *ir.Fragment) {
		if f.Kind == ir.FragAssign && f.Target == stateNet && f.Folded != "" {
			f.StateDef = true
		}
	})
}
