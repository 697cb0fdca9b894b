// Package behavior reduces procedural and combinational blocks to labeled
// control-flow fragments: assignments, conditionals, case dispatches and
// loops, each carrying an equation or condition label plus SSA-versioned
// def/use sets. Branches recurse independently and are never merged, even
// when their equations come out textually identical — collapsing equal
// branches is a rendering concern, not a model concern.
package behavior

import (
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/verigraph/verigraph/internal/ir"
	"github.com/verigraph/verigraph/internal/vast"
)

// Extractor walks block bodies by recursive descent over the synthesis
// constructs {sequential assign, conditional, case dispatch, loop}.
type Extractor struct {
	// MaxParallel bounds the fork-join over independent modules.
	// Zero means one worker per CPU.
	MaxParallel int
}

// New returns an Extractor with default settings.
func New() *Extractor {
	return &Extractor{}
}

// Extract fills in every block's fragments, classification label and FSM
// hint. Each module's extraction is a pure function of that module's own IR,
// so modules fork and join with per-worker diagnostics merged in table order.
func (e *Extractor) Extract(design *ir.Design, diags *ir.Diagnostics) {
	perModule := make([]ir.Diagnostics, len(design.Modules))
	var g errgroup.Group
	limit := e.MaxParallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	for i, mod := range design.Modules {
		i, mod := i, mod
		g.Go(func() error {
			extractModule(mod, &perModule[i])
			return nil
		})
	}
	_ = g.Wait()
	for i := range perModule {
		diags.Merge(&perModule[i])
	}
}

func extractModule(mod *ir.Module, diags *ir.Diagnostics) {
	ssa := newSSA()
	for _, blk := range mod.Blocks {
		walker := &blockWalker{module: mod.Name, ssa: ssa, diags: diags}
		for _, stmt := range blk.Body {
			blk.Frags = append(blk.Frags, walker.statement(stmt)...)
		}
		blk.Label = classify(blk)
	}
	tagFSMs(mod)
}

// blockWalker carries the per-block traversal state. The SSA table spans the
// whole module so uses in one block see versions defined in another.
type blockWalker struct {
	module string
	ssa    *ssaTable
	diags  *ir.Diagnostics
}

// statement reduces one AST statement to zero or more fragments. The
// terminal state is an exhausted sequence; unsupported constructs become
// opaque fragments so nothing is silently dropped from the rendering.
func (w *blockWalker) statement(stmt *vast.Node) []*ir.Fragment {
	if stmt == nil {
		return nil
	}
	tag := stmt.Tag()

	switch {
	case tag == "begin":
		var frags []*ir.Fragment
		for i := range stmt.Children {
			frags = append(frags, w.statement(&stmt.Children[i])...)
		}
		return frags

	case tag == "if" || tag == "ifstmt":
		return []*ir.Fragment{w.conditional(stmt)}

	case tag == "case" || tag == "casestmt" || tag == "casez" || tag == "casex":
		return []*ir.Fragment{w.caseDispatch(stmt)}

	case tag == "while" || tag == "for" || tag == "repeat" || tag == "dowhile":
		return []*ir.Fragment{w.loop(stmt)}

	case strings.Contains(tag, "assign"):
		return []*ir.Fragment{w.assignment(stmt)}

	case tag == "var" || tag == "decl" || tag == "param" || tag == "genvar" || tag == "comment":
		return nil

	case tag == "break" || tag == "continue":
		return []*ir.Fragment{{Kind: ir.FragOpaque, Label: tag, Loc: stmt.Loc()}}
	}

	err := &ir.UnsupportedConstructError{Module: w.module, Construct: tag, Loc: stmt.Loc()}
	w.diags.Add(ir.Diagnostic{
		Severity: ir.SevWarning,
		Code:     "unsupported-construct",
		Module:   w.module,
		Message:  err.Error(),
		Line:     stmt.Loc().Line,
	})
	return []*ir.Fragment{{
		Kind:  ir.FragOpaque,
		Label: tag,
		Loc:   stmt.Loc(),
	}}
}

// assignment produces an equation fragment. The elaborator places the RHS
// first and the LHS last; nonblocking assignments carry "dly" in their tag.
func (w *blockWalker) assignment(stmt *vast.Node) *ir.Fragment {
	frag := &ir.Fragment{Kind: ir.FragAssign, Loc: stmt.Loc()}
	if len(stmt.Children) < 2 {
		frag.Kind = ir.FragOpaque
		frag.Label = stmt.Tag()
		return frag
	}
	rhs := &stmt.Children[0]
	lhs := &stmt.Children[len(stmt.Children)-1]

	frag.Target = lhsName(lhs)
	frag.Nonblocking = strings.Contains(stmt.Tag(), "dly") || strings.Contains(stmt.Tag(), "nonblocking")

	// Uses are resolved to latest SSA versions before the target gets its
	// new version, so self-references read the prior value.
	for _, v := range vast.VarNames(rhs) {
		frag.Uses = append(frag.Uses, w.ssa.latest(v))
	}
	frag.SSATarget = w.ssa.define(frag.Target)

	op := "="
	if frag.Nonblocking {
		op = "<="
	}
	frag.Label = frag.Target + " " + op + " " + vast.ExprString(rhs)

	// Compile-time-constant right-hand sides are pre-evaluated; both the
	// as-written text and the folded literal are kept so the renderer can
	// show either view.
	if folded, ok := fold(rhs); ok {
		frag.Folded = folded
	}
	return frag
}

func lhsName(lhs *vast.Node) string {
	if lhs.Tag() == "varref" {
		return lhs.Name()
	}
	if refs := lhs.Descendants("varref"); len(refs) > 0 {
		return refs[0].Name()
	}
	if name := lhs.Name(); name != "" {
		return name
	}
	return "<unnamed>"
}

// conditional builds a two-branch fragment. Both branches recurse
// independently; an absent else still yields an empty branch so the guard
// list and branch list stay aligned.
func (w *blockWalker) conditional(stmt *vast.Node) *ir.Fragment {
	cond := conditionOf(stmt)
	frag := &ir.Fragment{
		Kind:   ir.FragCond,
		Label:  "if (" + vast.ExprString(cond) + ")",
		Guards: []string{"true", "false"},
		Loc:    stmt.Loc(),
	}
	if cond != nil {
		for _, v := range vast.VarNames(cond) {
			frag.Uses = append(frag.Uses, w.ssa.latest(v))
		}
	}

	thenStmts, elseStmts := branchesOf(stmt, cond)
	var thenFrags, elseFrags []*ir.Fragment
	for _, s := range thenStmts {
		thenFrags = append(thenFrags, w.statement(s)...)
	}
	for _, s := range elseStmts {
		elseFrags = append(elseFrags, w.statement(s)...)
	}
	frag.Branches = [][]*ir.Fragment{thenFrags, elseFrags}
	return frag
}

// conditionOf finds the guard expression: an explicit cond wrapper, or the
// first expression-shaped child in the elaborator's flat form.
func conditionOf(stmt *vast.Node) *vast.Node {
	if c := stmt.Find("cond"); c != nil {
		if len(c.Children) > 0 {
			return &c.Children[0]
		}
		return c
	}
	for i := range stmt.Children {
		c := &stmt.Children[i]
		t := c.Tag()
		if vast.IsOperator(t) || t == "varref" || t == "const" {
			return c
		}
	}
	return nil
}

func branchesOf(stmt *vast.Node, cond *vast.Node) (then, els []*vast.Node) {
	if t := stmt.Find("then"); t != nil {
		for i := range t.Children {
			then = append(then, &t.Children[i])
		}
		if e := stmt.Find("else"); e != nil {
			for i := range e.Children {
				els = append(els, &e.Children[i])
			}
		}
		return then, els
	}
	// Flat form: condition, then-statement, optional else-statement.
	var stmts []*vast.Node
	for i := range stmt.Children {
		c := &stmt.Children[i]
		if c == cond || c.Tag() == "cond" {
			continue
		}
		stmts = append(stmts, c)
	}
	if len(stmts) > 0 {
		then = stmts[:1]
	}
	if len(stmts) > 1 {
		els = stmts[1:]
	}
	return then, els
}

// caseDispatch builds one branch per case item. Branch guards keep the label
// expression text; a valueless item is the default branch.
func (w *blockWalker) caseDispatch(stmt *vast.Node) *ir.Fragment {
	selector := selectorOf(stmt)
	frag := &ir.Fragment{
		Kind:  ir.FragCase,
		Label: "case (" + vast.ExprString(selector) + ")",
		Loc:   stmt.Loc(),
	}
	if selector != nil {
		for _, v := range vast.VarNames(selector) {
			frag.Uses = append(frag.Uses, w.ssa.latest(v))
		}
	}

	for i := range stmt.Children {
		item := &stmt.Children[i]
		if t := item.Tag(); t != "caseitem" && t != "item" {
			continue
		}
		guard := item.Attr("value")
		var labels []string
		var bodyFrags []*ir.Fragment
		for j := range item.Children {
			c := &item.Children[j]
			// Leading constants on a case item are its match labels;
			// statement tags end the label run.
			if len(bodyFrags) == 0 && (c.Tag() == "const" || c.Tag() == "varref") {
				labels = append(labels, vast.ExprString(c))
				continue
			}
			bodyFrags = append(bodyFrags, w.statement(c)...)
		}
		if guard == "" {
			guard = strings.Join(labels, ", ")
		}
		if guard == "" {
			guard = "default"
		}
		frag.Guards = append(frag.Guards, guard)
		frag.Branches = append(frag.Branches, bodyFrags)
	}
	return frag
}

func selectorOf(stmt *vast.Node) *vast.Node {
	if e := stmt.Find("expr"); e != nil && len(e.Children) > 0 {
		return &e.Children[0]
	}
	for i := range stmt.Children {
		c := &stmt.Children[i]
		t := c.Tag()
		if vast.IsOperator(t) || t == "varref" || t == "const" {
			return c
		}
	}
	return nil
}

// loop builds a single-branch fragment holding the body sequence.
func (w *blockWalker) loop(stmt *vast.Node) *ir.Fragment {
	cond := conditionOf(stmt)
	frag := &ir.Fragment{
		Kind:   ir.FragLoop,
		Label:  stmt.Tag() + " (" + vast.ExprString(cond) + ")",
		Guards: []string{"body"},
		Loc:    stmt.Loc(),
	}
	if cond != nil {
		for _, v := range vast.VarNames(cond) {
			frag.Uses = append(frag.Uses, w.ssa.latest(v))
		}
	}
	var body []*ir.Fragment
	if b := stmt.Find("body"); b != nil {
		for i := range b.Children {
			body = append(body, w.statement(&b.Children[i])...)
		}
	} else {
		for i := range stmt.Children {
			c := &stmt.Children[i]
			if c == cond || c.Tag() == "cond" {
				continue
			}
			body = append(body, w.statement(c)...)
		}
	}
	frag.Branches = [][]*ir.Fragment{body}
	return frag
}
