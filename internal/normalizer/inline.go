package normalizer

import (
	"encoding/xml"

	"github.com/verigraph/verigraph/internal/ir"
	"github.com/verigraph/verigraph/internal/vast"
)

func xmlName(tag string) xml.Name {
	return xml.Name{Local: tag}
}

// routine is a function or task definition collected from a module body.
type routine struct {
	node    *vast.Node
	formals []string // input argument names, declaration order
	isFunc  bool
}

type routineTable map[string]routine

// collectRoutines gathers func/task definitions so call sites can be inlined.
// Combinational helper functions become ordinary equations at each call site,
// parameterized by that call's arguments; they are never shared templates.
func collectRoutines(module *vast.Node) routineTable {
	table := make(routineTable)
	for i := range module.Children {
		child := &module.Children[i]
		tag := child.Tag()
		if tag != "func" && tag != "task" {
			continue
		}
		r := routine{node: child, isFunc: tag == "func"}
		for _, v := range child.FindAll("var") {
			dir := v.Attr("dir")
			if dir == "input" || dir == "in" {
				r.formals = append(r.formals, v.Name())
			}
		}
		if name := child.Name(); name != "" {
			table[name] = r
		}
	}
	return table
}

// inlineRoutines rewrites a statement subtree so that every call site carries
// its own copy of the callee logic with formals bound to the call arguments:
//
//   - a funcref in expression position becomes the function's result
//     expression when the body reduces to one (single assignment to the
//     function's name); otherwise the call text is left for the extractor to
//     label opaquely;
//   - a taskref in statement position is spliced out for the task body.
//
// The returned node may share unmodified subtrees with the input.
func inlineRoutines(stmt *vast.Node, funcs routineTable, diags *ir.Diagnostics, module string) *vast.Node {
	if len(funcs) == 0 {
		return stmt
	}
	return rewrite(stmt, funcs, diags, module)
}

func rewrite(n *vast.Node, funcs routineTable, diags *ir.Diagnostics, module string) *vast.Node {
	switch n.Tag() {
	case "funcref":
		if r, ok := funcs[n.Name()]; ok && r.isFunc {
			if result := resultExpr(r); result != nil {
				return substitute(result.Clone(), bindings(r, n))
			}
			diags.Warnf("inline", module,
				"function %q has no single result expression; call left as-is", n.Name())
		}
		return n
	case "taskref":
		if r, ok := funcs[n.Name()]; ok && !r.isFunc {
			body := taskBody(r)
			spliced := &vast.Node{XMLName: xmlName("begin")}
			binds := bindings(r, n)
			for _, s := range body {
				spliced.Children = append(spliced.Children, *substitute(s.Clone(), binds))
			}
			return spliced
		}
		return n
	}

	// Rewrite children in place on a shallow copy only when something changed.
	var out *vast.Node
	for i := range n.Children {
		child := &n.Children[i]
		replaced := rewrite(child, funcs, diags, module)
		if replaced == child {
			continue
		}
		if out == nil {
			cp := *n
			cp.Children = append([]vast.Node(nil), n.Children...)
			out = &cp
		}
		out.Children[i] = *replaced
	}
	if out != nil {
		return out
	}
	return n
}

// resultExpr finds the function's value expression: the RHS of the single
// assignment whose target is the function's own name.
func resultExpr(r routine) *vast.Node {
	var result *vast.Node
	assigns := 0
	for _, tag := range []string{"assign", "blockingassign", "assigndly"} {
		for _, a := range r.node.Descendants(tag) {
			if len(a.Children) < 2 {
				continue
			}
			lhs := &a.Children[len(a.Children)-1]
			if lhs.Name() == r.node.Name() {
				assigns++
				result = &a.Children[0]
			}
		}
	}
	if assigns != 1 {
		return nil
	}
	return result
}

func taskBody(r routine) []*vast.Node {
	var body []*vast.Node
	for i := range r.node.Children {
		child := &r.node.Children[i]
		switch child.Tag() {
		case "var", "decl", "param":
			continue
		}
		body = append(body, child)
	}
	return body
}

// bindings pairs the routine's formals with the call-site argument subtrees,
// positionally.
func bindings(r routine, call *vast.Node) map[string]*vast.Node {
	binds := make(map[string]*vast.Node)
	args := make([]*vast.Node, 0, len(call.Children))
	for i := range call.Children {
		args = append(args, &call.Children[i])
	}
	for i, formal := range r.formals {
		if i < len(args) {
			binds[formal] = args[i]
		}
	}
	return binds
}

// substitute replaces varrefs to bound formals with clones of the actual
// argument expressions. The input must already be a private clone.
func substitute(n *vast.Node, binds map[string]*vast.Node) *vast.Node {
	if n.Tag() == "varref" {
		if actual, ok := binds[n.Name()]; ok {
			return actual.Clone()
		}
		return n
	}
	for i := range n.Children {
		replaced := substitute(&n.Children[i], binds)
		if replaced != &n.Children[i] {
			n.Children[i] = *replaced
		}
	}
	return n
}
