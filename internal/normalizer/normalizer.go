// Package normalizer converts the external AST wire format into the internal
// representation: one ir.Module per module definition, declaration order
// preserved. A malformed module is fatal for that module only; siblings are
// still normalized and the failure is recorded in the diagnostics.
package normalizer

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/verigraph/verigraph/internal/ir"
	"github.com/verigraph/verigraph/internal/vast"
)

// Normalizer builds the per-module IR from decoded AST documents.
type Normalizer struct {
	// MaxParallel bounds the fork-join over independent modules.
	// Zero means one worker per CPU.
	MaxParallel int
}

// New returns a Normalizer with default settings.
func New() *Normalizer {
	return &Normalizer{}
}

// moduleResult carries one worker's output back to the declaration-ordered merge.
type moduleResult struct {
	module *ir.Module
	diags  ir.Diagnostics
}

// Normalize processes every module definition in the given documents.
// Multi-file designs pass several documents; modules merge into one table so
// the hierarchy resolver can bind references across files.
func (n *Normalizer) Normalize(docs []*vast.Document, diags *ir.Diagnostics) *ir.Design {
	design := ir.NewDesign()

	type work struct {
		node  *vast.Node
		types map[string]vast.Width
	}
	var jobs []work
	for _, doc := range docs {
		types := doc.TypeTable()
		for _, mod := range doc.Modules() {
			jobs = append(jobs, work{node: mod, types: types})
		}
		n.warnUnknownNetlistKinds(doc, diags)
	}

	// Each module is a pure function of its own subtree plus the type
	// table, so normalization forks per module and joins in declaration
	// order for a deterministic table.
	results := make([]moduleResult, len(jobs))
	var g errgroup.Group
	limit := n.MaxParallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i].module = normalizeModule(job.node, job.types, &results[i].diags)
			return nil
		})
	}
	// Workers never return errors; per-module failures are diagnostics.
	_ = g.Wait()

	for _, res := range results {
		diags.Merge(&res.diags)
		if res.module != nil {
			design.Add(res.module)
		}
	}
	return design
}

// warnUnknownNetlistKinds records a warning for netlist-level node kinds this
// tool does not understand, instead of failing the parse.
func (n *Normalizer) warnUnknownNetlistKinds(doc *vast.Document, diags *ir.Diagnostics) {
	nl := doc.Netlist()
	if nl == nil {
		return
	}
	for i := range nl.Children {
		switch tag := nl.Children[i].Tag(); tag {
		case "module", "typetable", "package", "iface", "cells":
		default:
			diags.Warnf("unknown-node", "", "skipping unknown netlist node kind %q", tag)
		}
	}
}

func normalizeModule(node *vast.Node, types map[string]vast.Width, diags *ir.Diagnostics) *ir.Module {
	name := node.Name()
	if name == "" {
		err := &ir.MalformedASTError{Missing: "module name", Loc: node.Loc()}
		diags.AddError("malformed-ast", "", "", err)
		return nil
	}
	if len(node.Children) == 0 {
		err := &ir.MalformedASTError{Module: name, Missing: "port list", Loc: node.Loc()}
		diags.AddError("malformed-ast", name, "", err)
		return nil
	}

	mod := &ir.Module{
		Name: name,
		Top:  node.Attr("topModule") == "1",
		Loc:  node.Loc(),
	}

	funcs := collectRoutines(node)

	for i := range node.Children {
		child := &node.Children[i]
		switch tag := child.Tag(); tag {
		case "var":
			normalizeVar(mod, child, types)
		case "instance", "cell":
			mod.Instances = append(mod.Instances, normalizeInstance(child))
		case "always", "always_ff", "always_comb", "always_latch", "initial", "final":
			mod.Blocks = append(mod.Blocks, normalizeBlock(mod.Name, child, funcs, diags))
		case "contassign", "assignw", "assign":
			mod.Blocks = append(mod.Blocks, &ir.Block{
				Kind: ir.BlockAssign,
				Body: []*vast.Node{inlineRoutines(child, funcs, diags, mod.Name)},
				Loc:  child.Loc(),
			})
		case "func", "task", "typetable", "genvar", "comment", "scope":
			// Routines are consumed at their call sites; the rest carry
			// no model content.
		default:
			diags.Warnf("unknown-node", name, "skipping unknown module node kind %q", tag)
		}
	}
	return mod
}

func normalizeVar(mod *ir.Module, node *vast.Node, types map[string]vast.Width) {
	name := node.Name()
	if name == "" {
		return
	}
	w := widthOf(node, types)
	net := &ir.Net{
		Name:  name,
		Width: w.Bits(),
		MSB:   w.MSB,
		LSB:   w.LSB,
		Dir:   ir.DirInternal,
		Loc:   node.Loc(),
	}
	if !w.Vector {
		net.MSB, net.LSB = 0, 0
	}
	mod.Nets = append(mod.Nets, net)

	if dir := portDirection(node.Attr("dir")); dir != ir.DirUnknown {
		mod.Ports = append(mod.Ports, ir.Port{
			Name:  name,
			Width: net.Width,
			MSB:   net.MSB,
			LSB:   net.LSB,
			Dir:   dir,
			Loc:   node.Loc(),
		})
	}
}

func portDirection(dir string) ir.Direction {
	switch strings.ToLower(dir) {
	case "input", "in":
		return ir.DirInput
	case "output", "out":
		return ir.DirOutput
	case "inout":
		return ir.DirInout
	default:
		return ir.DirUnknown
	}
}

func widthOf(node *vast.Node, types map[string]vast.Width) vast.Width {
	if id := node.Attr("dtype_id"); id != "" {
		if w, ok := types[id]; ok {
			return w
		}
	}
	// Tolerate inline left/right attributes from older format revisions.
	if l, r := node.Attr("left"), node.Attr("right"); l != "" && r != "" {
		var msb, lsb int
		if _, err := fmt.Sscanf(l+" "+r, "%d %d", &msb, &lsb); err == nil {
			return vast.Width{MSB: msb, LSB: lsb, Vector: true}
		}
	}
	return vast.Width{}
}

func normalizeInstance(node *vast.Node) *ir.Instance {
	inst := &ir.Instance{
		Name:    node.Name(),
		DefName: node.Attr("defName"),
		Loc:     node.Loc(),
	}
	if inst.DefName == "" {
		inst.DefName = node.Attr("submodname")
	}
	for _, port := range node.FindAll("port") {
		conn := ir.Connection{Port: port.Name()}
		if len(port.Children) > 0 {
			expr := &port.Children[0]
			conn.Expr = vast.ExprString(expr)
			conn.Net, conn.HasBits, conn.MSB, conn.LSB = connectionNet(expr)
		}
		inst.Connections = append(inst.Connections, conn)
	}
	return inst
}

// connectionNet reduces a connection expression to the parent net it touches,
// with an optional bit range for selects. Compound expressions keep only
// their text.
func connectionNet(expr *vast.Node) (net string, hasBits bool, msb, lsb int) {
	switch expr.Tag() {
	case "varref":
		return expr.Name(), false, 0, 0
	case "sel":
		if len(expr.Children) >= 3 && expr.Children[0].Tag() == "varref" {
			low, okL := vast.ConstInt(&expr.Children[1])
			width, okW := vast.ConstInt(&expr.Children[2])
			if okL && okW && width >= 1 {
				return expr.Children[0].Name(), true, int(low + width - 1), int(low)
			}
		}
	}
	return "", false, 0, 0
}

func normalizeBlock(module string, node *vast.Node, funcs routineTable, diags *ir.Diagnostics) *ir.Block {
	blk := &ir.Block{Loc: node.Loc()}
	switch node.Tag() {
	case "initial", "final":
		blk.Kind = ir.BlockInitial
	default:
		blk.Kind = ir.BlockAlways
	}

	if sentree := node.Find("sentree"); sentree != nil {
		blk.Trigger, blk.Sequential = normalizeSensitivity(sentree)
	}

	for i := range node.Children {
		child := &node.Children[i]
		switch child.Tag() {
		case "sentree", "senitem", "var", "decl", "param", "genvar":
			continue
		}
		blk.Body = append(blk.Body, inlineRoutines(child, funcs, diags, module))
	}
	return blk
}

// normalizeSensitivity renders the sensitivity list and decides whether the
// block is edge-triggered. Blocks whose sensitivity names a clock or reset
// still count as sequential even when the edge kind was simplified away.
func normalizeSensitivity(sentree *vast.Node) (trigger string, sequential bool) {
	var parts []string
	for _, item := range sentree.FindAll("senitem") {
		edge := strings.ToUpper(item.Attr("edgeType"))
		var ref string
		if v := item.Find("varref"); v != nil {
			ref = v.Name()
		}
		switch edge {
		case "POS", "POSEDGE":
			sequential = true
			parts = append(parts, "posedge "+ref)
		case "NEG", "NEGEDGE":
			sequential = true
			parts = append(parts, "negedge "+ref)
		default:
			if ref != "" {
				parts = append(parts, ref)
			}
		}
		lower := strings.ToLower(ref)
		if strings.Contains(lower, "clk") || strings.Contains(lower, "clock") ||
			strings.Contains(lower, "rst") || strings.Contains(lower, "reset") {
			sequential = true
		}
	}
	if len(parts) == 0 {
		return "*", sequential
	}
	return strings.Join(parts, " or "), sequential
}
