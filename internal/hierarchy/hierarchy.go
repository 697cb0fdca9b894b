// Package hierarchy links instances to their definitions across the module
// table, builds the instance tree rooted at each requested top module, and
// detects instantiation cycles. Resolution never follows live pointers: an
// instance names its definition and the traversal carries an explicit
// visited-path set, which keeps cycle detection and partial-result reporting
// straightforward.
package hierarchy

import (
	"fmt"
	"sort"

	"github.com/verigraph/verigraph/internal/ir"
)

// Resolution is the resolver's output: the instance tree plus the reports
// the caller uses to decide whether to re-run with more source files.
type Resolution struct {
	Roots      []*ir.InstanceNode
	Unresolved []*ir.UnresolvedReferenceError
	Cycles     []*ir.HierarchyCycleError
}

// Resolve binds every instance to a module definition by exact name match
// and expands the tree from the requested top module. An empty top selects
// every module that is never instantiated by another (multi-top designs).
// Requesting an unknown top is the single fatal condition of a build.
func Resolve(design *ir.Design, top string, diags *ir.Diagnostics) (*Resolution, error) {
	res := &Resolution{}

	roots, err := rootModules(design, top)
	if err != nil {
		return nil, err
	}

	for _, name := range roots {
		mod, _ := design.Module(name)
		node := &ir.InstanceNode{Path: name, ModuleName: name}
		visited := map[string]bool{name: true}
		expand(design, mod, node, visited, []string{name}, res, diags)
		res.Roots = append(res.Roots, node)
	}

	sortReports(res)
	return res, nil
}

// rootModules picks the tree roots. With an explicit top it must exist; with
// none, modules not instantiated anywhere are roots, falling back to all
// modules when everything is instantiated (degenerate fully-cyclic designs).
func rootModules(design *ir.Design, top string) ([]string, error) {
	if top != "" {
		if _, ok := design.Module(top); !ok {
			return nil, fmt.Errorf("top module %q not found in design", top)
		}
		return []string{top}, nil
	}

	instantiated := make(map[string]bool)
	for _, mod := range design.Modules {
		for _, inst := range mod.Instances {
			instantiated[inst.DefName] = true
		}
	}

	var roots []string
	for _, mod := range design.Modules {
		if !instantiated[mod.Name] {
			roots = append(roots, mod.Name)
		}
	}
	if len(roots) == 0 {
		for _, mod := range design.Modules {
			roots = append(roots, mod.Name)
		}
	}
	return roots, nil
}

// expand performs the depth-first traversal. The visited set holds the
// module names on the current root-to-node path (chain keeps their order),
// so a cycle is found within a bound equal to the number of distinct
// definitions.
func expand(design *ir.Design, mod *ir.Module, node *ir.InstanceNode, visited map[string]bool, chain []string, res *Resolution, diags *ir.Diagnostics) {
	for _, inst := range mod.Instances {
		childPath := node.Path + "." + inst.Name
		child := &ir.InstanceNode{
			Path:       childPath,
			ModuleName: inst.DefName,
			Instance:   inst,
		}
		node.Children = append(node.Children, child)

		def, ok := design.Module(inst.DefName)
		if !ok {
			inst.Resolved = false
			child.Unresolved = true
			unres := &ir.UnresolvedReferenceError{Path: childPath, DefName: inst.DefName}
			res.Unresolved = append(res.Unresolved, unres)
			diags.Add(ir.Diagnostic{
				Severity: ir.SevWarning,
				Code:     "unresolved-reference",
				Module:   mod.Name,
				Path:     childPath,
				Message:  unres.Error(),
			})
			continue
		}
		inst.Resolved = true
		checkConnections(mod.Name, inst, def, diags)

		if visited[inst.DefName] {
			child.Truncated = true
			path := append(append([]string(nil), chain...), inst.DefName)
			cycle := &ir.HierarchyCycleError{Path: path}
			res.Cycles = append(res.Cycles, cycle)
			diags.Add(ir.Diagnostic{
				Severity: ir.SevWarning,
				Code:     "hierarchy-cycle",
				Module:   mod.Name,
				Path:     childPath,
				Message:  cycle.Error(),
			})
			continue
		}

		visited[inst.DefName] = true
		expand(design, def, child, visited, append(chain, inst.DefName), res, diags)
		delete(visited, inst.DefName)
	}
}

// checkConnections verifies that a resolved instance only wires ports that
// exist on its definition. Unknown ports keep their raw text mapping and are
// flagged so the emitter can mark them.
func checkConnections(parent string, inst *ir.Instance, def *ir.Module, diags *ir.Diagnostics) {
	for _, conn := range inst.Connections {
		if _, ok := def.Port(conn.Port); !ok {
			diags.Warnf("unknown-port", parent,
				"instance %s connects port %q absent from module %s",
				inst.Name, conn.Port, def.Name)
		}
	}
}

func sortReports(res *Resolution) {
	sort.Slice(res.Unresolved, func(i, j int) bool {
		if res.Unresolved[i].Path != res.Unresolved[j].Path {
			return res.Unresolved[i].Path < res.Unresolved[j].Path
		}
		return res.Unresolved[i].DefName < res.Unresolved[j].DefName
	})
	sort.Slice(res.Cycles, func(i, j int) bool {
		return fmt.Sprint(res.Cycles[i].Path) < fmt.Sprint(res.Cycles[j].Path)
	})
}
