package ir

import (
	"fmt"
	"strings"

	"github.com/verigraph/verigraph/internal/vast"
)

// MalformedASTError reports a module whose required structure (name, port
// list) is missing. Fatal for that module, non-fatal for the build.
type MalformedASTError struct {
	Module  string
	Missing string
	Loc     vast.Loc
}

func (e *MalformedASTError) Error() string {
	mod := e.Module
	if mod == "" {
		mod = "<anonymous>"
	}
	return fmt.Sprintf("malformed AST in module %s: missing %s", mod, e.Missing)
}

// HierarchyCycleError reports an instantiation cycle. The cyclic subtree is
// truncated, not fatal.
type HierarchyCycleError struct {
	Path []string
}

func (e *HierarchyCycleError) Error() string {
	return fmt.Sprintf("instantiation cycle: %s", strings.Join(e.Path, "."))
}

// UnresolvedReferenceError reports an instance whose definition is absent
// from the normalized set. The instance is kept and rendered as unresolved.
type UnresolvedReferenceError struct {
	Path    string
	DefName string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved module reference %q at %s", e.DefName, e.Path)
}

// UnsupportedConstructError reports an AST construct outside the supported
// subset. The enclosing block is still emitted with an opaque fragment.
type UnsupportedConstructError struct {
	Module    string
	Construct string
	Loc       vast.Loc
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct %q in module %s", e.Construct, e.Module)
}

// BusGroupingConflictError reports a base name whose nets could not be
// aggregated; the conflicting range falls back to per-bit edges.
type BusGroupingConflictError struct {
	Module string
	Base   string
	Reason string
}

func (e *BusGroupingConflictError) Error() string {
	return fmt.Sprintf("bus grouping conflict on %s.%s: %s", e.Module, e.Base, e.Reason)
}
