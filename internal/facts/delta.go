package facts

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Modules = diffModuleRows(from.Modules, to.Modules)
	out.Ports = diffPortRows(from.Ports, to.Ports)
	out.Nets = diffNetRows(from.Nets, to.Nets)
	out.Instances = diffInstanceRows(from.Instances, to.Instances)
	out.Connections = diffConnectionRows(from.Connections, to.Connections)
	out.Buses = diffBusRows(from.Buses, to.Buses)
	out.Blocks = diffBlockRows(from.Blocks, to.Blocks)
	out.Fragments = diffFragmentRows(from.Fragments, to.Fragments)
	out.Hierarchy = diffHierarchyRows(from.Hierarchy, to.Hierarchy)
	out.Diagnostics = diffDiagnosticRows(from.Diagnostics, to.Diagnostics)

	return out
}

func emptyTables() Tables {
	return Tables{
		Modules:     []ModuleRow{},
		Ports:       []PortRow{},
		Nets:        []NetRow{},
		Instances:   []InstanceRow{},
		Connections: []ConnectionRow{},
		Buses:       []BusRow{},
		Blocks:      []BlockRow{},
		Fragments:   []FragmentRow{},
		Hierarchy:   []HierarchyRow{},
		Diagnostics: []DiagnosticRow{},
	}
}

func moduleKey(r ModuleRow) string {
	return r.Name + "|" + r.File + "|" + intKey(r.Line) + "|" + boolKey(r.Top) + "|" + intKey(r.NumPorts) + "|" + intKey(r.NumNets) + "|" + intKey(r.NumBlocks)
}

func portKey(r PortRow) string {
	return r.Module + "|" + r.Name + "|" + r.Direction + "|" + intKey(r.Width) + "|" + intKey(r.MSB) + "|" + intKey(r.LSB) + "|" + intKey(r.Line)
}

func netKey(r NetRow) string {
	return r.Module + "|" + r.Name + "|" + r.Direction + "|" + intKey(r.Width) + "|" + intKey(r.NumDrivers) + "|" + intKey(r.NumSinks) + "|" + intKey(r.Line)
}

func instanceKey(r InstanceRow) string {
	return r.Module + "|" + r.Name + "|" + r.DefName + "|" + boolKey(r.Resolved) + "|" + intKey(r.Line)
}

func connectionKey(r ConnectionRow) string {
	return r.Module + "|" + r.Instance + "|" + r.Port + "|" + r.Net + "|" + boolKey(r.Sliced) + "|" + intKey(r.MSB) + "|" + intKey(r.LSB)
}

func busKey(r BusRow) string {
	return r.Module + "|" + r.Base + "|" + intKey(r.Width) + "|" + intKey(r.MSB) + "|" + intKey(r.LSB) + "|" + boolKey(r.Partial) + "|" + intKey(r.NumNets)
}

func blockKey(r BlockRow) string {
	return r.Module + "|" + intKey(r.Index) + "|" + r.Kind + "|" + r.Label + "|" + r.Trigger + "|" + boolKey(r.Sequential) + "|" + r.FSMState + "|" + intKey(r.NumStates) + "|" + boolKey(r.HasDefault) + "|" + intKey(r.Line)
}

func fragmentKey(r FragmentRow) string {
	return r.Module + "|" + intKey(r.Block) + "|" + intKey(r.Depth) + "|" + r.Kind + "|" + r.Label + "|" + r.SSATarget + "|" + boolKey(r.Nonblocking) + "|" + boolKey(r.StateDef) + "|" + r.Folded + "|" + intKey(r.Line)
}

func hierarchyKey(r HierarchyRow) string {
	return r.Path + "|" + r.Module + "|" + r.Parent + "|" + boolKey(r.Unresolved) + "|" + boolKey(r.Truncated)
}

func diagnosticKey(r DiagnosticRow) string {
	return r.Severity + "|" + r.Code + "|" + r.Module + "|" + r.Path + "|" + r.Message + "|" + intKey(r.Line)
}

func diffModuleRows(from, to []ModuleRow) []ModuleRow { return diffRows(from, to, moduleKey) }

func diffPortRows(from, to []PortRow) []PortRow { return diffRows(from, to, portKey) }

func diffNetRows(from, to []NetRow) []NetRow { return diffRows(from, to, netKey) }

func diffInstanceRows(from, to []InstanceRow) []InstanceRow { return diffRows(from, to, instanceKey) }

func diffConnectionRows(from, to []ConnectionRow) []ConnectionRow {
	return diffRows(from, to, connectionKey)
}

func diffBusRows(from, to []BusRow) []BusRow { return diffRows(from, to, busKey) }

func diffBlockRows(from, to []BlockRow) []BlockRow { return diffRows(from, to, blockKey) }

func diffFragmentRows(from, to []FragmentRow) []FragmentRow { return diffRows(from, to, fragmentKey) }

func diffHierarchyRows(from, to []HierarchyRow) []HierarchyRow {
	return diffRows(from, to, hierarchyKey)
}

func diffDiagnosticRows(from, to []DiagnosticRow) []DiagnosticRow {
	return diffRows(from, to, diagnosticKey)
}

// ApplyDelta produces the snapshot that results from applying delta to prev.
// Rows in Removed are dropped by identity key, rows in Added are appended.
func ApplyDelta(prev Tables, delta Delta) Tables {
	out := emptyTables()

	out.Modules = patchRows(prev.Modules, delta.Removed.Modules, delta.Added.Modules, moduleKey)
	out.Ports = patchRows(prev.Ports, delta.Removed.Ports, delta.Added.Ports, portKey)
	out.Nets = patchRows(prev.Nets, delta.Removed.Nets, delta.Added.Nets, netKey)
	out.Instances = patchRows(prev.Instances, delta.Removed.Instances, delta.Added.Instances, instanceKey)
	out.Connections = patchRows(prev.Connections, delta.Removed.Connections, delta.Added.Connections, connectionKey)
	out.Buses = patchRows(prev.Buses, delta.Removed.Buses, delta.Added.Buses, busKey)
	out.Blocks = patchRows(prev.Blocks, delta.Removed.Blocks, delta.Added.Blocks, blockKey)
	out.Fragments = patchRows(prev.Fragments, delta.Removed.Fragments, delta.Added.Fragments, fragmentKey)
	out.Hierarchy = patchRows(prev.Hierarchy, delta.Removed.Hierarchy, delta.Added.Hierarchy, hierarchyKey)
	out.Diagnostics = patchRows(prev.Diagnostics, delta.Removed.Diagnostics, delta.Added.Diagnostics, diagnosticKey)

	return out
}

func patchRows[T any](prev, removed, added []T, key func(T) string) []T {
	gone := make(map[string]bool, len(removed))
	for _, row := range removed {
		gone[key(row)] = true
	}
	out := make([]T, 0, len(prev)+len(added))
	for _, row := range prev {
		if !gone[key(row)] {
			out = append(out, row)
		}
	}
	return append(out, added...)
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]T, len(from))
	for _, row := range from {
		fromSet[key(row)] = row
	}
	var diff []T
	for _, row := range to {
		rowKey := key(row)
		if _, ok := fromSet[rowKey]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func intKey(v int) string {
	if v == 0 {
		return "0"
	}
	return itoa(v)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
