package facts

import "strings"

// FilterTablesByModules returns a new Tables object containing only rows
// belonging to the named modules. Hierarchy rows are kept when the node's
// module matches, diagnostics when the diagnostic names a matching module.
func FilterTablesByModules(tables Tables, modules map[string]bool) Tables {
	if len(modules) == 0 {
		return emptyTables()
	}
	out := emptyTables()

	for _, row := range tables.Modules {
		if modules[row.Name] {
			out.Modules = append(out.Modules, row)
		}
	}
	for _, row := range tables.Ports {
		if modules[row.Module] {
			out.Ports = append(out.Ports, row)
		}
	}
	for _, row := range tables.Nets {
		if modules[row.Module] {
			out.Nets = append(out.Nets, row)
		}
	}
	for _, row := range tables.Instances {
		if modules[row.Module] {
			out.Instances = append(out.Instances, row)
		}
	}
	for _, row := range tables.Connections {
		if modules[row.Module] {
			out.Connections = append(out.Connections, row)
		}
	}
	for _, row := range tables.Buses {
		if modules[row.Module] {
			out.Buses = append(out.Buses, row)
		}
	}
	for _, row := range tables.Blocks {
		if modules[row.Module] {
			out.Blocks = append(out.Blocks, row)
		}
	}
	for _, row := range tables.Fragments {
		if modules[row.Module] {
			out.Fragments = append(out.Fragments, row)
		}
	}
	for _, row := range tables.Hierarchy {
		if modules[row.Module] {
			out.Hierarchy = append(out.Hierarchy, row)
		}
	}
	for _, row := range tables.Diagnostics {
		if modules[row.Module] {
			out.Diagnostics = append(out.Diagnostics, row)
		}
	}

	return out
}

// FilterTablesByPath keeps only hierarchy rows at or below the given
// instance path, plus the module-scoped rows of the modules that appear
// there. Useful for scoping rule queries to one subtree.
func FilterTablesByPath(tables Tables, path string) Tables {
	modules := make(map[string]bool)
	for _, row := range tables.Hierarchy {
		if row.Path == path || strings.HasPrefix(row.Path, path+".") {
			modules[row.Module] = true
		}
	}
	return FilterTablesByModules(tables, modules)
}

// FilterDeltaByModules returns a new Delta containing only rows for the
// specified modules.
func FilterDeltaByModules(delta Delta, modules map[string]bool) Delta {
	if len(modules) == 0 {
		return Delta{
			Added:   emptyTables(),
			Removed: emptyTables(),
		}
	}
	return Delta{
		Added:   FilterTablesByModules(delta.Added, modules),
		Removed: FilterTablesByModules(delta.Removed, modules),
	}
}
