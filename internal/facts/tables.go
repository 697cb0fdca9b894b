package facts

import (
	"sort"

	"github.com/verigraph/verigraph/internal/hierarchy"
	"github.com/verigraph/verigraph/internal/ir"
)

// Tables is the relational fact model exported for rule engines.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Modules     []ModuleRow     `json:"modules"`
	Ports       []PortRow       `json:"ports"`
	Nets        []NetRow        `json:"nets"`
	Instances   []InstanceRow   `json:"instances"`
	Connections []ConnectionRow `json:"connections"`
	Buses       []BusRow        `json:"buses"`
	Blocks      []BlockRow      `json:"blocks"`
	Fragments   []FragmentRow   `json:"fragments"`
	Hierarchy   []HierarchyRow  `json:"hierarchy"`
	Diagnostics []DiagnosticRow `json:"diagnostics"`
}

type ModuleRow struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Top       bool   `json:"top"`
	NumPorts  int    `json:"num_ports"`
	NumNets   int    `json:"num_nets"`
	NumBlocks int    `json:"num_blocks"`
}

type PortRow struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Width     int    `json:"width"`
	MSB       int    `json:"msb"`
	LSB       int    `json:"lsb"`
	Line      int    `json:"line"`
}

type NetRow struct {
	Module     string `json:"module"`
	Name       string `json:"name"`
	Direction  string `json:"direction"`
	Width      int    `json:"width"`
	MSB        int    `json:"msb"`
	LSB        int    `json:"lsb"`
	NumDrivers int    `json:"num_drivers"`
	NumSinks   int    `json:"num_sinks"`
	Line       int    `json:"line"`
}

type InstanceRow struct {
	Module   string `json:"module"`
	Name     string `json:"name"`
	DefName  string `json:"def_name"`
	Resolved bool   `json:"resolved"`
	Line     int    `json:"line"`
}

type ConnectionRow struct {
	Module   string `json:"module"`
	Instance string `json:"instance"`
	Port     string `json:"port"`
	Net      string `json:"net"`
	Sliced   bool   `json:"sliced"`
	MSB      int    `json:"msb"`
	LSB      int    `json:"lsb"`
}

type BusRow struct {
	Module  string `json:"module"`
	Base    string `json:"base"`
	Width   int    `json:"width"`
	MSB     int    `json:"msb"`
	LSB     int    `json:"lsb"`
	Partial bool   `json:"partial"`
	NumNets int    `json:"num_nets"`
}

type BlockRow struct {
	Module     string `json:"module"`
	Index      int    `json:"index"`
	Kind       string `json:"kind"`
	Label      string `json:"label"`
	Trigger    string `json:"trigger"`
	Sequential bool   `json:"is_sequential"`
	FSMState   string `json:"fsm_state_net"`
	NumStates  int    `json:"num_fsm_states"`
	HasDefault bool   `json:"fsm_has_default"`
	Line       int    `json:"line"`
}

type FragmentRow struct {
	Module      string `json:"module"`
	Block       int    `json:"block"`
	Depth       int    `json:"depth"`
	Kind        string `json:"kind"`
	Label       string `json:"label"`
	Target      string `json:"target"`
	SSATarget   string `json:"ssa_target"`
	Nonblocking bool   `json:"nonblocking"`
	StateDef    bool   `json:"state_def"`
	Folded      string `json:"folded"`
	Line        int    `json:"line"`
}

type HierarchyRow struct {
	Path       string `json:"path"`
	Module     string `json:"module"`
	Parent     string `json:"parent"`
	Unresolved bool   `json:"unresolved"`
	Truncated  bool   `json:"truncated"`
}

type DiagnosticRow struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Module   string `json:"module"`
	Path     string `json:"path"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
}

// BuildTables flattens the resolved design into the relational model.
// Modules are emitted in name order; rows within a module follow
// declaration order, so the output is stable across runs.
func BuildTables(design *ir.Design, res *hierarchy.Resolution, diags *ir.Diagnostics) Tables {
	tables := emptyTables()

	tops := make(map[string]bool)
	if res != nil {
		for _, root := range res.Roots {
			tops[root.ModuleName] = true
		}
	}

	for _, name := range design.Names() {
		mod, ok := design.Module(name)
		if !ok {
			continue
		}
		tables.Modules = append(tables.Modules, ModuleRow{
			Name:      mod.Name,
			File:      mod.Loc.File,
			Line:      mod.Loc.Line,
			Top:       tops[mod.Name],
			NumPorts:  len(mod.Ports),
			NumNets:   len(mod.Nets),
			NumBlocks: len(mod.Blocks),
		})

		for _, p := range mod.Ports {
			tables.Ports = append(tables.Ports, PortRow{
				Module:    mod.Name,
				Name:      p.Name,
				Direction: p.Dir.String(),
				Width:     p.Width,
				MSB:       p.MSB,
				LSB:       p.LSB,
				Line:      p.Loc.Line,
			})
		}

		for _, net := range mod.Nets {
			sinks := 0
			for _, ep := range net.Endpoints {
				if !ep.Driver {
					sinks++
				}
			}
			tables.Nets = append(tables.Nets, NetRow{
				Module:     mod.Name,
				Name:       net.Name,
				Direction:  net.Dir.String(),
				Width:      net.Width,
				MSB:        net.MSB,
				LSB:        net.LSB,
				NumDrivers: len(net.Drivers),
				NumSinks:   sinks,
				Line:       net.Loc.Line,
			})
		}

		for _, inst := range mod.Instances {
			tables.Instances = append(tables.Instances, InstanceRow{
				Module:   mod.Name,
				Name:     inst.Name,
				DefName:  inst.DefName,
				Resolved: inst.Resolved,
				Line:     inst.Loc.Line,
			})
			for _, conn := range inst.Connections {
				tables.Connections = append(tables.Connections, ConnectionRow{
					Module:   mod.Name,
					Instance: inst.Name,
					Port:     conn.Port,
					Net:      conn.Net,
					Sliced:   conn.HasBits,
					MSB:      conn.MSB,
					LSB:      conn.LSB,
				})
			}
		}

		for _, bus := range mod.Buses {
			tables.Buses = append(tables.Buses, BusRow{
				Module:  mod.Name,
				Base:    bus.Base,
				Width:   bus.Width,
				MSB:     bus.MSB,
				LSB:     bus.LSB,
				Partial: bus.Partial,
				NumNets: len(bus.Nets),
			})
		}

		for i, blk := range mod.Blocks {
			row := BlockRow{
				Module:     mod.Name,
				Index:      i,
				Kind:       blk.Kind.String(),
				Label:      blk.Label,
				Trigger:    blk.Trigger,
				Sequential: blk.Sequential,
				Line:       blk.Loc.Line,
			}
			if blk.FSM != nil {
				row.FSMState = blk.FSM.StateNet
				row.NumStates = len(blk.FSM.States)
				row.HasDefault = fsmHasDefault(blk)
			}
			tables.Blocks = append(tables.Blocks, row)
			appendFragments(&tables, mod.Name, i, 0, blk.Frags)
		}
	}

	if res != nil {
		for _, root := range res.Roots {
			appendHierarchy(&tables, "", root)
		}
	}

	if diags != nil {
		for _, d := range diags.Items() {
			tables.Diagnostics = append(tables.Diagnostics, DiagnosticRow{
				Severity: d.Severity.String(),
				Code:     d.Code,
				Module:   d.Module,
				Path:     d.Path,
				Message:  d.Message,
				Line:     d.Line,
			})
		}
	}

	sort.Slice(tables.Hierarchy, func(i, j int) bool {
		return tables.Hierarchy[i].Path < tables.Hierarchy[j].Path
	})

	return tables
}

func appendFragments(tables *Tables, module string, block, depth int, frags []*ir.Fragment) {
	for _, frag := range frags {
		tables.Fragments = append(tables.Fragments, FragmentRow{
			Module:      module,
			Block:       block,
			Depth:       depth,
			Kind:        frag.Kind.String(),
			Label:       frag.Label,
			Target:      frag.Target,
			SSATarget:   frag.SSATarget,
			Nonblocking: frag.Nonblocking,
			StateDef:    frag.StateDef,
			Folded:      frag.Folded,
			Line:        frag.Loc.Line,
		})
		for _, branch := range frag.Branches {
			appendFragments(tables, module, block, depth+1, branch)
		}
	}
}

func appendHierarchy(tables *Tables, parent string, node *ir.InstanceNode) {
	tables.Hierarchy = append(tables.Hierarchy, HierarchyRow{
		Path:       node.Path,
		Module:     node.ModuleName,
		Parent:     parent,
		Unresolved: node.Unresolved,
		Truncated:  node.Truncated,
	})
	for _, child := range node.Children {
		appendHierarchy(tables, node.Path, child)
	}
}

// fsmHasDefault reports whether any case fragment over the FSM state net
// carries a default arm.
func fsmHasDefault(blk *ir.Block) bool {
	found := false
	var walk func(frags []*ir.Fragment)
	walk = func(frags []*ir.Fragment) {
		for _, frag := range frags {
			if frag.Kind == ir.FragCase {
				for _, guard := range frag.Guards {
					if guard == "default" {
						found = true
					}
				}
			}
			for _, branch := range frag.Branches {
				walk(branch)
			}
		}
	}
	walk(blk.Frags)
	return found
}
