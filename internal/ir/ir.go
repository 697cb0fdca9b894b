// Package ir holds the intermediate representation built from the external
// AST: module definitions, ports, nets, instances, behavioral blocks and the
// control-flow fragments extracted from them. Every entity is built once per
// run and never mutated after emission.
package ir

import (
	"sort"

	"github.com/verigraph/verigraph/internal/vast"
)

// Direction classifies a port or an inferred net role.
type Direction int

const (
	DirUnknown Direction = iota
	DirInternal
	DirInput
	DirOutput
	DirInout
	DirBidir // net observed as both driven and consumed
)

func (d Direction) String() string {
	switch d {
	case DirInternal:
		return "internal"
	case DirInput:
		return "in"
	case DirOutput:
		return "out"
	case DirInout:
		return "inout"
	case DirBidir:
		return "bidirectional"
	default:
		return "unknown"
	}
}

// Union widens d by another observation. The result is monotonic: once a
// direction has widened to bidirectional it can never narrow again.
func (d Direction) Union(o Direction) Direction {
	if d == o || o == DirUnknown {
		return d
	}
	if d == DirUnknown {
		return o
	}
	if d == DirBidir || o == DirBidir || d == DirInout || o == DirInout {
		return DirBidir
	}
	if d == DirInternal {
		return o
	}
	if o == DirInternal {
		return d
	}
	// in vs out
	return DirBidir
}

// Port is a declared module port.
type Port struct {
	Name  string
	Width int
	MSB   int
	LSB   int
	Dir   Direction
	Loc   vast.Loc
}

// Endpoint is one attachment of a net: either a port of the owning module
// (Instance == "") or a port of a child instance.
type Endpoint struct {
	Instance string
	Port     string
	// Driver is true when the endpoint drives the net (own input port,
	// child output port), false when it consumes it.
	Driver bool
	// MSB/LSB restrict the endpoint to a bit range of the net.
	// A nil range (HasBits false) attaches the whole net.
	HasBits bool
	MSB     int
	LSB     int
}

// Net is a wire or variable local to a module.
type Net struct {
	Name  string
	Width int
	MSB   int
	LSB   int
	// Dir is the inferred direction, widened monotonically by the
	// structural builder. Internal nets with no port attachment stay
	// DirInternal.
	Dir       Direction
	Endpoints []Endpoint
	// Drivers lists every driving endpoint in observation order.
	// Multiple drivers are recorded, never rejected: the visualization
	// needs to show all of them.
	Drivers []Endpoint
	Loc     vast.Loc
}

// Connection maps a child port name to the parent-scope expression wired to it.
type Connection struct {
	Port string
	// Expr is the connection expression as written. Net is the parent net
	// name when the expression is a plain reference (possibly bit-selected),
	// otherwise "".
	Expr    string
	Net     string
	HasBits bool
	MSB     int
	LSB     int
}

// Instance is one instantiation of a module inside another. The child is
// referenced by definition name and resolved lazily against the module table;
// it is never a live pointer, so cycle handling stays explicit.
type Instance struct {
	Name        string
	DefName     string
	Connections []Connection
	Resolved    bool
	Loc         vast.Loc
}

// BlockKind discriminates behavioral block flavors.
type BlockKind int

const (
	BlockAlways BlockKind = iota
	BlockInitial
	BlockAssign // continuous assignment
)

func (k BlockKind) String() string {
	switch k {
	case BlockAlways:
		return "always"
	case BlockInitial:
		return "initial"
	case BlockAssign:
		return "assign"
	default:
		return "unknown"
	}
}

// Block is a procedural or combinational block. Body keeps the raw AST
// statements; the behavioral extractor reduces them to Frags.
type Block struct {
	Kind       BlockKind
	Trigger    string // sensitivity list text, "" for initial/assign
	Sequential bool   // edge-triggered (or clock-named sensitivity)
	Label      string // classification label, set by the extractor
	Body       []*vast.Node
	Frags      []*Fragment
	FSM        *FSMHint
	Loc        vast.Loc
}

// FragKind discriminates control-flow fragment variants. Rendering switches
// exhaustively over this tag; there is no runtime type inspection.
type FragKind int

const (
	FragAssign FragKind = iota
	FragCond
	FragCase
	FragLoop
	FragOpaque // unsupported construct, rendered as an opaque label
)

func (k FragKind) String() string {
	switch k {
	case FragAssign:
		return "assign"
	case FragCond:
		return "cond"
	case FragCase:
		return "case"
	case FragLoop:
		return "loop"
	case FragOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Fragment is one labeled control-flow element of a block.
type Fragment struct {
	Kind  FragKind
	Label string
	// Assignment fields.
	Target      string // LHS net name
	SSATarget   string // SSA-versioned DEF name
	Uses        []string
	Nonblocking bool
	// Folded holds the pre-evaluated literal when the RHS was a
	// compile-time constant; the as-written Label is always retained.
	Folded string
	// Branch fields (cond/case/loop). Guards[i] labels Branches[i].
	Guards   []string
	Branches [][]*Fragment
	// StateDef marks an assignment of a literal to an FSM state net.
	StateDef bool
	Loc      vast.Loc
}

// FSMHint is a derived annotation on a case-dispatch block whose selector is
// a single state-holding net and whose labels are named constants.
type FSMHint struct {
	StateNet string
	States   []FSMState
}

// FSMState is one detected state with its guard condition.
type FSMState struct {
	Name  string
	Guard string
}

// Module is a module definition. Slices preserve declaration order so the
// emitter can produce byte-identical output across runs.
type Module struct {
	Name      string
	Top       bool
	Ports     []Port
	Nets      []*Net
	Blocks    []*Block
	Instances []*Instance
	Buses     []*BusEdge
	Loc       vast.Loc
}

// Net returns the named net, or nil.
func (m *Module) Net(name string) *Net {
	for _, n := range m.Nets {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Port returns the named port and true if declared.
func (m *Module) Port(name string) (Port, bool) {
	for _, p := range m.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// BusEdge groups nets under a common base name with a contiguous bit range.
// A net with no siblings still yields a width-1 edge so that rendering is
// uniform across scalars and vectors.
type BusEdge struct {
	Base    string
	MSB     int
	LSB     int
	Width   int
	Nets    []string // constituent per-bit names, ascending index
	Partial bool     // unconnected remainder of a declared vector
}

// Design is the whole-run module table. Modules are unique per name and
// looked up by index, never by pointer from instances.
type Design struct {
	Modules []*Module
	byName  map[string]int
}

// NewDesign creates an empty design.
func NewDesign() *Design {
	return &Design{byName: make(map[string]int)}
}

// Add appends a module definition. A redefinition of an existing name wins;
// elaborators emit one definition per name so this is defensive bookkeeping.
func (d *Design) Add(m *Module) {
	if i, ok := d.byName[m.Name]; ok {
		d.Modules[i] = m
		return
	}
	d.byName[m.Name] = len(d.Modules)
	d.Modules = append(d.Modules, m)
}

// Module returns the named definition and true if present.
func (d *Design) Module(name string) (*Module, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return d.Modules[i], true
}

// Names returns all module names sorted.
func (d *Design) Names() []string {
	names := make([]string, 0, len(d.Modules))
	for _, m := range d.Modules {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// InstanceNode is one node of the resolved instance tree. Each node carries
// the full hierarchical path so the emitter can derive stable drill-down
// identifiers independent of process lifetime.
type InstanceNode struct {
	Path       string // e.g. "top.u_ctrl"
	ModuleName string
	Instance   *Instance // nil at a root
	Children   []*InstanceNode
	Unresolved bool
	Truncated  bool // subtree cut by cycle detection
}
