// Package vast decodes the XML abstract syntax tree emitted by an external
// Verilog elaborator (verilator --xml-only). The format is treated as a
// fixed, versioned wire format: everything is decoded into a generic element
// tree so that node kinds this tool does not know about survive decoding and
// can be skipped downstream instead of failing the whole parse.
package vast

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Node is a single element of the external AST. Tag names and attributes are
// kept verbatim; interpretation happens in the normalizer.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []Node     `xml:",any"`
}

// Tag returns the lower-cased element name.
func (n *Node) Tag() string {
	return strings.ToLower(n.XMLName.Local)
}

// Attr returns the named attribute value, or "" if absent.
func (n *Node) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Name returns the name attribute, the most common identifier carrier.
func (n *Node) Name() string {
	return n.Attr("name")
}

// Loc is a source location carried on AST elements.
// The elaborator encodes it as "fileid,line,col,endline,endcol".
type Loc struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Loc parses the element's loc attribute. Elements without one return a zero Loc.
func (n *Node) Loc() Loc {
	raw := n.Attr("loc")
	if raw == "" {
		return Loc{}
	}
	parts := strings.Split(raw, ",")
	loc := Loc{File: parts[0]}
	if len(parts) > 1 {
		loc.Line, _ = strconv.Atoi(parts[1])
	}
	return loc
}

// Find returns the first direct child with the given tag, or nil.
func (n *Node) Find(tag string) *Node {
	for i := range n.Children {
		if n.Children[i].Tag() == tag {
			return &n.Children[i]
		}
	}
	return nil
}

// FindAll returns all direct children with the given tag.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	for i := range n.Children {
		if n.Children[i].Tag() == tag {
			out = append(out, &n.Children[i])
		}
	}
	return out
}

// Descendants appends every node in the subtree (excluding n itself) with the
// given tag, in document order.
func (n *Node) Descendants(tag string) []*Node {
	var out []*Node
	var walk func(m *Node)
	walk = func(m *Node) {
		for i := range m.Children {
			c := &m.Children[i]
			if c.Tag() == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// Clone returns a deep copy of the subtree. The normalizer clones function
// and task bodies before substituting call-site arguments into them.
func (n *Node) Clone() *Node {
	cp := Node{XMLName: n.XMLName}
	cp.Attrs = append([]xml.Attr(nil), n.Attrs...)
	cp.Children = make([]Node, len(n.Children))
	for i := range n.Children {
		cp.Children[i] = *n.Children[i].Clone()
	}
	return &cp
}

// Width is a declared bit range from the type table.
type Width struct {
	MSB    int
	LSB    int
	Vector bool
}

// Bits returns the number of bits covered by the range.
func (w Width) Bits() int {
	if !w.Vector {
		return 1
	}
	if w.MSB >= w.LSB {
		return w.MSB - w.LSB + 1
	}
	return w.LSB - w.MSB + 1
}

// Document is a decoded AST file.
type Document struct {
	Root Node
}

// Decode reads one XML AST document.
func Decode(r io.Reader) (*Document, error) {
	doc := &Document{}
	dec := xml.NewDecoder(r)
	// Elaborator output is plain ASCII but may declare other charsets.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&doc.Root); err != nil {
		return nil, fmt.Errorf("decoding AST XML: %w", err)
	}
	return doc, nil
}

// Netlist returns the netlist element, which holds all module definitions.
func (d *Document) Netlist() *Node {
	if d.Root.Tag() == "netlist" {
		return &d.Root
	}
	return d.Root.Find("netlist")
}

// Modules returns all module definitions in declaration order.
func (d *Document) Modules() []*Node {
	nl := d.Netlist()
	if nl == nil {
		return nil
	}
	return nl.FindAll("module")
}

// TypeTable maps dtype_id values to declared widths. Entries without
// left/right attributes are scalar (1 bit).
func (d *Document) TypeTable() map[string]Width {
	table := make(map[string]Width)
	nl := d.Netlist()
	if nl == nil {
		return table
	}
	tt := nl.Find("typetable")
	if tt == nil {
		return table
	}
	for i := range tt.Children {
		dt := &tt.Children[i]
		id := dt.Attr("id")
		if id == "" {
			continue
		}
		w := Width{}
		if l, r := dt.Attr("left"), dt.Attr("right"); l != "" && r != "" {
			msb, errL := strconv.Atoi(l)
			lsb, errR := strconv.Atoi(r)
			if errL == nil && errR == nil {
				w = Width{MSB: msb, LSB: lsb, Vector: true}
			}
		}
		table[id] = w
	}
	return table
}
