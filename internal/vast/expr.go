package vast

import (
	"sort"
	"strconv"
	"strings"
)

// binaryOps maps elaborator operator tags to their Verilog spelling.
var binaryOps = map[string]string{
	"add": "+", "sub": "-", "mul": "*", "div": "/", "mod": "%",
	"muls": "*", "divs": "/", "mods": "%",
	"shiftl": "<<", "shiftr": ">>", "shiftrs": ">>>",
	"shl": "<<", "shr": ">>", "ashr": ">>>",
	"sll": "<<", "srl": ">>", "sra": ">>>",
	"and": "&", "or": "|", "xor": "^", "xnor": "~^",
	"logand": "&&", "logor": "||", "land": "&&", "lor": "||",
	"lt": "<", "lts": "<", "lte": "<=", "ltes": "<=",
	"gt": ">", "gts": ">", "gte": ">=", "gtes": ">=",
	"eq": "==", "neq": "!=", "eqcase": "===", "neqcase": "!==",
}

// unaryOps maps unary operator tags to their prefix spelling.
var unaryOps = map[string]string{
	"neg": "-", "negate": "-", "not": "~", "lognot": "!", "lnot": "!",
	"redand": "&", "redor": "|", "redxor": "^",
}

// IsOperator reports whether the tag names a known expression operator.
func IsOperator(tag string) bool {
	if _, ok := binaryOps[tag]; ok {
		return true
	}
	if _, ok := unaryOps[tag]; ok {
		return true
	}
	switch tag {
	case "cond", "condbound", "concat", "replicate", "sel", "arraysel", "extend", "extends", "funcref":
		return true
	}
	return false
}

// ExprString reconstructs a Verilog-ish expression from an AST subtree.
// Unknown operator tags fall back to concatenating their children, so new
// node kinds degrade to something readable instead of failing.
func ExprString(n *Node) string {
	if n == nil {
		return ""
	}
	tag := n.Tag()

	switch tag {
	case "varref", "var":
		return n.Name()
	case "const":
		return n.Name()
	}

	if op, ok := binaryOps[tag]; ok && len(n.Children) >= 2 {
		return "(" + ExprString(&n.Children[0]) + " " + op + " " + ExprString(&n.Children[1]) + ")"
	}
	if op, ok := unaryOps[tag]; ok && len(n.Children) >= 1 {
		return op + "(" + ExprString(&n.Children[0]) + ")"
	}

	switch tag {
	case "cond", "condbound":
		if len(n.Children) >= 3 {
			return ExprString(&n.Children[0]) + " ? " + ExprString(&n.Children[1]) + " : " + ExprString(&n.Children[2])
		}
	case "concat":
		parts := make([]string, 0, len(n.Children))
		for i := range n.Children {
			parts = append(parts, ExprString(&n.Children[i]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case "replicate":
		if len(n.Children) >= 2 {
			return "{" + ExprString(&n.Children[1]) + "{" + ExprString(&n.Children[0]) + "}}"
		}
	case "sel":
		// sel(from, lsb, width): single-bit and part selects.
		if len(n.Children) >= 3 {
			from := ExprString(&n.Children[0])
			lsb, lsbOK := ConstInt(&n.Children[1])
			width, widthOK := ConstInt(&n.Children[2])
			if lsbOK && widthOK {
				if width == 1 {
					return from + "[" + strconv.Itoa(int(lsb)) + "]"
				}
				return from + "[" + strconv.Itoa(int(lsb+width-1)) + ":" + strconv.Itoa(int(lsb)) + "]"
			}
			return from + "[" + ExprString(&n.Children[1]) + "]"
		}
	case "arraysel":
		if len(n.Children) >= 2 {
			return ExprString(&n.Children[0]) + "[" + ExprString(&n.Children[1]) + "]"
		}
	case "extend", "extends":
		if len(n.Children) >= 1 {
			return ExprString(&n.Children[0])
		}
	case "funcref":
		args := make([]string, 0, len(n.Children))
		for i := range n.Children {
			args = append(args, ExprString(&n.Children[i]))
		}
		return n.Name() + "(" + strings.Join(args, ", ") + ")"
	}

	// Fallback: concatenate children.
	var b strings.Builder
	for i := range n.Children {
		b.WriteString(ExprString(&n.Children[i]))
	}
	return b.String()
}

// VarNames collects the distinct variable names referenced in an expression
// subtree, sorted for deterministic output.
func VarNames(n *Node) []string {
	if n == nil {
		return nil
	}
	seen := make(map[string]bool)
	var walk func(m *Node)
	walk = func(m *Node) {
		switch m.Tag() {
		case "varref", "var", "signal":
			if name := m.Name(); name != "" {
				seen[name] = true
			}
		}
		for i := range m.Children {
			walk(&m.Children[i])
		}
	}
	walk(n)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConstInt evaluates a const leaf to an integer. The elaborator spells
// constants as "<width>'<s><radix><digits>" (e.g. 32'sh4, 1'b0) or as plain
// decimal text.
func ConstInt(n *Node) (int64, bool) {
	if n == nil || n.Tag() != "const" {
		return 0, false
	}
	return ParseVerilogInt(n.Name())
}

// ParseVerilogInt parses a sized or plain Verilog integer literal.
func ParseVerilogInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i := strings.IndexByte(s, '\''); i >= 0 {
		rest := s[i+1:]
		rest = strings.TrimPrefix(rest, "s") // signed marker
		if rest == "" {
			return 0, false
		}
		base := 10
		switch rest[0] {
		case 'b', 'B':
			base, rest = 2, rest[1:]
		case 'o', 'O':
			base, rest = 8, rest[1:]
		case 'h', 'H':
			base, rest = 16, rest[1:]
		case 'd', 'D':
			base, rest = 10, rest[1:]
		}
		rest = strings.ReplaceAll(rest, "_", "")
		if strings.ContainsAny(rest, "xXzZ?") {
			return 0, false
		}
		v, err := strconv.ParseInt(rest, base, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
