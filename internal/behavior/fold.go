package behavior

import (
	"strconv"

	"github.com/verigraph/verigraph/internal/vast"
)

// fold pre-evaluates a compile-time-constant expression: every operand must
// be a literal. The folded literal is stored alongside the original text so
// the renderer can offer both the as-written and the as-synthesized view.
func fold(expr *vast.Node) (string, bool) {
	v, ok := eval(expr)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(v, 10), true
}

func eval(n *vast.Node) (int64, bool) {
	if n == nil {
		return 0, false
	}
	switch tag := n.Tag(); tag {
	case "const":
		return vast.ConstInt(n)
	case "varref", "var":
		return 0, false
	case "extend", "extends":
		if len(n.Children) == 1 {
			return eval(&n.Children[0])
		}
		return 0, false
	case "cond", "condbound":
		if len(n.Children) >= 3 {
			c, ok := eval(&n.Children[0])
			if !ok {
				return 0, false
			}
			if c != 0 {
				return eval(&n.Children[1])
			}
			return eval(&n.Children[2])
		}
		return 0, false
	case "neg", "negate":
		v, ok := evalOnly(n)
		return -v, ok
	case "not":
		v, ok := evalOnly(n)
		return ^v, ok
	case "lognot", "lnot":
		v, ok := evalOnly(n)
		return b2i(v == 0), ok
	}

	if len(n.Children) < 2 {
		return 0, false
	}
	l, okL := eval(&n.Children[0])
	r, okR := eval(&n.Children[1])
	if !okL || !okR {
		return 0, false
	}

	switch n.Tag() {
	case "add":
		return l + r, true
	case "sub":
		return l - r, true
	case "mul", "muls":
		return l * r, true
	case "div", "divs":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case "mod", "mods":
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case "and":
		return l & r, true
	case "or":
		return l | r, true
	case "xor":
		return l ^ r, true
	case "xnor":
		return ^(l ^ r), true
	case "shiftl", "shl", "sll":
		return shift(l, r, false), true
	case "shiftr", "shr", "srl", "shiftrs", "ashr", "sra":
		return shift(l, r, true), true
	case "logand", "land":
		return b2i(l != 0 && r != 0), true
	case "logor", "lor":
		return b2i(l != 0 || r != 0), true
	case "lt", "lts":
		return b2i(l < r), true
	case "lte", "ltes":
		return b2i(l <= r), true
	case "gt", "gts":
		return b2i(l > r), true
	case "gte", "gtes":
		return b2i(l >= r), true
	case "eq", "eqcase":
		return b2i(l == r), true
	case "neq", "neqcase":
		return b2i(l != r), true
	}
	return 0, false
}

func evalOnly(n *vast.Node) (int64, bool) {
	if len(n.Children) != 1 {
		return 0, false
	}
	return eval(&n.Children[0])
}

func shift(v, by int64, right bool) int64 {
	if by < 0 || by > 63 {
		return 0
	}
	if right {
		return v >> uint(by)
	}
	return v << uint(by)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
