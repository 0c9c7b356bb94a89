package assembler

import (
	"fmt"

	"github.com/Urethramancer/t8/ast"
)

// evaluate resolves an immediate operand for the instruction at offset at.
//
// Constants are returned as is. A label reference yields the label's offset
// minus at. Negations may nest; they are unwound iteratively and applied once
// the leaf is known. A label that is not defined yet returns an
// *unresolvedError.
func (asm *Assembler) evaluate(n *ast.Node, at int) (int64, error) {
	neg := false
	for n.Kind == ast.Operation {
		if n.Op != ast.OpNeg {
			return 0, contract(n, "unsupported operation %d", n.Op)
		}
		if len(n.Children) != 1 || n.Children[0] == nil {
			return 0, contract(n, "negation needs one operand, has %d", len(n.Children))
		}
		neg = !neg
		n = n.Children[0]
	}

	var v int64
	switch n.Kind {
	case ast.Immediate:
		v = n.Value

	case ast.Identifier:
		off, ok := asm.symbols.Lookup([]byte(n.Name()))
		if !ok {
			return 0, &unresolvedError{ref: n}
		}
		v = int64(off) - int64(at)

	case ast.Register:
		return 0, asm.diagnose(n.Token, ErrNotImmediate,
			fmt.Sprintf("register %s used where an immediate is required", n.Name()))

	default:
		return 0, contract(n, "%s is not a value", n.Kind)
	}

	if neg {
		v = -v
	}
	return v, nil
}
