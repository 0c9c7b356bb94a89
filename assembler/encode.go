package assembler

import (
	"errors"
	"fmt"

	"github.com/Urethramancer/t8/ast"
	"github.com/Urethramancer/t8/isa"
)

// encoder validates one instruction node and packs it into dst, which is
// exactly the layout's width. at is the instruction's output offset.
type encoder func(asm *Assembler, n *ast.Node, at int, dst []byte) error

var encoders = map[isa.Layout]encoder{
	isa.LayoutImmNarrow:       immediateEncoder(isa.LayoutImmNarrow),
	isa.LayoutImmExtended:     immediateEncoder(isa.LayoutImmExtended),
	isa.LayoutImmWide:         immediateEncoder(isa.LayoutImmWide),
	isa.LayoutImmWideExtended: immediateEncoder(isa.LayoutImmWideExtended),
	isa.LayoutRegister:        registerEncoder(isa.LayoutRegister),
	isa.LayoutRegFunc:         registerEncoder(isa.LayoutRegFunc),
	isa.LayoutTwoReg:          encodeTwoReg,
}

// encode dispatches n to its layout's encoder. On the first pass an
// unresolved label is passed back as *unresolvedError; on replay it is fatal.
func (asm *Assembler) encode(n *ast.Node, at int, dst []byte, replay bool) error {
	enc, ok := encoders[n.Desc.Layout]
	if !ok {
		return contract(n, "unknown layout %s", n.Desc.Layout)
	}

	err := enc(asm, n, at, dst)
	var u *unresolvedError
	if replay && errors.As(err, &u) {
		return asm.diagnose(u.ref.Token, ErrLabelNotFound,
			fmt.Sprintf("label not found: %s", u.ref.Name()))
	}
	return err
}

// checkShape asserts the descriptor and operand count match layout l.
func checkShape(n *ast.Node, l isa.Layout) error {
	d := n.Desc
	if d.Layout != l {
		return contract(n, "%s encoder invoked for %s", l, d.Layout)
	}
	if d.Size != l.SizeClass() {
		return contract(n, "size class %d does not match %s", d.Size, l)
	}
	if len(n.Children) != l.Operands() {
		return contract(n, "%s takes %d operands, node has %d", l, l.Operands(), len(n.Children))
	}
	for _, c := range n.Children {
		if c == nil {
			return contract(n, "nil operand")
		}
	}
	return nil
}

func immediateEncoder(l isa.Layout) encoder {
	return func(asm *Assembler, n *ast.Node, at int, dst []byte) error {
		if err := checkShape(n, l); err != nil {
			return err
		}
		v, err := asm.evaluate(n.Children[0], at)
		if err != nil {
			return err
		}
		if !l.Fits(v) {
			lo, hi := l.ImmRange()
			return asm.diagnose(n.Children[0].Token, ErrOutOfRange,
				fmt.Sprintf("%s: immediate %d outside [%d, %d]", n.Name(), v, lo, hi))
		}
		f := isa.Fields{Opcode: n.Desc.Opcode, Imm: uint16(uint64(v) & (1<<l.ImmBits() - 1))}
		return isa.Pack(l, f, dst)
	}
}

func registerEncoder(l isa.Layout) encoder {
	return func(asm *Assembler, n *ast.Node, at int, dst []byte) error {
		if err := checkShape(n, l); err != nil {
			return err
		}
		r, err := asm.register(n.Children[0])
		if err != nil {
			return err
		}
		f := isa.Fields{Opcode: n.Desc.Opcode, Func: n.Desc.Func, Ra: r}
		return isa.Pack(l, f, dst)
	}
}

func encodeTwoReg(asm *Assembler, n *ast.Node, at int, dst []byte) error {
	if err := checkShape(n, isa.LayoutTwoReg); err != nil {
		return err
	}
	ra, err := asm.register(n.Children[0])
	if err != nil {
		return err
	}
	rb, err := asm.register(n.Children[1])
	if err != nil {
		return err
	}
	f := isa.Fields{Opcode: n.Desc.Opcode, Ra: ra, Rb: rb}
	return isa.Pack(isa.LayoutTwoReg, f, dst)
}

// register resolves a register operand through the register-name table.
func (asm *Assembler) register(n *ast.Node) (uint8, error) {
	switch n.Kind {
	case ast.Register, ast.Identifier:
		if r, ok := isa.Register(n.Name()); ok {
			return r, nil
		}
		return 0, asm.diagnose(n.Token, ErrNotRegister,
			fmt.Sprintf("%q is not a register", n.Name()))
	case ast.Immediate, ast.Operation:
		return 0, asm.diagnose(n.Token, ErrNotRegister, "expected register, got a value")
	}
	return 0, contract(n, "%s is not an operand", n.Kind)
}
