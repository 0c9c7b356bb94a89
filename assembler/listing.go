package assembler

import "github.com/Urethramancer/t8/ast"

// Line is one instruction of a listing.
type Line struct {
	Offset int
	Bytes  []byte
	Node   *ast.Node
}

// Listing pairs each emitted instruction with its offset and final bytes.
// It is only meaningful after a successful Assemble.
func (asm *Assembler) Listing() []Line {
	lines := make([]Line, 0, len(asm.emitted))
	for _, e := range asm.emitted {
		w := e.node.Desc.Layout.Width()
		b := make([]byte, w)
		copy(b, asm.out.at(e.offset, w))
		lines = append(lines, Line{Offset: e.offset, Bytes: b, Node: e.node})
	}
	return lines
}
