package assembler

import "github.com/Urethramancer/t8/ast"

// site is an instruction and the offset it was emitted at. The fixup queue
// holds the sites whose operand named a label not yet defined.
type site struct {
	node   *ast.Node
	offset int
}

// replay re-encodes every deferred instruction in the order it was deferred.
// Widths are fixed per layout, so nothing moves; the placeholder bytes are
// overwritten in place.
func (asm *Assembler) replay() error {
	for _, f := range asm.fixups {
		w := f.node.Desc.Layout.Width()
		if err := asm.encode(f.node, f.offset, asm.out.at(f.offset, w), true); err != nil {
			return err
		}
		asm.log.Debug("fixup resolved", "instruction", f.node.Name(), "offset", f.offset)
	}
	asm.fixups = nil
	return nil
}
