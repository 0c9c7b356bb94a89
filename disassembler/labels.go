package disassembler

import "fmt"

// LabelType defines the context of a label.
type LabelType int

const (
	// JumpTarget is the target of a branch or jmp.
	JumpTarget LabelType = iota
	// SubroutineEntry is the target of a call.
	SubroutineEntry
)

// Labels names every branch target that starts an instruction or sits at
// end, the offset just past the code. A call target wins over a plain jump
// target at the same offset.
func Labels(list []Instruction, end int) map[int]string {
	starts := make(map[int]bool, len(list)+1)
	for _, in := range list {
		if in.Known {
			starts[in.Offset] = true
		}
	}
	starts[end] = true

	types := make(map[int]LabelType)
	for _, in := range list {
		if in.Target < 0 || !starts[in.Target] {
			continue
		}
		if in.Mnemonic == "call" {
			types[in.Target] = SubroutineEntry
		} else if _, exists := types[in.Target]; !exists {
			types[in.Target] = JumpTarget
		}
	}

	names := make(map[int]string, len(types))
	for off, t := range types {
		names[off] = labelName(off, t)
	}
	return names
}

func labelName(off int, t LabelType) string {
	prefix := "loc_"
	if t == SubroutineEntry {
		prefix = "sub_"
	}
	return fmt.Sprintf("%s%04X", prefix, off)
}
