// Package disassembler turns T8 machine code back into assembly text that
// the parser accepts.
package disassembler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Urethramancer/t8/isa"
)

// Instruction is a single decoded instruction, or a run of bytes that did not
// decode, at a specific offset.
type Instruction struct {
	Offset   int
	Bytes    []byte
	Mnemonic string
	Operands string
	// Target is the absolute offset a relative branch lands on, or -1.
	Target int
	// Known is false for bytes rendered as data.
	Known bool
}

// Sweep decodes code front to back. Bytes that match no encoding, and a
// truncated final instruction, come back as unknown one-byte entries so
// decoding can resynchronise on the next byte.
func Sweep(code []byte) []Instruction {
	var list []Instruction
	for pc := 0; pc < len(code); {
		in, err := isa.Decode(code[pc:])
		if err != nil {
			list = append(list, Instruction{Offset: pc, Bytes: code[pc : pc+1], Target: -1})
			pc++
			continue
		}

		w := in.Desc.Width()
		entry := Instruction{
			Offset:   pc,
			Bytes:    code[pc : pc+w],
			Mnemonic: in.Mnemonic,
			Operands: operands(in),
			Target:   -1,
			Known:    true,
		}
		if isa.IsRelative(in.Mnemonic) {
			entry.Target = pc + int(in.Fields.SignedImm(in.Desc.Layout))
		}
		list = append(list, entry)
		pc += w
	}
	return list
}

// operands renders the operand text for an instruction. Relative
// immediates are shown signed, everything else as the raw field value.
func operands(in isa.Instruction) string {
	f := in.Fields
	l := in.Desc.Layout
	switch l {
	case isa.LayoutRegister, isa.LayoutRegFunc:
		return isa.RegisterName(f.Ra)
	case isa.LayoutTwoReg:
		return isa.RegisterName(f.Ra) + ", " + isa.RegisterName(f.Rb)
	}
	if isa.IsRelative(in.Mnemonic) {
		return fmt.Sprint(f.SignedImm(l))
	}
	return fmt.Sprint(f.Imm)
}

// ErrEmpty is returned for an empty input.
var ErrEmpty = errors.New("nothing to disassemble")

// Disassemble decodes code and returns it as assembly text. Branch targets
// that land on an instruction boundary, or on the end of the code, get
// labels and the branch operands refer to them by name.
func Disassemble(code []byte) (string, error) {
	if len(code) == 0 {
		return "", ErrEmpty
	}

	list := Sweep(code)
	labels := Labels(list, len(code))

	var out strings.Builder
	out.WriteString(".text\n")
	for i := 0; i < len(list); i++ {
		in := list[i]
		if name, ok := labels[in.Offset]; ok {
			fmt.Fprintf(&out, "%s:\n", name)
		}

		if !in.Known {
			// Collect the whole run so it prints as few lines as possible.
			j := i
			for j+1 < len(list) && !list[j+1].Known {
				if _, ok := labels[list[j+1].Offset]; ok {
					break
				}
				j++
			}
			out.WriteString(formatBytes(code[in.Offset : list[j].Offset+1]))
			i = j
			continue
		}

		ops := in.Operands
		if name, ok := labels[in.Target]; ok && in.Target >= 0 {
			ops = name
		}
		fmt.Fprintf(&out, "\t%-5s %s\n", in.Mnemonic, ops)
	}
	if name, ok := labels[len(code)]; ok {
		fmt.Fprintf(&out, "%s:\n", name)
	}

	return out.String(), nil
}

// formatBytes formats data as .byte directives, eight bytes per line.
func formatBytes(data []byte) string {
	const perLine = 8

	var sb strings.Builder
	for i := 0; i < len(data); i += perLine {
		end := min(i+perLine, len(data))
		sb.WriteString("\t.byte ")
		for j, b := range data[i:end] {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%02X", b)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
