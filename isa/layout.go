// Package isa describes the T8 instruction set: its seven bit layouts, the
// mnemonic and register tables, and the raw bit packing for each layout.
package isa

import "fmt"

// Layout is the fixed bit arrangement used to encode one instruction.
type Layout uint8

const (
	// LayoutInvalid is the zero value and never encodes.
	LayoutInvalid Layout = iota
	// LayoutImmNarrow is a 1-byte layout: 3-bit immediate, 5-bit opcode.
	LayoutImmNarrow
	// LayoutImmExtended is a 1-byte layout: 4-bit immediate, 4-bit opcode.
	LayoutImmExtended
	// LayoutRegister is a 1-byte layout: 3-bit register, 5-bit opcode.
	LayoutRegister
	// LayoutImmWide is a 2-byte layout: 8-bit immediate, 5-bit opcode.
	LayoutImmWide
	// LayoutImmWideExtended is a 2-byte layout: 12-bit immediate, 4-bit opcode.
	LayoutImmWideExtended
	// LayoutRegFunc is a 2-byte layout: register, 4-bit function code, 5-bit opcode.
	LayoutRegFunc
	// LayoutTwoReg is a 2-byte layout: two registers, 5-bit opcode.
	LayoutTwoReg
)

// MaxWidth is the widest encoding in bytes.
const MaxWidth = 2

var layoutNames = [...]string{
	LayoutInvalid:         "invalid",
	LayoutImmNarrow:       "imm-narrow",
	LayoutImmExtended:     "imm-extended",
	LayoutRegister:        "register",
	LayoutImmWide:         "imm-wide",
	LayoutImmWideExtended: "imm-wide-extended",
	LayoutRegFunc:         "register-function",
	LayoutTwoReg:          "two-register",
}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return fmt.Sprintf("layout(%d)", uint8(l))
}

// Valid reports whether l names one of the seven layouts.
func (l Layout) Valid() bool {
	return l > LayoutInvalid && l <= LayoutTwoReg
}

// Width returns the encoded size in bytes, or 0 for an invalid layout.
func (l Layout) Width() int {
	switch l {
	case LayoutImmNarrow, LayoutImmExtended, LayoutRegister:
		return 1
	case LayoutImmWide, LayoutImmWideExtended, LayoutRegFunc, LayoutTwoReg:
		return 2
	}
	return 0
}

// SizeClass returns the descriptor size class: 0 for 1 byte, 1 for 2 bytes.
func (l Layout) SizeClass() uint8 {
	return uint8(l.Width() - 1)
}

// Operands returns how many operand children an instruction of this layout has.
func (l Layout) Operands() int {
	switch l {
	case LayoutTwoReg:
		return 2
	case LayoutInvalid:
		return 0
	}
	return 1
}

// ImmBits returns the width of the immediate field, or 0 if the layout has none.
func (l Layout) ImmBits() uint {
	switch l {
	case LayoutImmNarrow:
		return 3
	case LayoutImmExtended:
		return 4
	case LayoutImmWide:
		return 8
	case LayoutImmWideExtended:
		return 12
	}
	return 0
}

// HasImmediate reports whether the layout's operand is an immediate value.
func (l Layout) HasImmediate() bool {
	return l.ImmBits() > 0
}

// ImmRange returns the smallest and largest values accepted for the
// immediate field. A field of n bits takes any value that fits in n bits as
// either a signed or an unsigned number.
func (l Layout) ImmRange() (min, max int64) {
	n := l.ImmBits()
	if n == 0 {
		return 0, 0
	}
	return -(int64(1) << (n - 1)), (int64(1) << n) - 1
}

// Fits reports whether v can be stored in the layout's immediate field.
func (l Layout) Fits(v int64) bool {
	if !l.HasImmediate() {
		return false
	}
	lo, hi := l.ImmRange()
	return v >= lo && v <= hi
}

// Descriptor is the fixed-size record attached to every instruction node.
type Descriptor struct {
	// Opcode holds 4 or 5 significant bits depending on the layout.
	Opcode uint8
	// Func is the function code for LayoutRegFunc.
	Func uint8
	// Size is 0 for 1-byte and 1 for 2-byte instructions.
	Size uint8
	// Layout selects the encoder.
	Layout Layout
}

// Width returns the byte width implied by the size class.
func (d Descriptor) Width() int {
	return int(d.Size) + 1
}
