package isa

import (
	"sort"
	"strings"
)

// Opcodes for the register-only layout.
const (
	OpPUSH = 0x00 // PUSH
	OpPOP  = 0x01 // POP
	OpJR   = 0x02 // JR
	OpNOT  = 0x03 // NOT
	OpINC  = 0x04 // INC
	OpDEC  = 0x05 // DEC
	OpCLR  = 0x06 // CLR
)

// Opcodes for the narrow immediate layout.
const (
	OpSHLI = 0x10 // SHLI
	OpSHRI = 0x11 // SHRI
	OpTRAP = 0x12 // TRAP
	OpBRS  = 0x13 // BRS (short relative branch)
)

// Opcodes for the 4-bit opcode layouts. Bit 3 is always set.
const (
	OpLDI  = 0x8 // LDI
	OpADDI = 0x9 // ADDI
	OpBZ   = 0xA // BZ
	OpBNZ  = 0xB // BNZ
	OpJMP  = 0xC // JMP
	OpCALL = 0xD // CALL
	OpLDW  = 0xE // LDW
)

// Opcodes for the two-byte layouts with 5-bit opcodes.
const (
	OpBR   = 0x00 // BR
	OpBEQ  = 0x01 // BEQ
	OpBNE  = 0x02 // BNE
	OpLDB  = 0x03 // LDB
	OpCMPI = 0x04 // CMPI
	OpORI  = 0x05 // ORI

	OpALU = 0x08 // NEG, SWAP, SEXT, ZEXT
	OpIO  = 0x09 // IN, OUT

	OpMOV = 0x10 // MOV
	OpADD = 0x11 // ADD
	OpSUB = 0x12 // SUB
	OpAND = 0x13 // AND
	OpOR  = 0x14 // OR
	OpXOR = 0x15 // XOR
	OpCMP = 0x16 // CMP
	OpLD  = 0x17 // LD
	OpST  = 0x18 // ST
)

// Function codes under OpALU and OpIO.
const (
	FnNEG  = 0
	FnSWAP = 1
	FnSEXT = 2
	FnZEXT = 3

	FnIN  = 0
	FnOUT = 1
)

func desc(l Layout, op, fn uint8) Descriptor {
	return Descriptor{Opcode: op, Func: fn, Size: l.SizeClass(), Layout: l}
}

// Instructions maps lower-case mnemonics to their descriptors.
var Instructions = map[string]Descriptor{
	"push": desc(LayoutRegister, OpPUSH, 0),
	"pop":  desc(LayoutRegister, OpPOP, 0),
	"jr":   desc(LayoutRegister, OpJR, 0),
	"not":  desc(LayoutRegister, OpNOT, 0),
	"inc":  desc(LayoutRegister, OpINC, 0),
	"dec":  desc(LayoutRegister, OpDEC, 0),
	"clr":  desc(LayoutRegister, OpCLR, 0),

	"shli": desc(LayoutImmNarrow, OpSHLI, 0),
	"shri": desc(LayoutImmNarrow, OpSHRI, 0),
	"trap": desc(LayoutImmNarrow, OpTRAP, 0),
	"brs":  desc(LayoutImmNarrow, OpBRS, 0),

	"ldi":  desc(LayoutImmExtended, OpLDI, 0),
	"addi": desc(LayoutImmExtended, OpADDI, 0),
	"bz":   desc(LayoutImmExtended, OpBZ, 0),
	"bnz":  desc(LayoutImmExtended, OpBNZ, 0),

	"jmp":  desc(LayoutImmWideExtended, OpJMP, 0),
	"call": desc(LayoutImmWideExtended, OpCALL, 0),
	"ldw":  desc(LayoutImmWideExtended, OpLDW, 0),

	"br":   desc(LayoutImmWide, OpBR, 0),
	"beq":  desc(LayoutImmWide, OpBEQ, 0),
	"bne":  desc(LayoutImmWide, OpBNE, 0),
	"ldb":  desc(LayoutImmWide, OpLDB, 0),
	"cmpi": desc(LayoutImmWide, OpCMPI, 0),
	"ori":  desc(LayoutImmWide, OpORI, 0),

	"neg":  desc(LayoutRegFunc, OpALU, FnNEG),
	"swap": desc(LayoutRegFunc, OpALU, FnSWAP),
	"sext": desc(LayoutRegFunc, OpALU, FnSEXT),
	"zext": desc(LayoutRegFunc, OpALU, FnZEXT),
	"in":   desc(LayoutRegFunc, OpIO, FnIN),
	"out":  desc(LayoutRegFunc, OpIO, FnOUT),

	"mov": desc(LayoutTwoReg, OpMOV, 0),
	"add": desc(LayoutTwoReg, OpADD, 0),
	"sub": desc(LayoutTwoReg, OpSUB, 0),
	"and": desc(LayoutTwoReg, OpAND, 0),
	"or":  desc(LayoutTwoReg, OpOR, 0),
	"xor": desc(LayoutTwoReg, OpXOR, 0),
	"cmp": desc(LayoutTwoReg, OpCMP, 0),
	"ld":  desc(LayoutTwoReg, OpLD, 0),
	"st":  desc(LayoutTwoReg, OpST, 0),
}

// Lookup returns the descriptor for a mnemonic, ignoring case.
func Lookup(mnemonic string) (Descriptor, bool) {
	d, ok := Instructions[strings.ToLower(mnemonic)]
	return d, ok
}

type opKey struct {
	layout Layout
	op, fn uint8
}

var mnemonics map[opKey]string

func init() {
	mnemonics = make(map[opKey]string, len(Instructions))
	for name, d := range Instructions {
		mnemonics[opKey{d.Layout, d.Opcode, d.Func}] = name
	}
}

// Mnemonic returns the mnemonic for a decoded layout, opcode and function code.
func Mnemonic(l Layout, opcode, fn uint8) (string, bool) {
	if l != LayoutRegFunc {
		fn = 0
	}
	name, ok := mnemonics[opKey{l, opcode, fn}]
	return name, ok
}

// Mnemonics returns every mnemonic in sorted order.
func Mnemonics() []string {
	names := make([]string, 0, len(Instructions))
	for name := range Instructions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRelative reports whether the instruction's immediate is a branch
// displacement relative to the instruction's own offset.
func IsRelative(mnemonic string) bool {
	switch strings.ToLower(mnemonic) {
	case "brs", "bz", "bnz", "br", "beq", "bne", "jmp", "call":
		return true
	}
	return false
}
