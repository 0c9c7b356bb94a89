package isa

import (
	"errors"
	"fmt"
)

// Fields holds the raw values of every field a layout can carry. Unused
// fields are ignored by Pack and left zero by Unpack.
type Fields struct {
	Opcode uint8
	Func   uint8
	// Ra is the register of one-register layouts and the first register of
	// LayoutTwoReg.
	Ra uint8
	// Rb is the second register of LayoutTwoReg.
	Rb uint8
	// Imm is the raw bit pattern of the immediate field.
	Imm uint16
}

// SignedImm interprets the immediate field as a two's complement number of
// the layout's immediate width.
func (f Fields) SignedImm(l Layout) int64 {
	n := l.ImmBits()
	if n == 0 {
		return 0
	}
	v := int64(f.Imm) & (int64(1)<<n - 1)
	if v&(int64(1)<<(n-1)) != 0 {
		v -= int64(1) << n
	}
	return v
}

// ErrShortBuffer is returned when there are fewer bytes than the layout needs.
var ErrShortBuffer = errors.New("short buffer")

// Pack bit-packs f into dst according to l. dst must hold at least
// l.Width() bytes. The immediate is truncated to the field width; range
// checking is the caller's job.
func Pack(l Layout, f Fields, dst []byte) error {
	if len(dst) < l.Width() {
		return ErrShortBuffer
	}

	o := f.Opcode
	i := f.Imm
	switch l {
	case LayoutImmNarrow:
		dst[0] = byte(i&0x7)<<5 | o&0x1F

	case LayoutImmExtended:
		dst[0] = byte(i&0xF)<<4 | o&0xF

	case LayoutRegister:
		dst[0] = (f.Ra&0x7)<<5 | o&0x1F

	case LayoutImmWide:
		dst[0] = byte(i&0x7)<<5 | (o&0x3)<<3 | 0b111
		dst[1] = (o&0x1C)<<3 | byte(i&0xF8)>>3

	case LayoutImmWideExtended:
		dst[0] = byte(i&0xF)<<4 | o&0xF
		dst[1] = byte(i >> 4)

	case LayoutRegFunc:
		dst[0] = (f.Func&0x7)<<5 | (o&0x3)<<3 | 0b111
		dst[1] = (o&0x1C)<<3 | (f.Ra&0xF)<<1 | (f.Func>>3)&0x1

	case LayoutTwoReg:
		dst[0] = (f.Rb&0x7)<<5 | (o&0x3)<<3 | 0b111
		dst[1] = (o&0x1C)<<3 | (f.Ra&0xF)<<1 | (f.Rb>>3)&0x1

	default:
		return fmt.Errorf("cannot pack %s", l)
	}
	return nil
}

// Unpack is the inverse of Pack.
func Unpack(l Layout, src []byte) (Fields, error) {
	var f Fields
	if l.Width() == 0 {
		return f, fmt.Errorf("cannot unpack %s", l)
	}
	if len(src) < l.Width() {
		return f, ErrShortBuffer
	}

	b0 := src[0]
	switch l {
	case LayoutImmNarrow:
		f.Opcode = b0 & 0x1F
		f.Imm = uint16(b0 >> 5)

	case LayoutImmExtended:
		f.Opcode = b0 & 0xF
		f.Imm = uint16(b0 >> 4)

	case LayoutRegister:
		f.Opcode = b0 & 0x1F
		f.Ra = b0 >> 5

	case LayoutImmWide:
		b1 := src[1]
		f.Opcode = wideOpcode(b0, b1)
		f.Imm = uint16(b0>>5) | uint16(b1&0x1F)<<3

	case LayoutImmWideExtended:
		b1 := src[1]
		f.Opcode = b0 & 0xF
		f.Imm = uint16(b0>>4) | uint16(b1)<<4

	case LayoutRegFunc:
		b1 := src[1]
		f.Opcode = wideOpcode(b0, b1)
		f.Func = b0>>5 | (b1&0x1)<<3
		f.Ra = (b1 >> 1) & 0xF

	case LayoutTwoReg:
		b1 := src[1]
		f.Opcode = wideOpcode(b0, b1)
		f.Rb = b0>>5 | (b1&0x1)<<3
		f.Ra = (b1 >> 1) & 0xF
	}
	return f, nil
}

func wideOpcode(b0, b1 byte) uint8 {
	return (b1>>5)<<2 | (b0>>3)&0x3
}

// Instruction is one decoded instruction.
type Instruction struct {
	Mnemonic string
	Desc     Descriptor
	Fields   Fields
}

// ErrUnknownEncoding is returned by Decode for bytes that match no mnemonic.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Decode decodes the instruction at the start of code.
//
// Byte 0 selects the family: low bits 111 mark a two-byte instruction with a
// 5-bit opcode split across both bytes; otherwise bit 3 set marks a 4-bit
// opcode in the low nibble and bit 3 clear a 5-bit opcode in the low five
// bits.
func Decode(code []byte) (Instruction, error) {
	if len(code) == 0 {
		return Instruction{}, ErrShortBuffer
	}

	b0 := code[0]
	var candidates []Layout
	switch {
	case b0&0x7 == 0x7:
		candidates = []Layout{LayoutImmWide, LayoutRegFunc, LayoutTwoReg}
	case b0&0x8 != 0:
		candidates = []Layout{LayoutImmExtended, LayoutImmWideExtended}
	default:
		candidates = []Layout{LayoutImmNarrow, LayoutRegister}
	}

	short := false
	for _, l := range candidates {
		if len(code) < l.Width() {
			short = true
			continue
		}
		f, err := Unpack(l, code)
		if err != nil {
			return Instruction{}, err
		}
		name, ok := Mnemonic(l, f.Opcode, f.Func)
		if !ok {
			continue
		}
		return Instruction{Mnemonic: name, Desc: Instructions[name], Fields: f}, nil
	}

	if short {
		return Instruction{}, ErrShortBuffer
	}
	return Instruction{}, ErrUnknownEncoding
}
