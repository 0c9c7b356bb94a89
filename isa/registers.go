package isa

import (
	"fmt"
	"strings"
)

// NumRegisters is the number of general-purpose registers.
const NumRegisters = 8

// Registers maps register names to their 3-bit numbers.
var Registers = map[string]uint8{
	"r0": 0,
	"r1": 1,
	"r2": 2,
	"r3": 3,
	"r4": 4,
	"r5": 5,
	"r6": 6,
	"r7": 7,
}

// Register resolves a register name, ignoring case.
func Register(name string) (uint8, bool) {
	r, ok := Registers[strings.ToLower(name)]
	return r, ok
}

// RegisterName returns the canonical name of register r.
func RegisterName(r uint8) string {
	return fmt.Sprintf("r%d", r)
}
