package ast

import (
	"strings"

	"github.com/Urethramancer/t8/isa"
)

// Constructors used by front ends and tests. None of them validate the tree;
// the generator does that.

// NewRoot returns a root holding the given sections.
func NewRoot(sections ...*Node) *Node {
	return &Node{Kind: Root, Children: sections}
}

// NewSection returns a section named name.
func NewSection(name string, statements ...*Node) *Node {
	return &Node{Kind: Section, Token: Token{Text: name}, Children: statements}
}

// NewStatement returns a statement holding an optional label and instruction.
func NewStatement(children ...*Node) *Node {
	return &Node{Kind: Statement, Children: children}
}

// NewLabel returns a label definition.
func NewLabel(name string) *Node {
	return &Node{Kind: Label, Token: Token{Text: name}}
}

// NewInstruction returns an instruction node for mnemonic with the given
// operands. The descriptor comes from the instruction table; an unknown
// mnemonic yields a node with the invalid layout.
func NewInstruction(mnemonic string, operands ...*Node) *Node {
	d, _ := isa.Lookup(mnemonic)
	return &Node{
		Kind:     Instruction,
		Token:    Token{Text: strings.ToLower(mnemonic)},
		Desc:     d,
		Children: operands,
	}
}

// NewRegister returns a register operand.
func NewRegister(name string) *Node {
	return &Node{Kind: Register, Token: Token{Text: name}}
}

// NewImmediate returns a literal constant operand.
func NewImmediate(v int64) *Node {
	return &Node{Kind: Immediate, Value: v}
}

// NewIdentifier returns a label reference.
func NewIdentifier(name string) *Node {
	return &Node{Kind: Identifier, Token: Token{Text: name}}
}

// NewNeg returns the negation of operand.
func NewNeg(operand *Node) *Node {
	return &Node{Kind: Operation, Token: Token{Text: "-"}, Op: OpNeg, Children: []*Node{operand}}
}
