// Package ast defines the program tree consumed by the code generator.
package ast

import (
	"fmt"

	"github.com/Urethramancer/t8/isa"
)

// Kind is the closed set of node kinds.
type Kind uint8

const (
	// Invalid is the zero value.
	Invalid Kind = iota
	// Root is the top of the tree. Its children are sections.
	Root
	// Section groups statements. Its token holds the section name.
	Section
	// Statement holds an optional label followed by an optional instruction.
	Statement
	// Instruction carries a descriptor and one or two operand children.
	Instruction
	// Register is a register operand named by its token.
	Register
	// Immediate is a literal constant.
	Immediate
	// Identifier is a reference to a label.
	Identifier
	// Label defines the name in its token at the current output offset.
	Label
	// Operation is a unary operation with a single child.
	Operation
)

var kindNames = [...]string{
	Invalid:     "invalid",
	Root:        "root",
	Section:     "section",
	Statement:   "statement",
	Instruction: "instruction",
	Register:    "register",
	Immediate:   "immediate",
	Identifier:  "identifier",
	Label:       "label",
	Operation:   "operation",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Token is the source span a node was built from.
type Token struct {
	Text   string
	Line   int
	Column int
}

func (t Token) String() string {
	if t.Line == 0 {
		return fmt.Sprintf("%q", t.Text)
	}
	return fmt.Sprintf("%d:%d %q", t.Line, t.Column, t.Text)
}

// Op is the operator of an Operation node.
type Op uint8

const (
	// OpNone is the zero value.
	OpNone Op = iota
	// OpNeg is unary negation.
	OpNeg
)

// Node is one element of the program tree. Only the payload fields that
// belong to Kind are meaningful.
type Node struct {
	Kind     Kind
	Token    Token
	Children []*Node

	// Desc is set on Instruction nodes.
	Desc isa.Descriptor
	// Value is set on Immediate nodes.
	Value int64
	// Op is set on Operation nodes.
	Op Op
}

// Name returns the token text, which is the name for labels, identifiers,
// registers and sections.
func (n *Node) Name() string {
	return n.Token.Text
}

func (n *Node) String() string {
	switch n.Kind {
	case Instruction:
		return fmt.Sprintf("%s %s (%s)", n.Kind, n.Token.Text, n.Desc.Layout)
	case Immediate:
		return fmt.Sprintf("%s %d", n.Kind, n.Value)
	}
	return fmt.Sprintf("%s %s", n.Kind, n.Token.Text)
}
