// Package parser turns T8 assembly source into the program tree the
// assembler consumes.
//
// The syntax is line based:
//
//	.text                 ; or ".section text"
//	loop:  dec r1         ; a label may share a line with an instruction
//	       bnz loop
//	       ldw -(end)     ; unary minus applies to literals and labels
//	end:
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Urethramancer/t8/ast"
	"github.com/Urethramancer/t8/isa"
)

// SyntaxError is a problem in the source text.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Msg)
}

var (
	reLabel      = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	reMnemonic   = regexp.MustCompile(`^\s*([A-Za-z]+)`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reDirective  = regexp.MustCompile(`^\s*(\.[A-Za-z]+)\s*([A-Za-z_.]*)\s*$`)
)

type parser struct {
	root    *ast.Node
	section *ast.Node
	line    int
}

// Parse parses src. It returns the first syntax error found.
func Parse(src string) (*ast.Node, error) {
	p := &parser{root: ast.NewRoot()}
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	for i, line := range lines {
		p.line = i + 1
		if err := p.parseLine(line); err != nil {
			return nil, err
		}
	}
	return p.root, nil
}

func (p *parser) errorf(col int, format string, args ...any) error {
	return &SyntaxError{Line: p.line, Column: col + 1, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) token(text string, col int) ast.Token {
	return ast.Token{Text: text, Line: p.line, Column: col + 1}
}

func (p *parser) parseLine(line string) error {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}

	if m := reDirective.FindStringSubmatchIndex(line); m != nil {
		return p.directive(line[m[2]:m[3]], line[m[4]:m[5]], m[2])
	}

	stmt := &ast.Node{Kind: ast.Statement, Token: p.token(strings.TrimSpace(line), 0)}
	rest, base := line, 0
	if m := reLabel.FindStringSubmatchIndex(line); m != nil {
		name := line[m[2]:m[3]]
		if _, ok := isa.Register(name); ok {
			return p.errorf(m[2], "register name %s used as a label", name)
		}
		if _, ok := isa.Lookup(name); ok {
			return p.errorf(m[2], "mnemonic %s used as a label", name)
		}
		stmt.Children = append(stmt.Children, &ast.Node{Kind: ast.Label, Token: p.token(name, m[2])})
		rest, base = line[m[1]:], m[1]
	}

	if strings.TrimSpace(rest) != "" {
		n, err := p.instruction(rest, base)
		if err != nil {
			return err
		}
		stmt.Children = append(stmt.Children, n)
	}

	p.current().Children = append(p.current().Children, stmt)
	return nil
}

// current returns the open section, starting an implicit text section if
// none has been declared.
func (p *parser) current() *ast.Node {
	if p.section == nil {
		p.section = &ast.Node{Kind: ast.Section, Token: ast.Token{Text: "text", Line: p.line, Column: 1}}
		p.root.Children = append(p.root.Children, p.section)
	}
	return p.section
}

func (p *parser) directive(name, arg string, col int) error {
	switch strings.ToLower(name) {
	case ".text":
		if arg != "" {
			return p.errorf(col, ".text takes no argument")
		}
	case ".section":
		if strings.TrimPrefix(strings.ToLower(arg), ".") != "text" {
			return p.errorf(col, "unsupported section %q", arg)
		}
	default:
		return p.errorf(col, "unknown directive %s", name)
	}
	p.section = &ast.Node{Kind: ast.Section, Token: p.token("text", col)}
	p.root.Children = append(p.root.Children, p.section)
	return nil
}

func (p *parser) instruction(s string, base int) (*ast.Node, error) {
	m := reMnemonic.FindStringSubmatchIndex(s)
	if m == nil {
		return nil, p.errorf(base+len(s)-len(strings.TrimLeft(s, " \t")), "expected instruction")
	}
	mnemonic := s[m[2]:m[3]]
	col := base + m[2]
	d, ok := isa.Lookup(mnemonic)
	if !ok {
		return nil, p.errorf(col, "unknown instruction %s", mnemonic)
	}

	n := &ast.Node{Kind: ast.Instruction, Token: p.token(strings.ToLower(mnemonic), col), Desc: d}
	operands := s[m[1]:]
	opBase := base + m[1]
	if operands != "" && operands[0] != ' ' && operands[0] != '\t' {
		return nil, p.errorf(opBase, "unexpected %q after %s", operands[0], mnemonic)
	}

	if strings.TrimSpace(operands) != "" {
		off := 0
		for _, field := range strings.Split(operands, ",") {
			lead := len(field) - len(strings.TrimLeft(field, " \t"))
			text := strings.TrimSpace(field)
			op, err := p.operand(text, opBase+off+lead)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, op)
			off += len(field) + 1
		}
	}

	if want := d.Layout.Operands(); len(n.Children) != want {
		return nil, p.errorf(col, "%s takes %d operand(s), got %d", mnemonic, want, len(n.Children))
	}
	return n, nil
}

func (p *parser) operand(s string, col int) (*ast.Node, error) {
	if s == "" {
		return nil, p.errorf(col, "missing operand")
	}

	if s[0] == '-' {
		inner := strings.TrimSpace(s[1:])
		if strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") {
			inner = strings.TrimSpace(inner[1 : len(inner)-1])
		}
		// Fold the sign into plain literals so -4 is a constant.
		if v, ok := parseNumber(inner); ok {
			return &ast.Node{Kind: ast.Immediate, Token: p.token(s, col), Value: -v}, nil
		}
		child, err := p.operand(inner, col+len(s)-len(inner))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Operation, Op: ast.OpNeg, Token: p.token("-", col), Children: []*ast.Node{child}}, nil
	}

	if v, ok := parseNumber(s); ok {
		return &ast.Node{Kind: ast.Immediate, Token: p.token(s, col), Value: v}, nil
	}
	if _, ok := isa.Register(s); ok {
		return &ast.Node{Kind: ast.Register, Token: p.token(strings.ToLower(s), col)}, nil
	}
	if reIdentifier.MatchString(s) {
		return &ast.Node{Kind: ast.Identifier, Token: p.token(s, col)}, nil
	}
	return nil, p.errorf(col, "bad operand %q", s)
}

// parseNumber accepts decimal, $hex, 0x hex, %binary and 0b binary.
func parseNumber(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	base := 10
	digits := s
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, "$"):
		base, digits = 16, s[1:]
	case strings.HasPrefix(s, "%"):
		base, digits = 2, s[1:]
	case strings.HasPrefix(lower, "0x"):
		base, digits = 16, s[2:]
	case strings.HasPrefix(lower, "0b"):
		base, digits = 2, s[2:]
	case s[0] < '0' || s[0] > '9':
		return 0, false
	}
	// Signs come from the operand's leading '-', never after a prefix.
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
