// Package assembler generates T8 machine code from a program tree.
//
// Generation is two-pass in one traversal: instructions are encoded as they
// are visited, and any whose operand names a label not yet seen is recorded
// and re-encoded in place once the whole tree has been walked.
package assembler

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Urethramancer/t8/ast"
	"github.com/Urethramancer/t8/isa"
	"github.com/Urethramancer/t8/symtab"
)

// TextSection is the only section name the generator accepts.
const TextSection = "text"

// Assembler holds the state of one generation run. Create one per run; the
// symbol table, output buffer and fixup queue all belong to it.
type Assembler struct {
	symbols  *symtab.Table[uint64]
	out      output
	fixups   []site
	emitted  []site
	reporter Reporter
	log      *slog.Logger
	used     bool
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithReporter sends user-facing diagnostics to r.
func WithReporter(r Reporter) Option {
	return func(asm *Assembler) { asm.reporter = r }
}

// WithLogger sets the logger for progress records.
func WithLogger(l *slog.Logger) Option {
	return func(asm *Assembler) { asm.log = l }
}

// New creates an Assembler that records labels into symbols, which should be
// empty. A nil table gets a default one.
func New(symbols *symtab.Table[uint64], opts ...Option) *Assembler {
	asm := &Assembler{
		symbols:  symbols,
		reporter: discard{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(asm)
	}
	if asm.symbols == nil {
		// The defaults always validate.
		asm.symbols, _ = symtab.New[uint64]()
	}
	return asm
}

// Assemble walks root and returns the machine code, sized exactly. On error
// no code is returned; the error wraps one of the package's sentinels.
func (asm *Assembler) Assemble(root *ast.Node) ([]byte, error) {
	if asm.used {
		return nil, ErrReused
	}
	asm.used = true

	if root == nil {
		return nil, contract(nil, "nil root")
	}

	if err := asm.walk(root); err != nil {
		asm.fail(err)
		return nil, err
	}
	pending := len(asm.fixups)
	if err := asm.replay(); err != nil {
		asm.fail(err)
		return nil, err
	}

	code := asm.out.bytes()
	asm.log.Debug("generation complete",
		"bytes", len(code),
		"labels", asm.symbols.Len(),
		"fixups", pending,
	)
	return code, nil
}

// walk is the first pass: an explicit-stack traversal in source order.
func (asm *Assembler) walk(root *ast.Node) error {
	stack := []*ast.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			return contract(nil, "nil node in tree")
		}

		switch n.Kind {
		case ast.Section:
			if n.Name() != TextSection {
				return contract(n, "unrecognised section %q", n.Name())
			}
			stack = pushChildren(stack, n)

		case ast.Root, ast.Statement:
			stack = pushChildren(stack, n)

		case ast.Instruction:
			if err := asm.emit(n); err != nil {
				return err
			}

		case ast.Label:
			if err := asm.define(n); err != nil {
				return err
			}

		default:
			return contract(n, "unexpected %s in statement position", n.Kind)
		}
	}
	return nil
}

// pushChildren pushes in reverse so they pop left to right.
func pushChildren(stack []*ast.Node, n *ast.Node) []*ast.Node {
	for i := len(n.Children) - 1; i >= 0; i-- {
		stack = append(stack, n.Children[i])
	}
	return stack
}

// emit encodes one instruction at the end of the output, deferring it if an
// operand names a label that is not defined yet.
func (asm *Assembler) emit(n *ast.Node) error {
	if !n.Desc.Layout.Valid() {
		return contract(n, "unknown layout %s", n.Desc.Layout)
	}
	w := n.Desc.Layout.Width()

	asm.out.reserve(isa.MaxWidth)
	at := asm.out.len()
	dst := asm.out.extend(w)
	asm.emitted = append(asm.emitted, site{node: n, offset: at})

	err := asm.encode(n, at, dst, false)
	var u *unresolvedError
	if errors.As(err, &u) {
		asm.fixups = append(asm.fixups, site{node: n, offset: at})
		asm.log.Debug("deferred", "instruction", n.Name(), "label", u.ref.Name(), "offset", at)
		return nil
	}
	if err != nil {
		return err
	}
	asm.trace("emit", "instruction", n.Name(), "offset", at, "bytes", fmt.Sprintf("% X", dst))
	return nil
}

// define records a label at the current output offset.
func (asm *Assembler) define(n *ast.Node) error {
	name := n.Name()
	if name == "" {
		return contract(n, "label without a name")
	}

	off := uint64(asm.out.len())
	if err := asm.symbols.Insert([]byte(name), off); err != nil {
		if !errors.Is(err, symtab.ErrExists) {
			return err
		}
		prev, _ := asm.symbols.Lookup([]byte(name))
		return asm.diagnose(n.Token, ErrDuplicateLabel,
			fmt.Sprintf("label %s redefined at offset %d, first defined at offset %d", name, off, prev))
	}
	asm.log.Debug("label", "name", name, "offset", off)
	return nil
}

// diagnose reports a fatal user error and returns it as a *Diagnostic.
func (asm *Assembler) diagnose(tok ast.Token, sentinel error, msg string) error {
	asm.reporter.Report(tok, SeverityFatal, msg)
	return &Diagnostic{Token: tok, Severity: SeverityFatal, Message: msg, Err: sentinel}
}

// fail logs an aborting error. Contract violations have no useful source
// position, so they only go to the log.
func (asm *Assembler) fail(err error) {
	var ce *ContractError
	if errors.As(err, &ce) {
		asm.log.Error("generation aborted", "err", err)
		return
	}
	asm.log.Debug("generation aborted", "err", err)
}

// Symbol is one defined label.
type Symbol struct {
	Name   string
	Offset uint64
}

// SortedSymbols returns every label ordered by offset, then name.
func (asm *Assembler) SortedSymbols() []Symbol {
	syms := make([]Symbol, 0, asm.symbols.Len())
	asm.symbols.Range(func(k []byte, off uint64) bool {
		syms = append(syms, Symbol{Name: string(k), Offset: off})
		return true
	})
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].Offset != syms[j].Offset {
			return syms[i].Offset < syms[j].Offset
		}
		return syms[i].Name < syms[j].Name
	})
	return syms
}
