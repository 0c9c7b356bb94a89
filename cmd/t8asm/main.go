package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grimdork/climate/arg"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/Urethramancer/t8/assembler"
	"github.com/Urethramancer/t8/ast"
	"github.com/Urethramancer/t8/config"
	"github.com/Urethramancer/t8/parser"
)

func main() {
	err := run(os.Args, os.Stdout, os.Stderr)
	if err != nil {
		var diag *assembler.Diagnostic
		// Diagnostics were already printed by the reporter.
		if !errors.As(err, &diag) {
			fmt.Fprintf(os.Stderr, "t8asm: %v\n", err)
		}
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// run assembles the file named in args, where args[0] is the program name.
func run(args []string, stdout, stderr io.Writer) error {
	cfg := config.FromEnv()

	opt := arg.New("t8asm")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "o", "output", "Output file. Defaults to the source name with a .bin extension.", cfg.Output, false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "s", "symbols", "Print the symbol table.", cfg.Symbols, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "l", "listing", "Print an offset/bytes/source listing.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "c", "capacity", "Initial symbol table capacity.", cfg.SymbolCapacity, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "L", "loglevel", "Log level (trace, debug, info, warn, error).", cfg.LogLevel, false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "F", "logformat", "Log format (text, json).", cfg.LogFormat, false, arg.VarString, nil)
	opt.SetPositional("SOURCE", "Assembly source file.", "", true, arg.VarString)

	if len(args) < 2 {
		opt.PrintHelp()
		return nil
	}
	if err := opt.Parse(args[1:]); err != nil {
		if errors.Is(err, arg.ErrNoArgs) {
			opt.PrintHelp()
			return nil
		}
		return err
	}

	cfg.Output = opt.GetString("output")
	cfg.Symbols = opt.GetBool("symbols")
	cfg.SymbolCapacity = opt.GetInt("capacity")
	cfg.LogLevel = strings.ToLower(opt.GetString("loglevel"))
	cfg.LogFormat = strings.ToLower(opt.GetString("logformat"))
	if err := cfg.Validate(); err != nil {
		return err
	}

	source := opt.GetPosString("SOURCE")
	if cfg.Output == "" {
		cfg.Output = strings.TrimSuffix(source, filepath.Ext(source)) + ".bin"
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	root, err := parser.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s:%w", source, err)
	}

	symbols, err := cfg.Symtab()
	if err != nil {
		return err
	}
	log := cfg.Logger(stderr)
	asm := assembler.New(symbols,
		assembler.WithLogger(log),
		assembler.WithReporter(assembler.ReporterFunc(func(tok ast.Token, sev assembler.Severity, msg string) {
			fmt.Fprintf(stderr, "%s:%d:%d: %s: %s\n", source, tok.Line, tok.Column, sev, msg)
		})),
	)

	code, err := asm.Assemble(root)
	if err != nil {
		return err
	}

	if err := writeOutput(cfg.Output, code); err != nil {
		return err
	}
	log.Info("assembled", "source", source, "output", cfg.Output, "bytes", len(code), "symbols", symbols.Len())

	if opt.GetBool("listing") {
		fmt.Fprintln(stdout, listing(asm.Listing(), strings.Split(string(data), "\n")))
	}
	if cfg.Symbols {
		fmt.Fprintln(stdout, symbolTable(asm.SortedSymbols()))
	}
	return nil
}

// writeOutput writes through a temporary file so a failed run never leaves a
// truncated binary behind.
func writeOutput(name string, code []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(name), ".t8asm-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(code); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, name)
}

func listing(lines []assembler.Line, src []string) string {
	t := table.NewWriter()
	t.SetTitle("Listing")
	t.AppendHeader(table.Row{"Offset", "Bytes", "Source"})
	for _, l := range lines {
		text := ""
		if n := l.Node.Token.Line; n > 0 && n <= len(src) {
			text = strings.TrimSpace(src[n-1])
		}
		t.AppendRow(table.Row{fmt.Sprintf("%04X", l.Offset), fmt.Sprintf("% X", l.Bytes), text})
	}
	return t.Render()
}

func symbolTable(syms []assembler.Symbol) string {
	t := table.NewWriter()
	t.SetTitle("Symbols")
	t.AppendHeader(table.Row{"Offset", "Label"})
	for _, s := range syms {
		t.AppendRow(table.Row{fmt.Sprintf("%04X", s.Offset), s.Name})
	}
	return t.Render()
}
