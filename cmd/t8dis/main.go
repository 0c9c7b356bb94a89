package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/grimdork/climate/arg"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/Urethramancer/t8/disassembler"
)

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "t8dis: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// run disassembles the file named in args, where args[0] is the program name.
func run(args []string, stdout io.Writer) error {
	opt := arg.New("t8dis")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "o", "output", "Write the assembly text to a file instead of standard output.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "t", "table", "Print a decoded instruction table instead of source text.", false, false, arg.VarBool, nil)
	opt.SetPositional("BINARY", "T8 machine code file.", "", true, arg.VarString)

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

	input := opt.GetPosString("BINARY")
	code, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	if opt.GetBool("table") {
		fmt.Fprintln(stdout, decodedTable(code))
		return nil
	}

	text, err := disassembler.Disassemble(code)
	if err != nil {
		return fmt.Errorf("disassembly error: %w", err)
	}

	output := opt.GetString("output")
	if output == "" {
		fmt.Fprint(stdout, text)
		return nil
	}
	if err := os.WriteFile(output, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	fmt.Fprintf(stdout, "Disassembly written to %s\n", output)
	return nil
}

func decodedTable(code []byte) string {
	list := disassembler.Sweep(code)
	labels := disassembler.Labels(list, len(code))

	t := table.NewWriter()
	t.SetTitle("Disassembly")
	t.AppendHeader(table.Row{"Offset", "Bytes", "Label", "Instruction", "Target"})
	for _, in := range list {
		ins := ".byte"
		if in.Known {
			ins = in.Mnemonic + " " + in.Operands
		}
		target := ""
		if in.Target >= 0 {
			target = fmt.Sprintf("%04X", in.Target)
			if name, ok := labels[in.Target]; ok {
				target = name
			}
		}
		t.AppendRow(table.Row{fmt.Sprintf("%04X", in.Offset), fmt.Sprintf("% X", in.Bytes), labels[in.Offset], ins, target})
	}
	return t.Render()
}
