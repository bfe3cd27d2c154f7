package asm

import (
	"fmt"
	"io"
)

// Printer outputs x86-64 assembly in GNU as Intel syntax
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram outputs an entire program. Sections and functions are
// separated by a blank line.
func (p *Printer) PrintProgram(prog *Program) {
	fmt.Fprintln(p.w, Inst(DirIntelSyntax, Raw("noprefix")))

	if len(prog.Globals) > 0 {
		fmt.Fprintln(p.w)
		p.PrintCode(prog.dataSection())
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, Inst(DirText))
	for i, f := range prog.Functions {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintln(p.w, Inst(DirGlobl, LabelRef(f.Name)))
		p.PrintCode(f.Code)
	}
}

// PrintCode outputs instructions one per line.
func (p *Printer) PrintCode(code []Instruction) {
	for _, inst := range code {
		fmt.Fprintln(p.w, inst.String())
	}
}
