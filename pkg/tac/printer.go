package tac

import (
	"fmt"
	"io"
)

// Printer outputs TAC with labels flush left and instructions indented.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new TAC printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintCode prints an instruction list. Function labels are preceded by a
// blank line, except at the top.
func (p *Printer) PrintCode(code []Instruction) {
	for idx, inst := range code {
		if inst.Label != "" {
			if IsFunctionLabel(inst.Label) && idx > 0 {
				fmt.Fprintln(p.w)
			}
			fmt.Fprintf(p.w, "%s:\n", inst.Label)
		}
		if body := inst.body(); body != "" {
			fmt.Fprintf(p.w, "  %s\n", body)
		}
	}
}
