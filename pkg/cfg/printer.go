package cfg

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs basic blocks and their successors.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new CFG printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintGraph prints every block followed by its outgoing edges.
func (p *Printer) PrintGraph(g *Graph) {
	for i, b := range g.Blocks {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.PrintBlock(b)
	}
}

// PrintBlock prints one block.
func (p *Printer) PrintBlock(b *Block) {
	fmt.Fprintf(p.w, "%s:\n", b.ID)
	for _, inst := range b.Code {
		for _, line := range strings.Split(inst.String(), "\n") {
			fmt.Fprintf(p.w, "  %s\n", line)
		}
	}
	if len(b.Succs) == 0 {
		return
	}
	succs := make([]string, len(b.Succs))
	for i, e := range b.Succs {
		succs[i] = fmt.Sprintf("%s [%s]", e.To, e.Kind)
	}
	fmt.Fprintf(p.w, "  -> %s\n", strings.Join(succs, ", "))
}

// WriteDot renders the graph in Graphviz DOT syntax.
func WriteDot(w io.Writer, g *Graph) error {
	var sb strings.Builder
	sb.WriteString("digraph cfg {\n")
	sb.WriteString("  node [shape=box fontname=monospace];\n")
	for _, b := range g.Blocks {
		var label strings.Builder
		label.WriteString(b.ID)
		label.WriteString(`\l`)
		for _, inst := range b.Code {
			for _, line := range strings.Split(inst.String(), "\n") {
				label.WriteString(dotEscape(line))
				label.WriteString(`\l`)
			}
		}
		fmt.Fprintf(&sb, "  %s [label=\"%s\"];\n", b.ID, label.String())
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "  %s -> %s [label=%q];\n", e.From, e.To, e.Kind.String())
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func dotEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
