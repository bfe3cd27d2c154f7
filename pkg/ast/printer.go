package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs a syntax tree, one node per line, indented by depth.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new tree printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintTree prints the whole tree
func (p *Printer) PrintTree(t *Tree) {
	p.PrintNode(t, t.Root)
}

// PrintNode prints the subtree rooted at id
func (p *Printer) PrintNode(t *Tree, id NodeID) {
	t.Walk(id, func(id NodeID, depth int) bool {
		n := t.Node(id)
		indent := strings.Repeat("  ", depth)
		if n.Value() != "" {
			fmt.Fprintf(p.w, "%s%s %s\n", indent, n.Kind(), n.Value())
		} else {
			fmt.Fprintf(p.w, "%s%s\n", indent, n.Kind())
		}
		return true
	})
}

// PrintTokens prints the tree's tokens in pre-order
func (p *Printer) PrintTokens(t *Tree) {
	for _, tok := range t.Tokens() {
		fmt.Fprintln(p.w, tok)
	}
}
