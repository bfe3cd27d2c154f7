// Package cfg partitions a TAC instruction list into basic blocks and
// records the branch edges between them.
//
// A block starts at a labeled instruction (or the first instruction) and
// ends right after an if or goto. Concatenating the blocks in order gives
// back the input list.
package cfg

import (
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/tacc/pkg/tac"
)

// ErrMissingLabel is returned when a branch targets a label no block owns.
var ErrMissingLabel = errors.New("branch target has no block")

// EdgeKind tags an edge with the reason control takes it.
type EdgeKind int

const (
	EdgeTrue EdgeKind = iota
	EdgeFalse
	EdgeGoto
	EdgeFallthrough
)

var edgeKindNames = [...]string{
	EdgeTrue:        "true",
	EdgeFalse:       "false",
	EdgeGoto:        "goto",
	EdgeFallthrough: "fallthrough",
}

func (k EdgeKind) String() string {
	if k >= 0 && int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return "edge(" + strconv.Itoa(int(k)) + ")"
}

// Edge is a directed edge between two blocks.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Block is a maximal straight-line run of instructions.
type Block struct {
	ID    string
	Code  []tac.Instruction
	Succs []Edge
	Preds []Edge
}

// Last returns the block's final instruction.
func (b *Block) Last() tac.Instruction {
	return b.Code[len(b.Code)-1]
}

// Graph holds blocks in discovery order.
type Graph struct {
	Blocks []*Block
	Edges  []Edge

	byID    map[string]*Block
	byLabel map[string]string
}

// Options control graph construction.
type Options struct {
	// Fallthrough adds an edge from a block that does not end in a branch
	// or return to the block after it, within the same function.
	Fallthrough bool
}

// Block returns the block with the given id, or nil.
func (g *Graph) Block(id string) *Block {
	return g.byID[id]
}

// BlockOf returns the id of the block owning label.
func (g *Graph) BlockOf(label string) (string, bool) {
	id, ok := g.byLabel[label]
	return id, ok
}

// Code concatenates the blocks' instructions in order.
func (g *Graph) Code() []tac.Instruction {
	var code []tac.Instruction
	for _, b := range g.Blocks {
		code = append(code, b.Code...)
	}
	return code
}

type builder struct {
	g   *Graph
	cur []tac.Instruction
}

func (b *builder) nextID() string {
	return "B" + strconv.Itoa(len(b.g.Blocks))
}

func (b *builder) closeBlock() {
	if len(b.cur) == 0 {
		return
	}
	blk := &Block{ID: b.nextID(), Code: b.cur}
	b.g.Blocks = append(b.g.Blocks, blk)
	b.g.byID[blk.ID] = blk
	b.cur = nil
}

// Build partitions code into blocks and connects them.
func Build(code []tac.Instruction, opts Options) (*Graph, error) {
	b := &builder{g: &Graph{
		byID:    make(map[string]*Block),
		byLabel: make(map[string]string),
	}}

	for _, inst := range code {
		if inst.Label != "" {
			b.closeBlock()
			b.g.byLabel[inst.Label] = b.nextID()
		}
		b.cur = append(b.cur, inst)
		if inst.Op == tac.OpIf || inst.Op == tac.OpGoto {
			b.closeBlock()
		}
	}
	b.closeBlock()

	if err := b.connect(opts); err != nil {
		return nil, err
	}

	tlog.V("cfg").Printw("built", "blocks", len(b.g.Blocks), "edges", len(b.g.Edges))
	return b.g, nil
}

func (b *builder) connect(opts Options) error {
	g := b.g
	for i, blk := range g.Blocks {
		last := blk.Last()
		switch last.Op {
		case tac.OpIf:
			if err := b.addEdge(blk, string(last.Arg2), EdgeTrue); err != nil {
				return err
			}
			if err := b.addEdge(blk, string(last.Result), EdgeFalse); err != nil {
				return err
			}
		case tac.OpGoto:
			if err := b.addEdge(blk, string(last.Result), EdgeGoto); err != nil {
				return err
			}
		case tac.OpReturn:
		default:
			if !opts.Fallthrough || i+1 >= len(g.Blocks) {
				continue
			}
			next := g.Blocks[i+1]
			if tac.IsFunctionLabel(next.Code[0].Label) {
				continue
			}
			b.link(blk, next, EdgeFallthrough)
		}
	}
	return nil
}

func (b *builder) addEdge(from *Block, label string, kind EdgeKind) error {
	id, ok := b.g.byLabel[label]
	if !ok {
		return errors.Wrap(ErrMissingLabel, "%s edge from %s to %s", kind, from.ID, label)
	}
	b.link(from, b.g.byID[id], kind)
	return nil
}

func (b *builder) link(from, to *Block, kind EdgeKind) {
	e := Edge{From: from.ID, To: to.ID, Kind: kind}
	from.Succs = append(from.Succs, e)
	to.Preds = append(to.Preds, e)
	b.g.Edges = append(b.g.Edges, e)
}
