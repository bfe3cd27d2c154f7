// Package tacgen lowers a syntax tree to three-address code.
// Generation is a recursive descent over the tree; every call returns the
// operand holding the subtree's value, or nothing for pure statements.
package tacgen

import (
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/tacc/pkg/ast"
	"github.com/raymyers/tacc/pkg/symtab"
	"github.com/raymyers/tacc/pkg/tac"
)

// ErrUndefined is returned when the tree names something the symbol table
// does not know, which means the upstream type checker let it through.
var ErrUndefined = errors.New("undefined symbol")

// ErrMalformed is returned for nodes whose shape breaks the tree conventions.
var ErrMalformed = errors.New("malformed tree")

// Generator holds the state of one lowering run.
type Generator struct {
	tree  *ast.Tree
	syms  *symtab.Table
	scope string
	code  []tac.Instruction

	nextTemp  int // temporaries t1, t2, ...
	nextLabel int // labels .L1, .L2, ...
}

// New creates a generator over a tree and its symbol table.
func New(tree *ast.Tree, syms *symtab.Table) *Generator {
	return &Generator{
		tree:      tree,
		syms:      syms,
		scope:     symtab.Global,
		nextTemp:  1,
		nextLabel: 1,
	}
}

// Generate lowers a whole tree to an instruction list.
func Generate(tree *ast.Tree, syms *symtab.Table) ([]tac.Instruction, error) {
	return New(tree, syms).Generate()
}

// Generate lowers the generator's tree starting at its root.
func (g *Generator) Generate() ([]tac.Instruction, error) {
	if _, err := g.gen(g.tree.Root); err != nil {
		return nil, err
	}
	tlog.V("tacgen").Printw("generated", "instructions", len(g.code), "temps", g.nextTemp-1, "labels", g.nextLabel-1)
	return g.code, nil
}

// Code returns the instructions emitted so far.
func (g *Generator) Code() []tac.Instruction {
	return g.code
}

// NewTemp allocates a fresh temporary.
func (g *Generator) NewTemp() tac.Operand {
	t := tac.Operand("t" + strconv.Itoa(g.nextTemp))
	g.nextTemp++
	return t
}

// NewLabel allocates a fresh synthesized label.
func (g *Generator) NewLabel() string {
	l := ".L" + strconv.Itoa(g.nextLabel)
	g.nextLabel++
	return l
}

func (g *Generator) emit(inst tac.Instruction) {
	g.code = append(g.code, inst)
}

// result of lowering one node: an operand for expressions, an end label for
// structured statements, or neither.
type result struct {
	val tac.Operand
	end string
}

func (g *Generator) gen(id ast.NodeID) (result, error) {
	n := g.tree.Node(id)
	if n == nil {
		return result{}, nil
	}

	switch n.Kind() {
	case ast.Program, ast.Block:
		return result{}, g.genList(n.Children)
	case ast.Func:
		return result{}, g.genFunc(n)
	case ast.VarDecl:
		return g.genVarDecl(id, n)
	case ast.Assign:
		return g.genAssign(id, n)
	case ast.Binary:
		return g.genBinary(id, n)
	case ast.Return:
		return result{}, g.genReturn(n)
	case ast.If:
		return g.genIf(id, n)
	case ast.While:
		return g.genWhile(id, n)
	case ast.For:
		return g.genFor(id, n)
	case ast.Call:
		return g.genCall(n)
	case ast.Number:
		return result{val: tac.Operand(n.Value())}, nil
	case ast.Char:
		v, err := charValue(n.Value())
		if err != nil {
			return result{}, errors.Wrap(err, "at %s", n.Token.Pos)
		}
		return result{val: v}, nil
	case ast.Ident:
		return result{val: tac.Operand(n.Value())}, nil
	default:
		return result{}, errors.Wrap(ErrMalformed, "unexpected %s node at %s", n.Kind(), n.Token.Pos)
	}
}

// genList lowers a statement list. A structured statement hands back its
// end label, which is placed right after it as the join point.
func (g *Generator) genList(children []ast.NodeID) error {
	for _, c := range children {
		r, err := g.gen(c)
		if err != nil {
			return err
		}
		if r.end != "" {
			g.emit(tac.Label(r.end))
		}
	}
	return nil
}

// genExpr lowers a node that must produce a value.
func (g *Generator) genExpr(id ast.NodeID) (tac.Operand, error) {
	r, err := g.gen(id)
	if err != nil {
		return tac.NoOperand, err
	}
	if !r.val.Present() {
		n := g.tree.Node(id)
		if n == nil {
			return tac.NoOperand, errors.Wrap(ErrMalformed, "missing expression")
		}
		return tac.NoOperand, errors.Wrap(ErrMalformed, "%s node at %s has no value", n.Kind(), n.Token.Pos)
	}
	return r.val, nil
}

func (g *Generator) genFunc(n *ast.Node) error {
	name := n.Value()
	if !g.syms.IsFunction(name, g.scope) {
		return errors.Wrap(ErrUndefined, "function %s at %s", name, n.Token.Pos)
	}

	g.emit(tac.Label(name))

	outer := g.scope
	g.scope = name
	defer func() { g.scope = outer }()

	if err := g.genList(n.Children); err != nil {
		return errors.Wrap(err, "func %s", name)
	}
	return nil
}

func (g *Generator) genVarDecl(id ast.NodeID, n *ast.Node) (result, error) {
	if len(n.Children) < 2 {
		// declaration without initializer
		return result{}, nil
	}
	return g.genAssign(id, n)
}

// genAssign emits name = value and returns the name, so assignments can be
// used as expressions.
func (g *Generator) genAssign(id ast.NodeID, n *ast.Node) (result, error) {
	if len(n.Children) != 2 {
		return result{}, errors.Wrap(ErrMalformed, "%s at %s needs a target and a value", n.Kind(), n.Token.Pos)
	}
	target := g.tree.Node(n.Children[0])
	if target == nil || target.Kind() != ast.Ident {
		return result{}, errors.Wrap(ErrMalformed, "assignment target at %s is not an identifier", n.Token.Pos)
	}

	val, err := g.genExpr(n.Children[1])
	if err != nil {
		return result{}, errors.Wrap(err, "assign %s", target.Value())
	}

	name := tac.Operand(target.Value())
	g.emit(tac.Copy(name, val))
	return result{val: name}, nil
}

func (g *Generator) genBinary(id ast.NodeID, n *ast.Node) (result, error) {
	op, ok := tac.ParseOp(n.Value())
	if !ok || !op.IsBinary() {
		return result{}, errors.Wrap(ErrMalformed, "unknown operator %q at %s", n.Value(), n.Token.Pos)
	}
	if len(n.Children) != 2 {
		return result{}, errors.Wrap(ErrMalformed, "operator %s at %s needs two operands", op, n.Token.Pos)
	}

	lhs, err := g.genExpr(n.Children[0])
	if err != nil {
		return result{}, err
	}
	rhs, err := g.genExpr(n.Children[1])
	if err != nil {
		return result{}, err
	}

	t := g.NewTemp()
	g.emit(tac.Binary(op, t, lhs, rhs))
	return result{val: t}, nil
}

func (g *Generator) genReturn(n *ast.Node) error {
	if len(n.Children) == 0 {
		g.emit(tac.Return(tac.NoOperand))
		return nil
	}
	val, err := g.genExpr(n.Children[0])
	if err != nil {
		return errors.Wrap(err, "return")
	}
	g.emit(tac.Return(val))
	return nil
}

// genIf lowers
//
//	if cond goto ifLabel else goto (elseLabel or endLabel)
//	ifLabel: then; goto endLabel
//	elseLabel: else; goto endLabel
//
// and returns endLabel for the caller to place.
func (g *Generator) genIf(id ast.NodeID, n *ast.Node) (result, error) {
	if len(n.Children) < 2 || len(n.Children) > 3 {
		return result{}, errors.Wrap(ErrMalformed, "if at %s has %d children", n.Token.Pos, len(n.Children))
	}
	hasElse := len(n.Children) == 3

	cond, err := g.genExpr(n.Children[0])
	if err != nil {
		return result{}, errors.Wrap(err, "if condition")
	}

	ifLabel := g.NewLabel()
	var elseLabel string
	if hasElse {
		elseLabel = g.NewLabel()
	}
	endLabel := g.NewLabel()

	falseTarget := endLabel
	if hasElse {
		falseTarget = elseLabel
	}
	g.emit(tac.If(cond, ifLabel, falseTarget))

	g.emit(tac.Label(ifLabel))
	if err := g.genBody(n.Children[1]); err != nil {
		return result{}, errors.Wrap(err, "then branch")
	}
	g.emit(tac.Goto(endLabel))

	if hasElse {
		g.emit(tac.Label(elseLabel))
		if err := g.genBody(n.Children[2]); err != nil {
			return result{}, errors.Wrap(err, "else branch")
		}
		g.emit(tac.Goto(endLabel))
	}

	return result{end: endLabel}, nil
}

// genWhile lowers a loop that re-tests its condition at the top.
func (g *Generator) genWhile(id ast.NodeID, n *ast.Node) (result, error) {
	if len(n.Children) != 2 {
		return result{}, errors.Wrap(ErrMalformed, "while at %s has %d children", n.Token.Pos, len(n.Children))
	}
	end, err := g.genLoop(n.Children[0], n.Children[1], ast.None)
	return result{end: end}, err
}

// genFor runs the initializer once, then lowers a while loop whose body is
// followed by the update.
func (g *Generator) genFor(id ast.NodeID, n *ast.Node) (result, error) {
	if len(n.Children) != 4 {
		return result{}, errors.Wrap(ErrMalformed, "for at %s has %d children", n.Token.Pos, len(n.Children))
	}
	if _, err := g.gen(n.Children[0]); err != nil {
		return result{}, errors.Wrap(err, "for init")
	}
	end, err := g.genLoop(n.Children[1], n.Children[3], n.Children[2])
	return result{end: end}, err
}

func (g *Generator) genLoop(condID, bodyID, updateID ast.NodeID) (string, error) {
	start := g.NewLabel()
	body := g.NewLabel()
	end := g.NewLabel()

	g.emit(tac.Label(start))
	cond, err := g.genExpr(condID)
	if err != nil {
		return "", errors.Wrap(err, "loop condition")
	}
	g.emit(tac.If(cond, body, end))

	g.emit(tac.Label(body))
	if err := g.genBody(bodyID); err != nil {
		return "", errors.Wrap(err, "loop body")
	}
	if updateID != ast.None {
		if _, err := g.gen(updateID); err != nil {
			return "", errors.Wrap(err, "loop update")
		}
	}
	g.emit(tac.Goto(start))

	return end, nil
}

// genBody lowers a branch or loop body, which is normally a Block but may be
// a single statement.
func (g *Generator) genBody(id ast.NodeID) error {
	n := g.tree.Node(id)
	if n == nil {
		return nil
	}
	if n.Kind() == ast.Block {
		return g.genList(n.Children)
	}
	return g.genList([]ast.NodeID{id})
}

func (g *Generator) genCall(n *ast.Node) (result, error) {
	callee := n.Value()
	if !g.syms.IsFunction(callee, g.scope) {
		return result{}, errors.Wrap(ErrUndefined, "call to %s at %s", callee, n.Token.Pos)
	}

	args := make([]tac.Operand, 0, len(n.Children))
	for i, c := range n.Children {
		a, err := g.genExpr(c)
		if err != nil {
			return result{}, errors.Wrap(err, "argument %d of %s", i+1, callee)
		}
		args = append(args, a)
	}

	t := g.NewTemp()
	g.emit(tac.Call(t, callee, args...))
	return result{val: t}, nil
}

// charValue lowers a character literal to its code point.
func charValue(lit string) (tac.Operand, error) {
	s := lit
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	r, _, tail, err := strconv.UnquoteChar(s, '\'')
	if err != nil || tail != "" {
		return tac.NoOperand, errors.New("bad character literal %s", lit)
	}
	return tac.Int64(int64(r)), nil
}
