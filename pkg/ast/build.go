package ast

// Builder offers shorthand constructors for assembling trees by hand,
// mostly for tests and tooling. Positions are left zero.
type Builder struct {
	*Tree
}

// NewBuilder creates a builder over a fresh tree.
func NewBuilder() *Builder {
	return &Builder{Tree: NewTree()}
}

func (b *Builder) Program(decls ...NodeID) NodeID {
	id := b.Add(Program, "", Pos{}, decls...)
	b.Root = id
	return id
}

func (b *Builder) Block(stmts ...NodeID) NodeID {
	return b.Add(Block, "", Pos{}, stmts...)
}

func (b *Builder) Func(name string, body ...NodeID) NodeID {
	return b.Add(Func, name, Pos{}, b.Block(body...))
}

func (b *Builder) Num(v string) NodeID {
	return b.Add(Number, v, Pos{})
}

func (b *Builder) Char(v string) NodeID {
	return b.Add(Char, v, Pos{})
}

func (b *Builder) Ident(name string) NodeID {
	return b.Add(Ident, name, Pos{})
}

func (b *Builder) Decl(name string, init NodeID) NodeID {
	id := b.Add(VarDecl, "", Pos{}, b.Ident(name))
	b.AddChild(id, init)
	return id
}

func (b *Builder) Assign(name string, expr NodeID) NodeID {
	return b.Add(Assign, "=", Pos{}, b.Ident(name), expr)
}

func (b *Builder) Bin(op string, lhs, rhs NodeID) NodeID {
	return b.Add(Binary, op, Pos{}, lhs, rhs)
}

func (b *Builder) Return(expr NodeID) NodeID {
	id := b.Add(Return, "", Pos{})
	b.AddChild(id, expr)
	return id
}

func (b *Builder) If(cond NodeID, then []NodeID, els []NodeID) NodeID {
	id := b.Add(If, "", Pos{}, cond, b.Block(then...))
	if els != nil {
		b.AddChild(id, b.Block(els...))
	}
	return id
}

func (b *Builder) While(cond NodeID, body ...NodeID) NodeID {
	return b.Add(While, "", Pos{}, cond, b.Block(body...))
}

func (b *Builder) For(init, cond, update NodeID, body ...NodeID) NodeID {
	return b.Add(For, "", Pos{}, init, cond, update, b.Block(body...))
}

func (b *Builder) Call(callee string, args ...NodeID) NodeID {
	return b.Add(Call, callee, Pos{}, args...)
}
