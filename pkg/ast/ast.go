// Package ast defines the syntax tree consumed by the TAC generator.
// Nodes live in an arena owned by a Tree and refer to their children by index,
// so a tree can be shared read-only between independent passes.
package ast

import "fmt"

// Kind identifies the construct a node represents.
type Kind int

const (
	Invalid Kind = iota
	Program      // top level: declarations and functions
	Block        // grouping node holding a statement list
	Func         // function definition; token value is the name, child 0 is the body
	VarDecl      // declaration: Ident, optional initializer
	Assign       // assignment: Ident, expression
	Binary       // binary operator: lhs, rhs; token value is the operator
	Return       // return with optional expression
	If           // cond, then Block, optional else Block
	While        // cond, body Block
	For          // init, cond, update, body Block
	Call         // call; token value is the callee, children are arguments
	Number       // numeric literal
	Char         // character literal
	Ident        // identifier reference
)

var kindNames = [...]string{
	Invalid: "invalid",
	Program: "program",
	Block:   "block",
	Func:    "func",
	VarDecl: "var_decl",
	Assign:  "assign",
	Binary:  "binary",
	Return:  "return",
	If:      "if",
	While:   "while",
	For:     "for",
	Call:    "call",
	Number:  "number",
	Char:    "char",
	Ident:   "ident",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && Kind(k) != Invalid {
			return Kind(k), true
		}
	}
	return Invalid, false
}

// Pos is a source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is the lexical token a node was built from.
type Token struct {
	Kind  Kind
	Value string
	Pos   Pos
}

func (t Token) String() string {
	if t.Value == "" {
		return fmt.Sprintf("%s at %s", t.Kind, t.Pos)
	}
	return fmt.Sprintf("%s %q at %s", t.Kind, t.Value, t.Pos)
}

// NodeID indexes a node in its Tree. The zero value is never a valid node.
type NodeID int

// None is the absent node.
const None NodeID = 0

// Node is one syntax tree node.
type Node struct {
	Token    Token
	Children []NodeID
}

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.Token.Kind }

// Value returns the node's literal value or name.
func (n *Node) Value() string { return n.Token.Value }

// Tree is an arena of nodes.
type Tree struct {
	nodes []Node
	Root  NodeID
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	// Slot 0 is reserved so that None never aliases a real node
	return &Tree{nodes: make([]Node, 1)}
}

// Add appends a node and returns its id.
func (t *Tree) Add(kind Kind, value string, pos Pos, children ...NodeID) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		Token:    Token{Kind: kind, Value: value, Pos: pos},
		Children: children,
	})
	return id
}

// AddChild appends child to parent's children.
func (t *Tree) AddChild(parent, child NodeID) {
	if child == None {
		return
	}
	n := &t.nodes[parent]
	n.Children = append(n.Children, child)
}

// Node returns the node with the given id, or nil if the id is out of range.
func (t *Tree) Node(id NodeID) *Node {
	if id <= None || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Child returns the i-th child of id, or None.
func (t *Tree) Child(id NodeID, i int) NodeID {
	n := t.Node(id)
	if n == nil || i < 0 || i >= len(n.Children) {
		return None
	}
	return n.Children[i]
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// Walk visits the subtree rooted at id in pre-order.
// The visit function receives the node depth; returning false prunes the subtree.
func (t *Tree) Walk(id NodeID, visit func(id NodeID, depth int) bool) {
	t.walk(id, 0, visit)
}

func (t *Tree) walk(id NodeID, depth int, visit func(NodeID, int) bool) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if !visit(id, depth) {
		return
	}
	for _, c := range n.Children {
		t.walk(c, depth+1, visit)
	}
}

// Tokens returns the tokens of the tree in pre-order.
func (t *Tree) Tokens() []Token {
	var toks []Token
	t.Walk(t.Root, func(id NodeID, _ int) bool {
		toks = append(toks, t.Node(id).Token)
		return true
	})
	return toks
}
