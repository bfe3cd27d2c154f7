// Package symtab holds the symbol table produced alongside the syntax tree.
// Scopes form a flat namespace keyed by function name plus one "global" scope.
package symtab

import (
	"fmt"
	"io"

	"tlog.app/go/errors"
)

// Global is the name of the outermost scope.
const Global = "global"

// Kind distinguishes the role a symbol plays.
type Kind int

const (
	Variable Kind = iota
	Parameter
	Function
)

var kindNames = [...]string{
	Variable:  "variable",
	Parameter: "parameter",
	Function:  "function",
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
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Entry is one declared symbol.
type Entry struct {
	Name  string
	Type  string
	Scope string
	Kind  Kind
}

func (e *Entry) String() string {
	return fmt.Sprintf("Name: %s, Type: %s, Scope: %s, Kind: %s", e.Name, e.Type, e.Scope, e.Kind)
}

type scope struct {
	entries map[string]*Entry
	order   []*Entry // declaration order
}

// Table maps scope names to their symbols.
type Table struct {
	scopes map[string]*scope
	order  []string
}

// New creates an empty symbol table.
func New() *Table {
	return &Table{scopes: make(map[string]*scope)}
}

// ErrDuplicate is returned when a name is declared twice in one scope.
var ErrDuplicate = errors.New("symbol already declared")

// Add declares a symbol in a scope.
func (t *Table) Add(name, typ, scopeName string, kind Kind) (*Entry, error) {
	s, ok := t.scopes[scopeName]
	if !ok {
		s = &scope{entries: make(map[string]*Entry)}
		t.scopes[scopeName] = s
		t.order = append(t.order, scopeName)
	}
	if _, dup := s.entries[name]; dup {
		return nil, errors.Wrap(ErrDuplicate, "%s in scope %s", name, scopeName)
	}

	e := &Entry{Name: name, Type: typ, Scope: scopeName, Kind: kind}
	s.entries[name] = e
	s.order = append(s.order, e)
	return e, nil
}

// Lookup finds name in scopeName, falling back to the global scope.
// It returns nil if the name is declared in neither.
func (t *Table) Lookup(name, scopeName string) *Entry {
	if s, ok := t.scopes[scopeName]; ok {
		if e, ok := s.entries[name]; ok {
			return e
		}
	}
	if s, ok := t.scopes[Global]; ok {
		if e, ok := s.entries[name]; ok {
			return e
		}
	}
	return nil
}

// IsFunction reports whether name resolves to a function from scopeName.
func (t *Table) IsFunction(name, scopeName string) bool {
	e := t.Lookup(name, scopeName)
	return e != nil && e.Kind == Function
}

// FunctionParams returns the parameters of a function in declaration order,
// or nil if it has none.
func (t *Table) FunctionParams(function string) []*Entry {
	s, ok := t.scopes[function]
	if !ok {
		return nil
	}
	var params []*Entry
	for _, e := range s.order {
		if e.Kind == Parameter {
			params = append(params, e)
		}
	}
	return params
}

// Scopes returns scope names in the order they were first declared.
func (t *Table) Scopes() []string {
	return append([]string(nil), t.order...)
}

// Entries returns the symbols of a scope in declaration order.
func (t *Table) Entries(scopeName string) []*Entry {
	s, ok := t.scopes[scopeName]
	if !ok {
		return nil
	}
	return append([]*Entry(nil), s.order...)
}

// Print writes the table grouped by scope.
func (t *Table) Print(w io.Writer) {
	if len(t.order) == 0 {
		fmt.Fprintln(w, "Symbol table is empty")
		return
	}
	for _, name := range t.order {
		fmt.Fprintf(w, "Scope: %s\n", name)
		for _, e := range t.scopes[name].order {
			fmt.Fprintf(w, "  %s\n", e)
		}
		fmt.Fprintln(w)
	}
}
