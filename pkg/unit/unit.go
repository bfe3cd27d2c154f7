// Package unit loads a compilation unit: a syntax tree together with the
// symbol table describing it, both stored in one YAML document.
//
//	symbols:
//	  - {name: main, scope: global, kind: function}
//	  - {name: x, scope: main, kind: variable}
//	tree:
//	  kind: program
//	  children: [...]
package unit

import (
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/tacc/pkg/ast"
	"github.com/raymyers/tacc/pkg/symtab"
)

// Unit is one program ready for TAC generation.
type Unit struct {
	Symbols *symtab.Table `yaml:"symbols"`
	Tree    *ast.Tree     `yaml:"tree"`
}

// ErrNoTree is returned for a document without a tree.
var ErrNoTree = errors.New("unit has no tree")

// Load reads and decodes a unit file.
func Load(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read unit")
	}

	u, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "%s", path)
	}

	tlog.V("unit").Printw("loaded", "path", path, "nodes", u.Tree.Len(), "scopes", len(u.Symbols.Scopes()))

	return u, nil
}

// Parse decodes a unit document. A missing symbol list yields an empty table.
func Parse(data []byte) (*Unit, error) {
	var u Unit
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, errors.Wrap(err, "decode unit")
	}
	if u.Tree == nil {
		return nil, ErrNoTree
	}
	if u.Symbols == nil {
		u.Symbols = symtab.New()
	}
	return &u, nil
}
