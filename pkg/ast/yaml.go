package ast

import (
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

// yamlNode is the serialized form of a node.
type yamlNode struct {
	Kind     string     `yaml:"kind"`
	Value    string     `yaml:"value,omitempty"`
	Line     int        `yaml:"line,omitempty"`
	Column   int        `yaml:"column,omitempty"`
	Children []yamlNode `yaml:"children,omitempty"`
}

// UnmarshalYAML decodes a nested node mapping into the arena.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	var root yamlNode
	if err := value.Decode(&root); err != nil {
		return errors.Wrap(err, "decode tree")
	}

	*t = *NewTree()
	id, err := t.addYAML(root)
	if err != nil {
		return err
	}
	t.Root = id
	return nil
}

func (t *Tree) addYAML(n yamlNode) (NodeID, error) {
	kind, ok := ParseKind(n.Kind)
	if !ok {
		return None, errors.New("line %d: unknown node kind %q", n.Line, n.Kind)
	}

	children := make([]NodeID, 0, len(n.Children))
	for _, c := range n.Children {
		id, err := t.addYAML(c)
		if err != nil {
			return None, err
		}
		children = append(children, id)
	}

	return t.Add(kind, n.Value, Pos{Line: n.Line, Column: n.Column}, children...), nil
}

// MarshalYAML encodes the tree as nested mappings.
func (t *Tree) MarshalYAML() (interface{}, error) {
	return t.toYAML(t.Root), nil
}

func (t *Tree) toYAML(id NodeID) yamlNode {
	n := t.Node(id)
	if n == nil {
		return yamlNode{}
	}
	y := yamlNode{
		Kind:   n.Kind().String(),
		Value:  n.Value(),
		Line:   n.Token.Pos.Line,
		Column: n.Token.Pos.Column,
	}
	for _, c := range n.Children {
		y.Children = append(y.Children, t.toYAML(c))
	}
	return y
}
