package symtab

import (
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

type yamlEntry struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type,omitempty"`
	Scope string `yaml:"scope"`
	Kind  string `yaml:"kind"`
}

// UnmarshalYAML decodes a list of entries. Order in the list is declaration order.
func (t *Table) UnmarshalYAML(value *yaml.Node) error {
	var entries []yamlEntry
	if err := value.Decode(&entries); err != nil {
		return errors.Wrap(err, "decode symbols")
	}

	*t = *New()
	for _, e := range entries {
		kind, ok := ParseKind(e.Kind)
		if !ok {
			return errors.New("symbol %s: unknown kind %q", e.Name, e.Kind)
		}
		scope := e.Scope
		if scope == "" {
			scope = Global
		}
		if _, err := t.Add(e.Name, e.Type, scope, kind); err != nil {
			return err
		}
	}
	return nil
}

// MarshalYAML encodes the table as a flat entry list.
func (t *Table) MarshalYAML() (interface{}, error) {
	var out []yamlEntry
	for _, scope := range t.order {
		for _, e := range t.scopes[scope].order {
			out = append(out, yamlEntry{Name: e.Name, Type: e.Type, Scope: e.Scope, Kind: e.Kind.String()})
		}
	}
	return out, nil
}
