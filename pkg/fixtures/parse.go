package fixtures

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a parsed fixture file. Classes and rows keep the order in
// which the file declares them.
type Document struct {
	Name    string
	Classes []Class
}

// Class is the body of one class key. Rows is nil when the body is not a
// mapping; such a class is only emptied.
type Class struct {
	Name string
	Rows []Row
}

type Row struct {
	Key        string
	Attributes []Attribute
}

// Attribute is a scalar value, or a list of symbolic keys when Refs is set.
type Attribute struct {
	Name  string
	Value interface{}
	Refs  []string
}

// IsList reports whether the attribute names many-to-many rows.
func (a Attribute) IsList() bool {
	return a.Refs != nil
}

// ParseFile reads the fixture file at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads one fixture document from r. name is used in errors.
func Parse(r io.Reader, name string) (*Document, error) {
	doc := &Document{Name: name}

	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFixture, name, err)
	}
	body := resolve(&root)
	if body.Kind == yaml.DocumentNode {
		if len(body.Content) == 0 {
			return doc, nil
		}
		body = resolve(body.Content[0])
	}
	if isNull(body) {
		return doc, nil
	}
	if body.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping of classes", ErrMalformedFixture, name)
	}

	for i := 0; i+1 < len(body.Content); i += 2 {
		class := Class{Name: strings.TrimSpace(body.Content[i].Value)}
		rows := resolve(body.Content[i+1])
		if rows.Kind == yaml.MappingNode {
			parsed, err := parseRows(name, class.Name, rows)
			if err != nil {
				return nil, err
			}
			class.Rows = parsed
		}
		doc.Classes = append(doc.Classes, class)
	}
	return doc, nil
}

func parseRows(name, class string, n *yaml.Node) ([]Row, error) {
	rows := make([]Row, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		attrs := resolve(n.Content[i+1])
		if attrs.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: %s: you must give a name for each fixture data entry (class %s, entry %q)",
				ErrMalformedFixture, name, class, key)
		}
		pairs, err := mappingPairs(attrs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s.%s: %v", ErrMalformedFixture, name, class, key, err)
		}
		row := Row{Key: key}
		for _, pair := range pairs {
			attr, err := parseAttribute(pair[0].Value, resolve(pair[1]))
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %s.%s: %v", ErrMalformedFixture, name, class, key, err)
			}
			row.Attributes = append(row.Attributes, attr)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// mappingPairs returns the key/value pairs of a mapping with merge keys
// ("<<") expanded in place. Keys written in the mapping win over merged
// ones, and earlier merged mappings win over later ones.
func mappingPairs(n *yaml.Node) ([][2]*yaml.Node, error) {
	explicit := map[string]bool{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if !isMergeKey(n.Content[i]) {
			explicit[n.Content[i].Value] = true
		}
	}

	var pairs [][2]*yaml.Node
	seen := map[string]bool{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !isMergeKey(k) {
			pairs = append(pairs, [2]*yaml.Node{k, v})
			seen[k.Value] = true
			continue
		}

		var sources []*yaml.Node
		switch v = resolve(v); v.Kind {
		case yaml.MappingNode:
			sources = []*yaml.Node{v}
		case yaml.SequenceNode:
			for _, item := range v.Content {
				sources = append(sources, resolve(item))
			}
		}
		if len(sources) == 0 {
			return nil, fmt.Errorf("merge key must refer to a mapping or a list of mappings")
		}
		for _, src := range sources {
			if src.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("merge key must refer to a mapping or a list of mappings")
			}
			merged, err := mappingPairs(src)
			if err != nil {
				return nil, err
			}
			for _, pair := range merged {
				if name := pair[0].Value; !explicit[name] && !seen[name] {
					pairs = append(pairs, pair)
					seen[name] = true
				}
			}
		}
	}
	return pairs, nil
}

func isMergeKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Value == "<<" && (n.Tag == "" || n.Tag == "!!merge")
}

func parseAttribute(name string, n *yaml.Node) (Attribute, error) {
	attr := Attribute{Name: name}
	switch n.Kind {
	case yaml.SequenceNode:
		attr.Refs = make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolve(item)
			if item.Kind != yaml.ScalarNode {
				return attr, fmt.Errorf("attribute %q: list items must be keys", name)
			}
			attr.Refs = append(attr.Refs, item.Value)
		}
	case yaml.ScalarNode:
		if err := n.Decode(&attr.Value); err != nil {
			return attr, fmt.Errorf("attribute %q: %v", name, err)
		}
	default:
		return attr, fmt.Errorf("attribute %q: unsupported value", name)
	}
	return attr, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
