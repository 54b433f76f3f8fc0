package tre

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Descriptors are YAML documents, one schema per document:
//
//	tag: GRDPSB
//	description: Grid points set B
//	fields:
//	  - {name: NUM_GRDS, type: integer, width: 2}
//	  - group: GRDS
//	    count: NUM_GRDS
//	    fields:
//	      - {name: ZVL, type: real, width: 10, signed: true, precision: 2}
//	  - if: 'UNIAAH.trim() != ""'
//	    fields:
//	      - {name: AAH, type: integer, width: 5}
//
// A group's count is a literal number or the name of an earlier integer
// field; count_expr takes a CEL integer expression instead.
type descriptor struct {
	Tag         string           `yaml:"tag"`
	Description string           `yaml:"description,omitempty"`
	Fields      []descriptorNode `yaml:"fields"`
}

type descriptorNode struct {
	Name      string  `yaml:"name,omitempty"`
	Type      string  `yaml:"type,omitempty"`
	Width     int     `yaml:"width,omitempty"`
	Signed    bool    `yaml:"signed,omitempty"`
	Precision int     `yaml:"precision,omitempty"`
	Default   *string `yaml:"default,omitempty"`

	Group     string `yaml:"group,omitempty"`
	Count     string `yaml:"count,omitempty"`
	CountExpr string `yaml:"count_expr,omitempty"`

	If string `yaml:"if,omitempty"`

	Fields []descriptorNode `yaml:"fields,omitempty"`
}

// LoadSchemas reads every schema from a YAML descriptor stream. Unknown keys,
// malformed layouts and bad expressions fail with *ErrSchemaLoad.
func LoadSchemas(r io.Reader) ([]*Schema, error) {
	return loadSchemas(r, "")
}

func loadSchemas(r io.Reader, source string) ([]*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var schemas []*Schema
	for doc := 0; ; doc++ {
		var d descriptor
		err := dec.Decode(&d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ErrSchemaLoad{Source: source, Reason: fmt.Sprintf("document %d", doc), Err: err}
		}
		if d.Tag == "" && len(d.Fields) == 0 {
			continue
		}
		s, err := d.schema()
		if err != nil {
			var le *ErrSchemaLoad
			if errors.As(err, &le) && le.Source == "" {
				le.Source = source
			}
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

func (d *descriptor) schema() (*Schema, error) {
	if d.Tag == "" {
		return nil, &ErrSchemaLoad{Reason: "descriptor without tag"}
	}
	body, err := descriptorNodes(d.Fields)
	if err != nil {
		return nil, &ErrSchemaLoad{Tag: d.Tag, Reason: "invalid descriptor", Err: err}
	}
	return NewSchema(d.Tag, d.Description, body...)
}

func descriptorNodes(in []descriptorNode) ([]Node, error) {
	out := make([]Node, 0, len(in))
	for i := range in {
		n, err := in[i].node()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (n *descriptorNode) node() (Node, error) {
	switch {
	case n.Group != "":
		if n.Name != "" || n.Type != "" || n.If != "" {
			return nil, fmt.Errorf("group %s mixes field or condition keys", n.Group)
		}
		body, err := descriptorNodes(n.Fields)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", n.Group, err)
		}
		g := &GroupSpec{Name: n.Group, Body: body}
		switch {
		case n.Count != "" && n.CountExpr != "":
			return nil, fmt.Errorf("group %s has both count and count_expr", n.Group)
		case n.CountExpr != "":
			g.Count = CountExpr(n.CountExpr)
		case n.Count == "":
			return nil, fmt.Errorf("group %s has no count", n.Group)
		case allDigits(n.Count):
			lit, err := strconv.Atoi(n.Count)
			if err != nil {
				return nil, fmt.Errorf("group %s: count %q: %w", n.Group, n.Count, err)
			}
			g.Count = Times(lit)
		default:
			g.Count = CountOf(n.Count)
		}
		return g, nil

	case n.If != "":
		if n.Name != "" || n.Type != "" {
			return nil, fmt.Errorf("condition %q mixes field keys", n.If)
		}
		body, err := descriptorNodes(n.Fields)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", n.If, err)
		}
		return &ConditionSpec{Expr: n.If, Body: body}, nil

	default:
		if len(n.Fields) > 0 || n.Count != "" || n.CountExpr != "" {
			return nil, fmt.Errorf("field %s has group keys", n.Name)
		}
		kind, err := ParseKind(n.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", n.Name, err)
		}
		f := &FieldSpec{Name: n.Name, Kind: kind, Width: n.Width, Signed: n.Signed, Precision: n.Precision}
		if n.Default != nil {
			f.Default, f.HasDefault = *n.Default, true
		}
		return f, nil
	}
}
