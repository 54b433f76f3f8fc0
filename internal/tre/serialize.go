package tre

import (
	"bytes"
	"fmt"
)

// Serialize writes tree back out using schema.
//
// It mirrors Parse: every field is encoded at its declared width and every
// group emits its repetitions in order. Repeat counts are not derived from
// the number of repetitions; the count field must already hold the right
// value. Entries are matched to schema nodes by name, each entry used once.
// A field missing from the tree uses the schema default when one is
// declared and fails with *ErrNotFound otherwise.
func Serialize(tree *Tree, schema *Schema) ([]byte, error) {
	if tree == nil || schema == nil {
		return nil, fmt.Errorf("serialize: nil tree or schema")
	}
	s := &serializer{tag: tree.tag}
	if err := s.sequence(schema.Body, newCursor(&tree.Values), newSymbols(nil)); err != nil {
		return nil, err
	}
	return s.buf.Bytes(), nil
}

// SerializeExtension writes the payload of ext. Unknown extensions are
// returned verbatim; trees are serialized with the schema for their tag.
func SerializeExtension(ext Extension, repo *Repository) ([]byte, error) {
	switch ext := ext.(type) {
	case *Unknown:
		return ext.Data(), nil
	case *Tree:
		schema, err := repo.Lookup(ext.Tag())
		if err != nil {
			return nil, err
		}
		if schema == nil {
			return nil, fmt.Errorf("%s: no schema to serialize with", ext.Tag())
		}
		return Serialize(ext, schema)
	}
	return nil, fmt.Errorf("serialize: unsupported extension %T", ext)
}

type serializer struct {
	tag string
	buf bytes.Buffer
}

func (s *serializer) sequence(nodes []Node, vals *cursor, syms *symbols) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *FieldSpec:
			raw, err := s.raw(n, vals)
			if err != nil {
				return err
			}
			b, err := EncodeScalar(n, raw)
			if err != nil {
				return err
			}
			s.buf.Write(b)
			// Bind what was written so later counts and conditions see the
			// same text a parser would.
			sc, err := DecodeScalar(n, b)
			if err != nil {
				return err
			}
			syms.bind(sc)

		case *GroupSpec:
			g, err := vals.group(n.Name)
			if err != nil {
				return err
			}
			for _, rep := range g.reps {
				if err := s.sequence(n.Body, newCursor(rep), newSymbols(syms)); err != nil {
					return err
				}
			}

		case *ConditionSpec:
			if n.expr == nil {
				return errNotCompiled(s.tag, n.Expr)
			}
			ok, err := n.expr.evalBool(syms)
			if err != nil {
				return &ErrUnresolvedCondition{Tag: s.tag, Expr: n.Expr, Offset: s.buf.Len(), Err: err}
			}
			if ok {
				if err := s.sequence(n.Body, vals, syms); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("%s: unsupported schema node %T", s.tag, n)
		}
	}
	return nil
}

func (s *serializer) raw(spec *FieldSpec, vals *cursor) (string, error) {
	e, ok := vals.take(spec.Name)
	if !ok {
		if spec.HasDefault {
			return spec.Default, nil
		}
		return "", &ErrNotFound{Name: spec.Name}
	}
	sc, ok := e.(*Scalar)
	if !ok {
		return "", &ErrNotFound{Name: spec.Name, Reason: "is a group, not a field"}
	}
	return sc.raw, nil
}

// cursor hands out the entries of one sequence in schema order. Each lookup
// takes the first entry with the name that has not been written yet, so a
// name repeated across conditional blocks maps to successive entries.
type cursor struct {
	vals *Values
	used []bool
}

func newCursor(v *Values) *cursor {
	return &cursor{vals: v, used: make([]bool, len(v.entries))}
}

func (c *cursor) take(name string) (Entry, bool) {
	for i, e := range c.vals.entries {
		if !c.used[i] && e.Name() == name {
			c.used[i] = true
			return e, true
		}
	}
	return nil, false
}

func (c *cursor) group(name string) (*Group, error) {
	e, ok := c.take(name)
	if !ok {
		return nil, &ErrNotFound{Name: name}
	}
	g, ok := e.(*Group)
	if !ok {
		return nil, &ErrNotFound{Name: name, Reason: "is a field, not a group"}
	}
	return g, nil
}
