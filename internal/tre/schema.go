package tre

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Kind identifies how the bytes of a fixed-width field are interpreted.
type Kind int

const (
	// KindText is a fixed-width single-byte character string (BCS-A / ECS-A).
	KindText Kind = iota + 1
	// KindInteger is an ASCII digit sequence, optionally led by a sign when Signed.
	KindInteger
	// KindReal is an ASCII decimal number with a literal decimal point.
	KindReal
	// KindBinary is an opaque byte run.
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a descriptor type name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text", "A":
		return KindText, nil
	case "integer", "N":
		return KindInteger, nil
	case "real", "R":
		return KindReal, nil
	case "binary", "B":
		return KindBinary, nil
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// Node is one element of a schema sequence: *FieldSpec, *GroupSpec or *ConditionSpec.
type Node interface {
	node()
}

// FieldSpec describes one fixed-width scalar field.
type FieldSpec struct {
	Name   string
	Kind   Kind
	Width  int
	Signed bool

	// Precision is the number of digits after the decimal point for KindReal.
	// Zero accepts any position of the decimal point.
	Precision int

	// Default is used by the serializer when the value tree has no entry for
	// this field. Only honoured when HasDefault is set.
	Default    string
	HasDefault bool
}

// GroupSpec describes a repeating group of nested fields.
type GroupSpec struct {
	Name  string
	Count RepeatCount
	Body  []Node
}

// ConditionSpec includes Body in the enclosing sequence when Expr is true.
//
// Expr is a CEL expression over the fields visible at that point: integer
// fields are int, real fields double, text fields string and binary fields bytes.
type ConditionSpec struct {
	Expr string
	Body []Node

	expr *expression
}

func (*FieldSpec) node()     {}
func (*GroupSpec) node()     {}
func (*ConditionSpec) node() {}

// RepeatCount is the source of a group's repetition count. Exactly one of
// Ref or Expr may be set; when neither is, Literal is used.
type RepeatCount struct {
	Literal int
	Ref     string
	Expr    string

	expr *expression
}

// Times is a literal repeat count.
func Times(n int) RepeatCount { return RepeatCount{Literal: n} }

// CountOf takes the repeat count from an earlier integer field.
func CountOf(field string) RepeatCount { return RepeatCount{Ref: field} }

// CountExpr computes the repeat count from a CEL integer expression.
func CountExpr(src string) RepeatCount { return RepeatCount{Expr: src} }

func (c RepeatCount) String() string {
	switch {
	case c.Ref != "":
		return c.Ref
	case c.Expr != "":
		return c.Expr
	default:
		return strconv.Itoa(c.Literal)
	}
}

// Schema is the field layout of one TRE tag. A Schema is immutable once
// returned by NewSchema or LoadSchemas and may be shared between goroutines.
type Schema struct {
	Tag         string
	Description string
	Body        []Node
}

// NewSchema validates body and returns a schema owning a private copy of it.
//
// Validation enforces what the parser relies on: a tag that fits the
// extension header, positive widths, names unique within each sequence, and
// repeat counts and conditions that only refer to
// fields defined earlier in the same or an enclosing scope.
func NewSchema(tag, description string, body ...Node) (*Schema, error) {
	if err := checkTag(tag); err != nil {
		return nil, err
	}
	v := &validator{tag: tag}
	nodes, _, err := v.sequence(tag, body, map[string]*FieldSpec{}, nil)
	if err != nil {
		return nil, err
	}
	return &Schema{Tag: tag, Description: description, Body: nodes}, nil
}

// maxTagLength is the width of the tag in an extension header.
const maxTagLength = 6

// checkTag accepts tags that fit the extension header: one to six printable
// ASCII characters without spaces.
func checkTag(tag string) error {
	if tag == "" {
		return &ErrSchemaLoad{Reason: "empty tag"}
	}
	if len(tag) > maxTagLength {
		return &ErrSchemaLoad{Tag: tag, Reason: fmt.Sprintf("tag longer than %d characters", maxTagLength)}
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] <= ' ' || tag[i] > '~' {
			return &ErrSchemaLoad{Tag: tag, Reason: fmt.Sprintf("tag has invalid character %q", tag[i])}
		}
	}
	return nil
}

type validator struct {
	tag string
}

func (v *validator) fail(path, format string, args ...any) error {
	return &ErrSchemaLoad{Tag: v.tag, Reason: path + ": " + fmt.Sprintf(format, args...)}
}

// sequence copies and checks nodes. visible holds the fields in scope and is
// extended in place with the fields of this sequence.
//
// Entries of a conditional body land in the enclosing sequence, so reserved
// holds the names the enclosing sequence already uses. Names declared inside
// conditional bodies are returned; sibling bodies may share them, but no
// unconditional entry may.
func (v *validator) sequence(path string, nodes []Node, visible map[string]*FieldSpec, reserved map[string]bool) ([]Node, map[string]bool, error) {
	out := make([]Node, 0, len(nodes))
	seen := make(map[string]bool, len(nodes)+len(reserved))
	for name := range reserved {
		seen[name] = true
	}
	conditional := make(map[string]bool)
	declared := make(map[string]bool, len(nodes))
	taken := func(name string) bool { return seen[name] || conditional[name] }

	for i, n := range nodes {
		switch n := n.(type) {
		case *FieldSpec:
			if n == nil {
				return nil, nil, v.fail(path, "node %d is nil", i)
			}
			f := *n
			if err := v.field(path, &f); err != nil {
				return nil, nil, err
			}
			if taken(f.Name) {
				return nil, nil, v.fail(path, "duplicate name %s", f.Name)
			}
			seen[f.Name] = true
			declared[f.Name] = true
			visible[f.Name] = &f
			out = append(out, &f)

		case *GroupSpec:
			if n == nil {
				return nil, nil, v.fail(path, "node %d is nil", i)
			}
			g, err := v.group(path, n, visible)
			if err != nil {
				return nil, nil, err
			}
			if taken(g.Name) {
				return nil, nil, v.fail(path, "duplicate name %s", g.Name)
			}
			seen[g.Name] = true
			declared[g.Name] = true
			out = append(out, g)

		case *ConditionSpec:
			if n == nil {
				return nil, nil, v.fail(path, "node %d is nil", i)
			}
			expr, err := compileExpr(n.Expr, visible)
			if err != nil {
				return nil, nil, &ErrSchemaLoad{Tag: v.tag, Reason: path + ": condition " + strconv.Quote(n.Expr), Err: err}
			}
			// Fields of a conditional block join the enclosing scope.
			body, names, err := v.sequence(path+"/if", n.Body, visible, seen)
			if err != nil {
				return nil, nil, err
			}
			for name := range names {
				conditional[name] = true
				declared[name] = true
			}
			out = append(out, &ConditionSpec{Expr: n.Expr, Body: body, expr: expr})

		default:
			return nil, nil, v.fail(path, "node %d has unsupported type %T", i, n)
		}
	}
	return out, declared, nil
}

func (v *validator) field(path string, f *FieldSpec) error {
	if f.Name == "" {
		return v.fail(path, "field with empty name")
	}
	if f.Width <= 0 {
		return v.fail(path, "field %s: width must be positive, got %d", f.Name, f.Width)
	}
	switch f.Kind {
	case KindText, KindBinary:
		if f.Signed || f.Precision != 0 {
			return v.fail(path, "field %s: sign and precision only apply to numeric fields", f.Name)
		}
	case KindInteger:
		if f.Precision != 0 {
			return v.fail(path, "field %s: precision only applies to real fields", f.Name)
		}
		if f.Signed && f.Width < 2 {
			return v.fail(path, "field %s: signed integer needs width of at least 2", f.Name)
		}
	case KindReal:
		if f.Precision < 0 {
			return v.fail(path, "field %s: negative precision", f.Name)
		}
		if f.Precision > 0 {
			intDigits := f.Width - f.Precision - 1
			if f.Signed {
				intDigits--
			}
			if intDigits < 1 {
				return v.fail(path, "field %s: precision %d leaves no integer digits in width %d",
					f.Name, f.Precision, f.Width)
			}
		}
	default:
		return v.fail(path, "field %s: invalid kind %v", f.Name, f.Kind)
	}
	if f.HasDefault && utf8.RuneCountInString(f.Default) > f.Width {
		return v.fail(path, "field %s: default %q longer than width %d", f.Name, f.Default, f.Width)
	}
	return nil
}

func (v *validator) group(path string, n *GroupSpec, visible map[string]*FieldSpec) (*GroupSpec, error) {
	if n.Name == "" {
		return nil, v.fail(path, "group with empty name")
	}
	gpath := path + "/" + n.Name
	if len(n.Body) == 0 {
		return nil, v.fail(gpath, "group has no fields")
	}

	count := RepeatCount{Literal: n.Count.Literal, Ref: n.Count.Ref, Expr: n.Count.Expr}
	switch {
	case count.Ref != "" && count.Expr != "":
		return nil, v.fail(gpath, "repeat count has both a reference and an expression")
	case count.Ref != "":
		ref, ok := visible[count.Ref]
		if !ok {
			return nil, v.fail(gpath, "repeat count refers to %s, which is not defined earlier in scope", count.Ref)
		}
		if ref.Kind != KindInteger {
			return nil, v.fail(gpath, "repeat count refers to %s, a %v field", count.Ref, ref.Kind)
		}
	case count.Expr != "":
		expr, err := compileExpr(count.Expr, visible)
		if err != nil {
			return nil, &ErrSchemaLoad{Tag: v.tag, Reason: gpath + ": repeat count " + strconv.Quote(count.Expr), Err: err}
		}
		count.expr = expr
	case count.Literal < 0:
		return nil, v.fail(gpath, "negative literal repeat count %d", count.Literal)
	}

	// The group body sees the parent scope but never publishes back into it.
	child := make(map[string]*FieldSpec, len(visible))
	for k, f := range visible {
		child[k] = f
	}
	body, _, err := v.sequence(gpath, n.Body, child, nil)
	if err != nil {
		return nil, err
	}
	if count.Ref == "" && count.Expr == "" && count.Literal > maxEmptyRepetitions && minWidth(body) == 0 {
		return nil, v.fail(gpath, "literal repeat count %d over a body that may read no bytes (limit %d)",
			count.Literal, maxEmptyRepetitions)
	}
	return &GroupSpec{Name: n.Name, Count: count, Body: body}, nil
}

// minWidth is the number of bytes nodes always consume. Groups and
// conditional bodies may consume nothing.
func minWidth(nodes []Node) int {
	n := 0
	for _, node := range nodes {
		if f, ok := node.(*FieldSpec); ok {
			n += f.Width
		}
	}
	return n
}
