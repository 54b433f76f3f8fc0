package tre

import (
	"fmt"
)

// Parse decodes one TRE payload.
//
// data holds the TRE content (without the tag and length header) and must
// contain at least declaredLength bytes; bytes beyond declaredLength are
// ignored. When schema is nil the payload is returned verbatim as an *Unknown;
// an unknown tag is not an error. Otherwise the schema is walked against the
// payload and the result is a *Tree whose fields consumed exactly
// declaredLength bytes.
//
// Failures are *ErrTruncatedRecord, *ErrUnresolvedRepeatCount,
// *ErrUnresolvedCondition or *ErrLengthMismatch, each carrying the tag and,
// where it applies, the byte offset.
func Parse(tag string, declaredLength int, data []byte, schema *Schema) (Extension, error) {
	if declaredLength < 0 {
		return nil, &ErrLengthMismatch{Tag: tag, Declared: declaredLength, Consumed: 0}
	}
	limit := declaredLength
	if len(data) < limit {
		limit = len(data)
	}

	if schema == nil {
		if len(data) < declaredLength {
			return nil, &ErrTruncatedRecord{Tag: tag, Field: "payload", Offset: 0, Need: declaredLength, Have: len(data)}
		}
		return NewUnknown(tag, data[:declaredLength]), nil
	}

	p := &parser{tag: tag, data: data[:limit]}
	tree := &Tree{tag: tag, length: declaredLength}
	if err := p.sequence(schema.Body, newSymbols(nil), &tree.Values); err != nil {
		return nil, err
	}
	if p.pos != declaredLength {
		return nil, &ErrLengthMismatch{Tag: tag, Declared: declaredLength, Consumed: p.pos}
	}
	return tree, nil
}

// ParseWith looks tag up in repo and parses data with the result.
func ParseWith(repo *Repository, tag string, declaredLength int, data []byte) (Extension, error) {
	schema, err := repo.Lookup(tag)
	if err != nil {
		return nil, err
	}
	return Parse(tag, declaredLength, data, schema)
}

// maxEmptyRepetitions bounds groups whose repetitions read nothing, which
// would otherwise let a corrupt count spin without advancing the cursor.
// Literal counts above it are rejected by NewSchema when the group body can
// read nothing.
const maxEmptyRepetitions = 1 << 16

// parser is the per-call cursor. It is never shared between calls.
type parser struct {
	tag  string
	data []byte
	pos  int
}

func (p *parser) sequence(nodes []Node, syms *symbols, out *Values) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *FieldSpec:
			s, err := p.field(n)
			if err != nil {
				return err
			}
			syms.bind(s)
			out.append(s)

		case *GroupSpec:
			g, err := p.group(n, syms)
			if err != nil {
				return err
			}
			out.append(g)

		case *ConditionSpec:
			if n.expr == nil {
				return errNotCompiled(p.tag, n.Expr)
			}
			ok, err := n.expr.evalBool(syms)
			if err != nil {
				return &ErrUnresolvedCondition{Tag: p.tag, Expr: n.Expr, Offset: p.pos, Err: err}
			}
			if ok {
				if err := p.sequence(n.Body, syms, out); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("%s: unsupported schema node %T", p.tag, n)
		}
	}
	return nil
}

func (p *parser) field(spec *FieldSpec) (*Scalar, error) {
	remaining := len(p.data) - p.pos
	if remaining < spec.Width {
		return nil, &ErrTruncatedRecord{Tag: p.tag, Field: spec.Name, Offset: p.pos, Need: spec.Width, Have: remaining}
	}
	s, err := DecodeScalar(spec, p.data[p.pos:p.pos+spec.Width])
	if err != nil {
		return nil, err
	}
	p.pos += spec.Width
	return s, nil
}

func (p *parser) group(spec *GroupSpec, syms *symbols) (*Group, error) {
	count, err := p.repeatCount(spec, syms)
	if err != nil {
		return nil, err
	}

	g := &Group{name: spec.Name}
	if count > 0 {
		// The count comes from the record itself; don't trust it for allocation.
		if c := int64(len(p.data) - p.pos); count <= c {
			g.reps = make([]*Values, 0, count)
		}
	}
	for i := int64(0); i < count; i++ {
		start := p.pos
		child := newSymbols(syms)
		rep := &Values{}
		if err := p.sequence(spec.Body, child, rep); err != nil {
			return nil, err
		}
		if p.pos == start && count > maxEmptyRepetitions && fromRecord(spec.Count) {
			return nil, &ErrUnresolvedRepeatCount{Tag: p.tag, Group: spec.Name, Ref: spec.Count.String(), Offset: p.pos,
				Reason: fmt.Sprintf("%d repetitions that consume no bytes", count)}
		}
		g.reps = append(g.reps, rep)
	}
	return g, nil
}

// fromRecord reports whether a repeat count is read from record data rather
// than fixed by the schema.
func fromRecord(c RepeatCount) bool { return c.Ref != "" || c.Expr != "" }

// repeatCount resolves a group's repetition count. Negative counts mean zero
// repetitions.
func (p *parser) repeatCount(spec *GroupSpec, syms *symbols) (int64, error) {
	var n int64
	switch {
	case spec.Count.Ref != "":
		v, ok := syms.lookup(spec.Count.Ref)
		if !ok {
			return 0, &ErrUnresolvedRepeatCount{Tag: p.tag, Group: spec.Name, Ref: spec.Count.Ref, Offset: p.pos,
				Reason: "field not bound in scope"}
		}
		c, err := v.Int()
		if err != nil {
			return 0, &ErrUnresolvedRepeatCount{Tag: p.tag, Group: spec.Name, Ref: spec.Count.Ref, Offset: p.pos,
				Reason: err.Error()}
		}
		n = c
	case spec.Count.Expr != "":
		if spec.Count.expr == nil {
			return 0, errNotCompiled(p.tag, spec.Count.Expr)
		}
		c, err := spec.Count.expr.evalInt(syms)
		if err != nil {
			return 0, &ErrUnresolvedRepeatCount{Tag: p.tag, Group: spec.Name, Ref: spec.Count.Expr, Offset: p.pos,
				Reason: err.Error()}
		}
		n = c
	default:
		n = int64(spec.Count.Literal)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

func errNotCompiled(tag, src string) error {
	return fmt.Errorf("%s: expression %q was not compiled; build schemas with NewSchema or LoadSchemas", tag, src)
}
