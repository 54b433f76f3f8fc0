package tre

import (
	"strconv"
	"strings"
)

// Extension is the result of parsing one TRE: a *Tree when a schema was
// available, otherwise an *Unknown holding the raw payload.
type Extension interface {
	Tag() string
	Length() int
}

// Entry is one named element of a value sequence: *Scalar or *Group.
type Entry interface {
	Name() string
	entry()
}

// Scalar is the value of one fixed-width field. The raw text is kept exactly
// as read so that re-serialization is lossless; numeric access is coerced on
// demand.
type Scalar struct {
	spec FieldSpec
	raw  string
}

// NewField creates a scalar bound to spec. raw is the field's text (or the
// bytes of a binary field) and may be shorter than spec.Width; the serializer
// pads it.
func NewField(spec FieldSpec, raw string) *Scalar {
	spec.HasDefault, spec.Default = false, ""
	return &Scalar{spec: spec, raw: raw}
}

// NewText creates a text scalar.
func NewText(name, s string) *Scalar {
	return &Scalar{spec: FieldSpec{Name: name, Kind: KindText, Width: len(s)}, raw: s}
}

// NewInteger creates an integer scalar from n.
func NewInteger(name string, n int64) *Scalar {
	raw := strconv.FormatInt(n, 10)
	return &Scalar{spec: FieldSpec{Name: name, Kind: KindInteger, Width: len(raw), Signed: n < 0}, raw: raw}
}

// NewBinary creates a binary scalar holding a copy of b.
func NewBinary(name string, b []byte) *Scalar {
	return &Scalar{spec: FieldSpec{Name: name, Kind: KindBinary, Width: len(b)}, raw: string(b)}
}

func (s *Scalar) entry() {}

// Name returns the field name.
func (s *Scalar) Name() string { return s.spec.Name }

// Kind returns the field kind.
func (s *Scalar) Kind() Kind { return s.spec.Kind }

// Text returns the raw text, including any padding.
func (s *Scalar) Text() string { return s.raw }

// Trimmed returns the text without surrounding spaces, for display.
func (s *Scalar) Trimmed() string { return strings.TrimSpace(s.raw) }

// Bytes returns the field's bytes: Latin-1 encoded for character kinds, the
// payload for binary fields.
func (s *Scalar) Bytes() []byte {
	if s.spec.Kind == KindBinary {
		return []byte(s.raw)
	}
	b, err := latin1Bytes(s.raw)
	if err != nil {
		return []byte(s.raw)
	}
	return b
}

// Int coerces the value to an integer.
func (s *Scalar) Int() (int64, error) { return coerceInt(&s.spec, s.raw) }

// Float coerces the value to a real number. Integer fields are accepted.
func (s *Scalar) Float() (float64, error) { return coerceFloat(&s.spec, s.raw) }

func (s *Scalar) String() string { return s.spec.Name + "=" + strconv.Quote(s.raw) }

// Group is a repeated group of nested value sequences.
type Group struct {
	name string
	reps []*Values
}

// NewGroup creates a group from its repetitions, in order.
func NewGroup(name string, reps ...*Values) *Group {
	return &Group{name: name, reps: append([]*Values(nil), reps...)}
}

func (g *Group) entry() {}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Len returns the number of repetitions.
func (g *Group) Len() int { return len(g.reps) }

// Repetition returns repetition i, or nil when out of range.
func (g *Group) Repetition(i int) *Values {
	if i < 0 || i >= len(g.reps) {
		return nil
	}
	return g.reps[i]
}

// Repetitions returns the repetitions in order.
func (g *Group) Repetitions() []*Values {
	return append([]*Values(nil), g.reps...)
}

// Values is an ordered sequence of entries. Lookups return the first entry
// with a matching name; names are case sensitive.
type Values struct {
	entries []Entry
}

// NewValues creates a sequence from entries.
func NewValues(entries ...Entry) *Values {
	return &Values{entries: append([]Entry(nil), entries...)}
}

// Len returns the number of entries.
func (v *Values) Len() int { return len(v.entries) }

// Entries returns the entries in order.
func (v *Values) Entries() []Entry {
	return append([]Entry(nil), v.entries...)
}

// Get returns the first entry called name.
func (v *Values) Get(name string) (Entry, bool) {
	for _, e := range v.entries {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Scalar returns the first scalar entry called name.
func (v *Values) Scalar(name string) (*Scalar, error) {
	e, ok := v.Get(name)
	if !ok {
		return nil, &ErrNotFound{Name: name}
	}
	s, ok := e.(*Scalar)
	if !ok {
		return nil, &ErrNotFound{Name: name, Reason: "is a group, not a field"}
	}
	return s, nil
}

// Group returns the first group entry called name.
func (v *Values) Group(name string) (*Group, error) {
	e, ok := v.Get(name)
	if !ok {
		return nil, &ErrNotFound{Name: name}
	}
	g, ok := e.(*Group)
	if !ok {
		return nil, &ErrNotFound{Name: name, Reason: "is a field, not a group"}
	}
	return g, nil
}

// Text returns the raw text of field name.
func (v *Values) Text(name string) (string, error) {
	s, err := v.Scalar(name)
	if err != nil {
		return "", err
	}
	return s.Text(), nil
}

// Int returns field name coerced to an integer.
func (v *Values) Int(name string) (int64, error) {
	s, err := v.Scalar(name)
	if err != nil {
		return 0, err
	}
	return s.Int()
}

// Float returns field name coerced to a real number.
func (v *Values) Float(name string) (float64, error) {
	s, err := v.Scalar(name)
	if err != nil {
		return 0, err
	}
	return s.Float()
}

func (v *Values) append(e Entry) {
	v.entries = append(v.entries, e)
}

// Tree is the structured value of one TRE instance.
type Tree struct {
	Values
	tag    string
	length int
}

// NewTree creates a tree for authoring a TRE. Its Length is zero until the
// tree has been serialized and parsed back.
func NewTree(tag string, entries ...Entry) *Tree {
	return &Tree{Values: Values{entries: append([]Entry(nil), entries...)}, tag: tag}
}

// Tag returns the TRE tag.
func (t *Tree) Tag() string { return t.tag }

// Length returns the declared length the tree was parsed from.
func (t *Tree) Length() int { return t.length }

// Unknown is a TRE whose tag has no schema. The payload is kept verbatim.
type Unknown struct {
	tag  string
	data []byte
}

// NewUnknown creates an opaque TRE holding a copy of data.
func NewUnknown(tag string, data []byte) *Unknown {
	return &Unknown{tag: tag, data: append([]byte(nil), data...)}
}

// Tag returns the TRE tag.
func (u *Unknown) Tag() string { return u.tag }

// Length returns the payload length.
func (u *Unknown) Length() int { return len(u.data) }

// Data returns a copy of the payload.
func (u *Unknown) Data() []byte { return append([]byte(nil), u.data...) }
