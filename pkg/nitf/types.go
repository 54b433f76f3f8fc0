package nitf

import (
	"io"
	"io/fs"
	"log/slog"

	"github.com/beetlebugorg/nitf/internal/tre"
)

// Parsed values.
type (
	// Extension is one parsed TRE: a *Tree when a schema was available,
	// otherwise an *Unknown holding the raw payload.
	Extension = tre.Extension
	Tree      = tre.Tree
	Unknown   = tre.Unknown
	Values    = tre.Values
	Group     = tre.Group
	Scalar    = tre.Scalar
	Entry     = tre.Entry
)

// Schema model.
type (
	Schema           = tre.Schema
	Node             = tre.Node
	FieldSpec        = tre.FieldSpec
	GroupSpec        = tre.GroupSpec
	ConditionSpec    = tre.ConditionSpec
	RepeatCount      = tre.RepeatCount
	Kind             = tre.Kind
	Repository       = tre.Repository
	RepositoryOption = tre.RepositoryOption
)

// Field kinds.
const (
	KindText    = tre.KindText
	KindInteger = tre.KindInteger
	KindReal    = tre.KindReal
	KindBinary  = tre.KindBinary
)

// Engine errors.
type (
	ErrSchemaLoad            = tre.ErrSchemaLoad
	ErrTruncatedRecord       = tre.ErrTruncatedRecord
	ErrUnresolvedRepeatCount = tre.ErrUnresolvedRepeatCount
	ErrUnresolvedCondition   = tre.ErrUnresolvedCondition
	ErrLengthMismatch        = tre.ErrLengthMismatch
	ErrMalformedNumeric      = tre.ErrMalformedNumeric
	ErrNotFound              = tre.ErrNotFound
	ErrFieldEncode           = tre.ErrFieldEncode
)

// NewSchema validates body and returns a schema for tag.
func NewSchema(tag, description string, body ...Node) (*Schema, error) {
	return tre.NewSchema(tag, description, body...)
}

// LoadSchemas reads every schema in a multi-document YAML descriptor stream.
func LoadSchemas(r io.Reader) ([]*Schema, error) { return tre.LoadSchemas(r) }

// Times is a literal repeat count.
func Times(n int) RepeatCount { return tre.Times(n) }

// CountOf takes a group's repeat count from an earlier integer field.
func CountOf(field string) RepeatCount { return tre.CountOf(field) }

// CountExpr computes a group's repeat count from an expression over earlier
// fields, e.g. "NROWS * NCOLS".
func CountExpr(expr string) RepeatCount { return tre.CountExpr(expr) }

// NewRepository builds a schema repository. With no options it is empty.
func NewRepository(opts ...RepositoryOption) (*Repository, error) {
	return tre.NewRepository(opts...)
}

// DefaultRepository returns the shared repository of built-in schemas.
func DefaultRepository() *Repository { return tre.Default() }

func WithBuiltins() RepositoryOption { return tre.WithBuiltins() }
func WithSource(fsys fs.FS) RepositoryOption { return tre.WithSource(fsys) }
func WithSchema(s *Schema) RepositoryOption { return tre.WithSchema(s) }
func WithLogger(l *slog.Logger) RepositoryOption { return tre.WithLogger(l) }

// Value constructors, for building trees to serialize.

func NewText(name, s string) *Scalar { return tre.NewText(name, s) }
func NewInteger(name string, n int64) *Scalar { return tre.NewInteger(name, n) }
func NewBinary(name string, b []byte) *Scalar { return tre.NewBinary(name, b) }
func NewField(spec FieldSpec, raw string) *Scalar { return tre.NewField(spec, raw) }
func NewGroup(name string, reps ...*Values) *Group { return tre.NewGroup(name, reps...) }
func NewValues(entries ...Entry) *Values { return tre.NewValues(entries...) }
func NewTree(tag string, entries ...Entry) *Tree { return tre.NewTree(tag, entries...) }
func NewUnknown(tag string, data []byte) *Unknown { return tre.NewUnknown(tag, data) }
