package tre

import (
	"fmt"
)

// ErrSchemaLoad indicates a malformed schema or descriptor source.
// It is reported at load time and affects only the tag being loaded.
type ErrSchemaLoad struct {
	Tag    string
	Source string
	Reason string
	Err    error
}

func (e *ErrSchemaLoad) Error() string {
	msg := "schema load"
	if e.Tag != "" {
		msg += " " + e.Tag
	}
	if e.Source != "" {
		msg += " (" + e.Source + ")"
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ErrSchemaLoad) Unwrap() error {
	return e.Err
}

// ErrTruncatedRecord indicates fewer bytes remain than a field declares.
type ErrTruncatedRecord struct {
	Tag    string
	Field  string
	Offset int
	Need   int
	Have   int
}

func (e *ErrTruncatedRecord) Error() string {
	return fmt.Sprintf("%s: truncated record at offset %d: field %s needs %d bytes, %d remain",
		e.Tag, e.Offset, e.Field, e.Need, e.Have)
}

// ErrUnresolvedRepeatCount indicates a group whose repeat count could not be
// resolved from the visible scope.
type ErrUnresolvedRepeatCount struct {
	Tag    string
	Group  string
	Ref    string
	Offset int
	Reason string
}

func (e *ErrUnresolvedRepeatCount) Error() string {
	return fmt.Sprintf("%s: group %s at offset %d: unresolved repeat count %q: %s",
		e.Tag, e.Group, e.Offset, e.Ref, e.Reason)
}

// ErrUnresolvedCondition indicates a conditional block whose expression could
// not be evaluated against the visible scope.
type ErrUnresolvedCondition struct {
	Tag    string
	Expr   string
	Offset int
	Err    error
}

func (e *ErrUnresolvedCondition) Error() string {
	return fmt.Sprintf("%s: condition %q at offset %d: %v", e.Tag, e.Expr, e.Offset, e.Err)
}

func (e *ErrUnresolvedCondition) Unwrap() error {
	return e.Err
}

// ErrLengthMismatch indicates the schema consumed a different number of bytes
// than the record declared.
type ErrLengthMismatch struct {
	Tag      string
	Declared int
	Consumed int
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("%s: length mismatch: declared %d bytes, schema consumed %d",
		e.Tag, e.Declared, e.Consumed)
}

// ErrMalformedNumeric indicates a scalar whose raw text is not well formed for
// the requested numeric coercion.
type ErrMalformedNumeric struct {
	Field  string
	Raw    string
	Reason string
}

func (e *ErrMalformedNumeric) Error() string {
	return fmt.Sprintf("field %s: malformed numeric %q: %s", e.Field, e.Raw, e.Reason)
}

// ErrNotFound indicates a query for an entry that does not exist, or exists
// with a different shape than requested.
type ErrNotFound struct {
	Name   string
	Reason string
}

func (e *ErrNotFound) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("entry %s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("entry %s not found", e.Name)
}

// ErrFieldEncode indicates a value that cannot be written at its declared width.
type ErrFieldEncode struct {
	Field  string
	Width  int
	Reason string
}

func (e *ErrFieldEncode) Error() string {
	return fmt.Sprintf("field %s (width %d): %s", e.Field, e.Width, e.Reason)
}
