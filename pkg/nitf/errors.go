package nitf

import "fmt"

// ErrExtensionHeader reports a malformed tag or length header in an
// extension area. Parsing cannot continue past it because the position of
// the next TRE is unknown.
type ErrExtensionHeader struct {
	Offset int
	Reason string
}

func (e *ErrExtensionHeader) Error() string {
	return fmt.Sprintf("extension header at offset %d: %s", e.Offset, e.Reason)
}

// ErrExtension wraps a failure to parse or serialize one TRE of an
// extension area.
type ErrExtension struct {
	Tag    string
	Offset int
	Err    error
}

func (e *ErrExtension) Error() string {
	return fmt.Sprintf("TRE %s at offset %d: %v", e.Tag, e.Offset, e.Err)
}

func (e *ErrExtension) Unwrap() error {
	return e.Err
}

// ErrSecurity reports a security field that is missing or not allowed.
type ErrSecurity struct {
	Field  string
	Value  string
	Reason string
}

func (e *ErrSecurity) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("security field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("security field %s=%q: %s", e.Field, e.Value, e.Reason)
}
