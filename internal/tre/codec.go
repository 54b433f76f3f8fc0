package tre

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// NITF character fields are single-byte (BCS is a subset of ISO 8859-1), so
// every byte maps to exactly one rune and back.

func latin1String(b []byte) string {
	if isASCII(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func latin1Bytes(s string) ([]byte, error) {
	if isASCII([]byte(s)) {
		return []byte(s), nil
	}
	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// DecodeScalar reads one field value from b, which must hold exactly
// spec.Width bytes. The bytes are copied. Numeric text is not validated here;
// Int and Float report malformed values when asked.
func DecodeScalar(spec *FieldSpec, b []byte) (*Scalar, error) {
	if len(b) != spec.Width {
		return nil, &ErrTruncatedRecord{Field: spec.Name, Need: spec.Width, Have: len(b)}
	}
	s := &Scalar{spec: *spec}
	s.spec.HasDefault, s.spec.Default = false, ""
	if spec.Kind == KindBinary {
		s.raw = string(b)
	} else {
		s.raw = latin1String(b)
	}
	return s, nil
}

// EncodeScalar renders raw at spec.Width. Text is right-padded with spaces,
// numbers are left-padded with zeros after any sign, binary is padded with
// NUL bytes. Values wider than the field are rejected, as are short numbers
// that are not valid for the field. Full-width text is written verbatim.
func EncodeScalar(spec *FieldSpec, raw string) ([]byte, error) {
	var b []byte
	if spec.Kind == KindBinary {
		b = []byte(raw)
	} else {
		var err error
		b, err = latin1Bytes(raw)
		if err != nil {
			return nil, &ErrFieldEncode{Field: spec.Name, Width: spec.Width, Reason: "text is not representable in ISO 8859-1"}
		}
	}
	if len(b) > spec.Width {
		return nil, &ErrFieldEncode{Field: spec.Name, Width: spec.Width,
			Reason: fmt.Sprintf("value %q is %d bytes", raw, len(b))}
	}
	pad := spec.Width - len(b)
	if pad == 0 {
		return b, nil
	}

	out := make([]byte, 0, spec.Width)
	switch spec.Kind {
	case KindBinary:
		out = append(out, b...)
		out = append(out, make([]byte, pad)...)
	case KindInteger, KindReal:
		if len(b) == 0 {
			return []byte(strings.Repeat(" ", spec.Width)), nil
		}
		// Zero padding only preserves the value of well-formed numbers.
		var err error
		if spec.Kind == KindInteger {
			_, err = coerceInt(spec, raw)
		} else {
			_, err = coerceFloat(spec, raw)
		}
		if err != nil {
			return nil, &ErrFieldEncode{Field: spec.Name, Width: spec.Width,
				Reason: fmt.Sprintf("cannot pad %q: %v", raw, err)}
		}
		if b[0] == '+' || b[0] == '-' {
			out = append(out, b[0])
			b = b[1:]
		}
		out = append(out, strings.Repeat("0", pad)...)
		out = append(out, b...)
	default:
		out = append(out, b...)
		out = append(out, strings.Repeat(" ", pad)...)
	}
	return out, nil
}

func malformed(spec *FieldSpec, raw, format string, args ...any) error {
	return &ErrMalformedNumeric{Field: spec.Name, Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

func isSign(c byte) bool { return c == '+' || c == '-' }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func coerceInt(spec *FieldSpec, raw string) (int64, error) {
	switch spec.Kind {
	case KindBinary:
		return 0, malformed(spec, raw, "binary field has no numeric value")
	case KindReal:
		return 0, malformed(spec, raw, "real field, use a real coercion")
	}
	if raw == "" {
		return 0, malformed(spec, raw, "empty")
	}
	digits := raw
	if isSign(raw[0]) {
		if !spec.Signed && spec.Kind != KindText {
			return 0, malformed(spec, raw, "sign in unsigned field")
		}
		digits = raw[1:]
	}
	if digits == "" {
		return 0, malformed(spec, raw, "no digits")
	}
	if !allDigits(digits) {
		return 0, malformed(spec, raw, "non-digit characters")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, malformed(spec, raw, "out of range")
	}
	return n, nil
}

func coerceFloat(spec *FieldSpec, raw string) (float64, error) {
	switch spec.Kind {
	case KindBinary:
		return 0, malformed(spec, raw, "binary field has no numeric value")
	case KindInteger:
		n, err := coerceInt(spec, raw)
		return float64(n), err
	}
	if raw == "" {
		return 0, malformed(spec, raw, "empty")
	}

	body := raw
	if isSign(raw[0]) {
		if spec.Kind == KindReal && !spec.Signed {
			return 0, malformed(spec, raw, "sign in unsigned field")
		}
		body = raw[1:]
	} else if spec.Kind == KindReal && spec.Signed {
		return 0, malformed(spec, raw, "missing sign")
	}

	mant := body
	if k := strings.IndexAny(body, "eE"); k >= 0 {
		if spec.Kind == KindReal && spec.Precision > 0 {
			return 0, malformed(spec, raw, "exponent in fixed-point field")
		}
		exp := body[k+1:]
		if exp != "" && isSign(exp[0]) {
			exp = exp[1:]
		}
		if exp == "" || !allDigits(exp) {
			return 0, malformed(spec, raw, "invalid exponent")
		}
		mant = body[:k]
	}

	dot := strings.IndexByte(mant, '.')
	if strings.Count(mant, ".") > 1 {
		return 0, malformed(spec, raw, "more than one decimal point")
	}
	digits := strings.Replace(mant, ".", "", 1)
	if digits == "" || !allDigits(digits) {
		return 0, malformed(spec, raw, "non-digit characters")
	}
	if spec.Kind == KindReal && spec.Precision > 0 {
		if dot < 0 {
			return 0, malformed(spec, raw, "missing decimal point")
		}
		if len(mant)-dot-1 != spec.Precision {
			return 0, malformed(spec, raw, "decimal point not followed by %d digits", spec.Precision)
		}
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, malformed(spec, raw, "out of range")
	}
	return f, nil
}

// FormatInt renders n at the width of an integer field.
func FormatInt(spec *FieldSpec, n int64) (string, error) {
	if spec.Kind != KindInteger {
		return "", &ErrFieldEncode{Field: spec.Name, Width: spec.Width, Reason: fmt.Sprintf("cannot format an integer into a %v field", spec.Kind)}
	}
	if n < 0 && !spec.Signed {
		return "", &ErrFieldEncode{Field: spec.Name, Width: spec.Width, Reason: "negative value in unsigned field"}
	}
	var digits string
	if n < 0 {
		digits = strconv.FormatUint(uint64(-(n+1))+1, 10)
	} else {
		digits = strconv.FormatInt(n, 10)
	}
	return signedPad(spec, n < 0, digits)
}

// FormatReal renders f at the width and precision of a real field.
func FormatReal(spec *FieldSpec, f float64) (string, error) {
	if spec.Kind != KindReal {
		return "", &ErrFieldEncode{Field: spec.Name, Width: spec.Width, Reason: fmt.Sprintf("cannot format a real into a %v field", spec.Kind)}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", &ErrFieldEncode{Field: spec.Name, Width: spec.Width, Reason: "not a finite number"}
	}
	if f < 0 && !spec.Signed {
		return "", &ErrFieldEncode{Field: spec.Name, Width: spec.Width, Reason: "negative value in unsigned field"}
	}
	prec := spec.Precision
	if prec == 0 {
		prec = -1
	}
	digits := strconv.FormatFloat(math.Abs(f), 'f', prec, 64)
	return signedPad(spec, f < 0, digits)
}

func signedPad(spec *FieldSpec, negative bool, digits string) (string, error) {
	width := spec.Width
	sign := ""
	if spec.Signed {
		width--
		sign = "+"
		if negative {
			sign = "-"
		}
	}
	if len(digits) > width {
		return "", &ErrFieldEncode{Field: spec.Name, Width: spec.Width, Reason: fmt.Sprintf("%s%s does not fit", sign, digits)}
	}
	return sign + strings.Repeat("0", width-len(digits)) + digits, nil
}
