package tre

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// expression is a compiled CEL program over field values. Programs are safe
// for concurrent evaluation.
type expression struct {
	src string
	prg cel.Program
}

var celIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var celReserved = map[string]bool{
	"as": true, "break": true, "const": true, "continue": true, "else": true,
	"false": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "let": true, "loop": true, "package": true, "namespace": true,
	"null": true, "return": true, "true": true, "var": true, "void": true, "while": true,
}

func celType(k Kind) *cel.Type {
	switch k {
	case KindInteger:
		return cel.IntType
	case KindReal:
		return cel.DoubleType
	case KindBinary:
		return cel.BytesType
	default:
		return cel.StringType
	}
}

// compileExpr type-checks src against the fields in scope. Field names that
// are not CEL identifiers (e.g. "RESERVED-001") are not addressable.
func compileExpr(src string, visible map[string]*FieldSpec) (*expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("empty expression")
	}
	opts := []cel.EnvOption{ext.Strings()}
	for name, f := range visible {
		if !celIdent.MatchString(name) || celReserved[name] {
			continue
		}
		opts = append(opts, cel.Variable(name, celType(f.Kind)))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &expression{src: src, prg: prg}, nil
}

func (e *expression) eval(syms *symbols) (any, error) {
	out, _, err := e.prg.Eval(syms.activation())
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *expression) evalBool(syms *symbols) (bool, error) {
	v, err := e.eval(syms)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expression yields %T, want bool", v)
	}
	return b, nil
}

func (e *expression) evalInt(syms *symbols) (int64, error) {
	v, err := e.eval(syms)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("expression yields %d, out of range", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("expression yields non-integral %v", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("expression yields %T, want int", v)
}
