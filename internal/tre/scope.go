package tre

// symbols is the table of field values visible at one nesting level. A child
// table reads through to its parent but binds only into itself, so a group
// repetition can never leak values back into the enclosing record.
type symbols struct {
	parent *symbols
	vals   map[string]*Scalar
}

func newSymbols(parent *symbols) *symbols {
	return &symbols{parent: parent, vals: make(map[string]*Scalar)}
}

func (s *symbols) bind(v *Scalar) {
	s.vals[v.Name()] = v
}

func (s *symbols) lookup(name string) (*Scalar, bool) {
	for t := s; t != nil; t = t.parent {
		if v, ok := t.vals[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// activation converts visible values to CEL inputs. Inner bindings shadow
// outer ones. Numeric fields whose text does not coerce are left unbound, so
// an expression that reads them fails instead of seeing a zero.
func (s *symbols) activation() map[string]any {
	var chain []*symbols
	for t := s; t != nil; t = t.parent {
		chain = append(chain, t)
	}
	act := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		for name, v := range chain[i].vals {
			switch v.Kind() {
			case KindInteger:
				if n, err := v.Int(); err == nil {
					act[name] = n
				} else {
					delete(act, name)
				}
			case KindReal:
				if f, err := v.Float(); err == nil {
					act[name] = f
				} else {
					delete(act, name)
				}
			case KindBinary:
				act[name] = []byte(v.raw)
			default:
				act[name] = v.raw
			}
		}
	}
	return act
}
