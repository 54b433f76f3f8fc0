package tre

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

const grdpsbData = "01+000027.81PIX_LATLON0000000000010000000000010000000000000000000000"

const acchzbData = "01" + "M  " + "00010" + "   " + "002" +
	"+012.3456789012+045.1234567890" +
	"-012.0000000000-045.0000000000"

func mustSchema(t *testing.T, tag string, body ...Node) *Schema {
	t.Helper()
	s, err := NewSchema(tag, "", body...)
	if err != nil {
		t.Fatalf("NewSchema(%s): %v", tag, err)
	}
	return s
}

// mustTree wraps a Parse call: mustTree(t)(Parse(...)).
func mustTree(t *testing.T) func(Extension, error) *Tree {
	return func(ext Extension, err error) *Tree {
		t.Helper()
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		tree, ok := ext.(*Tree)
		if !ok {
			t.Fatalf("parse returned %T, want *Tree", ext)
		}
		return tree
	}
}

func TestParseGRDPSB(t *testing.T) {
	tree := mustTree(t)(ParseWith(Default(), "GRDPSB", 68, []byte(grdpsbData)))

	if tree.Tag() != "GRDPSB" || tree.Length() != 68 {
		t.Errorf("tree = %s/%d, want GRDPSB/68", tree.Tag(), tree.Length())
	}
	n, err := tree.Int("NUM_GRDS")
	if err != nil || n != 1 {
		t.Fatalf("NUM_GRDS = %d, %v; want 1", n, err)
	}
	grds, err := tree.Group("GRDS")
	if err != nil {
		t.Fatalf("GRDS: %v", err)
	}
	if grds.Len() != 1 {
		t.Fatalf("GRDS has %d repetitions, want 1", grds.Len())
	}
	g := grds.Repetition(0)

	texts := map[string]string{
		"ZVL": "+000027.81",
		"BAD": "PIX_LATLON",
		"LOD": "000000000001",
		"LAD": "000000000001",
		"LSO": "00000000000",
		"PSO": "00000000000",
	}
	for name, want := range texts {
		got, err := g.Text(name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	zvl, err := g.Float("ZVL")
	if err != nil {
		t.Fatalf("ZVL: %v", err)
	}
	if math.Abs(zvl-27.81) > 0.001 {
		t.Errorf("ZVL = %v, want 27.81", zvl)
	}
}

func TestParseUnknownTag(t *testing.T) {
	payload := []byte("opaque\x00\xffbytes")
	ext, err := ParseWith(Default(), "ZZZZZZ", len(payload), payload)
	if err != nil {
		t.Fatalf("unknown tag must not fail: %v", err)
	}
	u, ok := ext.(*Unknown)
	if !ok {
		t.Fatalf("got %T, want *Unknown", ext)
	}
	if u.Tag() != "ZZZZZZ" || u.Length() != len(payload) {
		t.Errorf("unknown = %s/%d", u.Tag(), u.Length())
	}
	if !bytes.Equal(u.Data(), payload) {
		t.Errorf("Data() = %q, want %q", u.Data(), payload)
	}

	// The record owns its bytes.
	payload[0] = 'X'
	if u.Data()[0] != 'o' {
		t.Error("unknown record aliases the caller's buffer")
	}
}

func TestParseUnknownTruncated(t *testing.T) {
	_, err := Parse("ZZZZZZ", 10, []byte("short"), nil)
	var te *ErrTruncatedRecord
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want ErrTruncatedRecord", err)
	}
}

func TestParseLengthAccounting(t *testing.T) {
	schema, err := Default().Lookup("GRDPSB")
	if err != nil || schema == nil {
		t.Fatalf("GRDPSB schema: %v", err)
	}

	t.Run("declared longer than consumed", func(t *testing.T) {
		data := grdpsbData + "XX"
		_, err := Parse("GRDPSB", len(data), []byte(data), schema)
		var le *ErrLengthMismatch
		if !errors.As(err, &le) {
			t.Fatalf("error = %v, want ErrLengthMismatch", err)
		}
		if le.Declared != 70 || le.Consumed != 68 {
			t.Errorf("declared/consumed = %d/%d, want 70/68", le.Declared, le.Consumed)
		}
	})

	t.Run("declared shorter than consumed", func(t *testing.T) {
		_, err := Parse("GRDPSB", 60, []byte(grdpsbData), schema)
		var te *ErrTruncatedRecord
		if !errors.As(err, &te) {
			t.Fatalf("error = %v, want ErrTruncatedRecord", err)
		}
		if te.Field != "PSO" || te.Offset != 57 {
			t.Errorf("truncated at %s/%d, want PSO/57", te.Field, te.Offset)
		}
	})

	t.Run("buffer shorter than declared", func(t *testing.T) {
		_, err := Parse("GRDPSB", 68, []byte(grdpsbData[:50]), schema)
		var te *ErrTruncatedRecord
		if !errors.As(err, &te) {
			t.Fatalf("error = %v, want ErrTruncatedRecord", err)
		}
	})

	t.Run("declared shorter than first field", func(t *testing.T) {
		_, err := Parse("GRDPSB", 1, []byte(grdpsbData), schema)
		var te *ErrTruncatedRecord
		if !errors.As(err, &te) {
			t.Fatalf("error = %v, want ErrTruncatedRecord", err)
		}
		if te.Field != "NUM_GRDS" || te.Offset != 0 || te.Have != 1 {
			t.Errorf("truncated = %+v", te)
		}
	})

	t.Run("negative declared length", func(t *testing.T) {
		_, err := Parse("GRDPSB", -1, []byte(grdpsbData), schema)
		var le *ErrLengthMismatch
		if !errors.As(err, &le) {
			t.Fatalf("error = %v, want ErrLengthMismatch", err)
		}
	})
}

func TestParseRepeatCounts(t *testing.T) {
	schema, err := Default().Lookup("GRDPSB")
	if err != nil || schema == nil {
		t.Fatalf("GRDPSB schema: %v", err)
	}

	t.Run("zero repetitions", func(t *testing.T) {
		tree := mustTree(t)(Parse("GRDPSB", 2, []byte("00"), schema))
		g, err := tree.Group("GRDS")
		if err != nil {
			t.Fatalf("zero-repetition group must still be present: %v", err)
		}
		if g.Len() != 0 || len(g.Repetitions()) != 0 {
			t.Errorf("GRDS has %d repetitions, want 0", g.Len())
		}
	})

	t.Run("non-numeric count", func(t *testing.T) {
		_, err := Parse("GRDPSB", 2, []byte("  "), schema)
		var ue *ErrUnresolvedRepeatCount
		if !errors.As(err, &ue) {
			t.Fatalf("error = %v, want ErrUnresolvedRepeatCount", err)
		}
		if ue.Group != "GRDS" || ue.Ref != "NUM_GRDS" || ue.Offset != 2 {
			t.Errorf("unresolved = %+v", ue)
		}
	})

	t.Run("negative count", func(t *testing.T) {
		s := mustSchema(t, "NEGCNT",
			&FieldSpec{Name: "N", Kind: KindInteger, Width: 2, Signed: true},
			&GroupSpec{Name: "G", Count: CountOf("N"), Body: []Node{
				&FieldSpec{Name: "X", Kind: KindText, Width: 1},
			}},
		)
		tree := mustTree(t)(Parse("NEGCNT", 2, []byte("-1"), s))
		g, err := tree.Group("G")
		if err != nil || g.Len() != 0 {
			t.Errorf("G = %v, %v; want zero repetitions", g, err)
		}
	})

	t.Run("unbound reference", func(t *testing.T) {
		// N lives in a conditional block that is skipped.
		s := mustSchema(t, "UNBND1",
			&FieldSpec{Name: "F", Kind: KindText, Width: 1},
			&ConditionSpec{Expr: `F == "Y"`, Body: []Node{
				&FieldSpec{Name: "N", Kind: KindInteger, Width: 1},
			}},
			&GroupSpec{Name: "G", Count: CountOf("N"), Body: []Node{
				&FieldSpec{Name: "X", Kind: KindText, Width: 1},
			}},
		)
		_, err := Parse("UNBND1", 1, []byte("N"), s)
		var ue *ErrUnresolvedRepeatCount
		if !errors.As(err, &ue) {
			t.Fatalf("error = %v, want ErrUnresolvedRepeatCount", err)
		}
	})

	t.Run("count expression", func(t *testing.T) {
		s := mustSchema(t, "MATRIX",
			&FieldSpec{Name: "ROWS", Kind: KindInteger, Width: 1},
			&FieldSpec{Name: "COLS", Kind: KindInteger, Width: 1},
			&GroupSpec{Name: "CELLS", Count: CountExpr("ROWS * COLS"), Body: []Node{
				&FieldSpec{Name: "V", Kind: KindInteger, Width: 1},
			}},
		)
		tree := mustTree(t)(Parse("MATRIX", 8, []byte("23123456"), s))
		g, _ := tree.Group("CELLS")
		if g.Len() != 6 {
			t.Fatalf("CELLS has %d repetitions, want 6", g.Len())
		}
		if v, _ := g.Repetition(5).Int("V"); v != 6 {
			t.Errorf("last V = %d, want 6", v)
		}
	})
}

func TestParseEmptyRepetitions(t *testing.T) {
	body := []Node{&ConditionSpec{Expr: "false", Body: []Node{
		&FieldSpec{Name: "X", Kind: KindText, Width: 1},
	}}}

	t.Run("literal count", func(t *testing.T) {
		s := mustSchema(t, "EMPTY1", &GroupSpec{Name: "G", Count: Times(maxEmptyRepetitions), Body: body})
		tree := mustTree(t)(Parse("EMPTY1", 0, nil, s))
		g, err := tree.Group("G")
		if err != nil || g.Len() != maxEmptyRepetitions {
			t.Fatalf("G = %v, %v; want %d empty repetitions", g, err, maxEmptyRepetitions)
		}
	})

	t.Run("count from record", func(t *testing.T) {
		s := mustSchema(t, "EMPTY2",
			&FieldSpec{Name: "N", Kind: KindInteger, Width: 6},
			&GroupSpec{Name: "G", Count: CountOf("N"), Body: body},
		)
		_, err := Parse("EMPTY2", 6, []byte("999999"), s)
		var ue *ErrUnresolvedRepeatCount
		if !errors.As(err, &ue) {
			t.Fatalf("error = %v, want ErrUnresolvedRepeatCount", err)
		}
		if ue.Group != "G" {
			t.Errorf("group = %q, want G", ue.Group)
		}
	})
}

func TestParseNestedScopes(t *testing.T) {
	// Inner groups may take their count from the enclosing repetition and from
	// the record's top level.
	s := mustSchema(t, "NESTED",
		&FieldSpec{Name: "N", Kind: KindInteger, Width: 1},
		&GroupSpec{Name: "OUTER", Count: CountOf("N"), Body: []Node{
			&FieldSpec{Name: "M", Kind: KindInteger, Width: 1},
			&GroupSpec{Name: "INNER", Count: CountOf("M"), Body: []Node{
				&FieldSpec{Name: "V", Kind: KindText, Width: 1},
			}},
			&GroupSpec{Name: "TOP", Count: CountOf("N"), Body: []Node{
				&FieldSpec{Name: "W", Kind: KindText, Width: 1},
			}},
		}},
	)
	// N=2; rep 0: M=1 V=a W=xy; rep 1: M=3 V=bcd W=zw
	data := "2" + "1a" + "xy" + "3bcd" + "zw"
	tree := mustTree(t)(Parse("NESTED", len(data), []byte(data), s))

	outer, _ := tree.Group("OUTER")
	if outer.Len() != 2 {
		t.Fatalf("OUTER has %d repetitions, want 2", outer.Len())
	}
	wantInner := []string{"a", "bcd"}
	for i, want := range wantInner {
		inner, err := outer.Repetition(i).Group("INNER")
		if err != nil {
			t.Fatalf("rep %d INNER: %v", i, err)
		}
		var got strings.Builder
		for _, rep := range inner.Repetitions() {
			v, _ := rep.Text("V")
			got.WriteString(v)
		}
		if got.String() != want {
			t.Errorf("rep %d INNER = %q, want %q", i, got.String(), want)
		}
		top, _ := outer.Repetition(i).Group("TOP")
		if top.Len() != 2 {
			t.Errorf("rep %d TOP has %d repetitions, want 2", i, top.Len())
		}
	}

	// Values bound inside a repetition do not leak to the top level.
	if _, ok := tree.Get("M"); ok {
		t.Error("M visible at top level")
	}
}

func TestParseConditional(t *testing.T) {
	tree := mustTree(t)(ParseWith(Default(), "ACCHZB", len(acchzbData), []byte(acchzbData)))

	achz, err := tree.Group("ACHZ")
	if err != nil || achz.Len() != 1 {
		t.Fatalf("ACHZ = %v, %v", achz, err)
	}
	rep := achz.Repetition(0)

	if aah, err := rep.Int("AAH"); err != nil || aah != 10 {
		t.Errorf("AAH = %d, %v; want 10", aah, err)
	}
	if _, ok := rep.Get("APH"); ok {
		t.Error("APH present although UNIAPH is blank")
	}
	var nf *ErrNotFound
	if _, err := rep.Int("APH"); !errors.As(err, &nf) {
		t.Errorf("APH error = %v, want ErrNotFound", err)
	}

	pts, err := rep.Group("PTS")
	if err != nil || pts.Len() != 2 {
		t.Fatalf("PTS = %v, %v", pts, err)
	}
	lon, err := pts.Repetition(1).Float("LON")
	if err != nil || lon != -12 {
		t.Errorf("LON = %v, %v; want -12", lon, err)
	}
	lat, err := pts.Repetition(0).Float("LAT")
	if err != nil || math.Abs(lat-45.123456789) > 1e-9 {
		t.Errorf("LAT = %v, %v", lat, err)
	}

	names := make([]string, 0, rep.Len())
	for _, e := range rep.Entries() {
		names = append(names, e.Name())
	}
	if got := strings.Join(names, ","); got != "UNIAAH,AAH,UNIAPH,NUM_PTS,PTS" {
		t.Errorf("entry order = %s", got)
	}
}

func TestParseConditionError(t *testing.T) {
	// A condition reading a malformed integer cannot be decided.
	s := mustSchema(t, "CONDER",
		&FieldSpec{Name: "N", Kind: KindInteger, Width: 1},
		&ConditionSpec{Expr: "N > 0", Body: []Node{
			&FieldSpec{Name: "X", Kind: KindText, Width: 1},
		}},
	)
	_, err := Parse("CONDER", 1, []byte("?"), s)
	var ce *ErrUnresolvedCondition
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want ErrUnresolvedCondition", err)
	}
}

func TestParseMalformedNumericIsLazy(t *testing.T) {
	s := mustSchema(t, "BLANKS",
		&FieldSpec{Name: "COUNT", Kind: KindInteger, Width: 4},
		&FieldSpec{Name: "SCALE", Kind: KindReal, Width: 6, Signed: true, Precision: 2},
	)
	tree := mustTree(t)(Parse("BLANKS", 10, []byte("          "), s))

	var me *ErrMalformedNumeric
	if _, err := tree.Int("COUNT"); !errors.As(err, &me) {
		t.Errorf("Int(COUNT) error = %v, want ErrMalformedNumeric", err)
	}
	if _, err := tree.Float("SCALE"); !errors.As(err, &me) {
		t.Errorf("Float(SCALE) error = %v, want ErrMalformedNumeric", err)
	}
	if got, err := tree.Text("COUNT"); err != nil || got != "    " {
		t.Errorf("Text(COUNT) = %q, %v", got, err)
	}
	if got, err := tree.Text("SCALE"); err != nil || got != "      " {
		t.Errorf("Text(SCALE) = %q, %v", got, err)
	}

	var nf *ErrNotFound
	if _, err := tree.Text("MISSING"); !errors.As(err, &nf) {
		t.Errorf("Text(MISSING) error = %v, want ErrNotFound", err)
	}
}

func TestParseBinaryField(t *testing.T) {
	s := mustSchema(t, "BINARY",
		&FieldSpec{Name: "HDR", Kind: KindText, Width: 2},
		&FieldSpec{Name: "BLOB", Kind: KindBinary, Width: 3},
	)
	data := []byte{'O', 'K', 0x00, 0xFF, 0x80}
	tree := mustTree(t)(Parse("BINARY", 5, data, s))
	blob, err := tree.Scalar("BLOB")
	if err != nil {
		t.Fatalf("BLOB: %v", err)
	}
	if !bytes.Equal(blob.Bytes(), []byte{0x00, 0xFF, 0x80}) {
		t.Errorf("BLOB = %v", blob.Bytes())
	}
	if _, err := blob.Int(); err == nil {
		t.Error("binary field coerced to integer")
	}
}

func TestParseConcurrent(t *testing.T) {
	repo := Default()
	done := make(chan error)
	for i := 0; i < 16; i++ {
		go func() {
			ext, err := ParseWith(repo, "GRDPSB", 68, []byte(grdpsbData))
			if err == nil {
				_, err = ext.(*Tree).Int("NUM_GRDS")
			}
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent parse: %v", err)
		}
	}
}
