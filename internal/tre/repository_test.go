package tre

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"testing/fstest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultRepository(t *testing.T) {
	repo := Default()
	if repo != Default() {
		t.Error("Default() returned different repositories")
	}

	want := []string{"ACCHZB", "BLOCKA", "GRDPSB"}
	got := repo.Tags()
	if len(got) < len(want) {
		t.Fatalf("Tags() = %v, want at least %v", got, want)
	}
	for _, tag := range want {
		s, err := repo.Lookup(tag)
		if err != nil {
			t.Errorf("Lookup(%s): %v", tag, err)
			continue
		}
		if s == nil || s.Tag != tag {
			t.Errorf("Lookup(%s) = %v", tag, s)
		}
	}
	if err := repo.Warm(); err != nil {
		t.Errorf("builtin schemas failed to load: %v", err)
	}
}

func TestRepositoryMiss(t *testing.T) {
	s, err := Default().Lookup("NOSUCH")
	if s != nil || err != nil {
		t.Errorf("Lookup(NOSUCH) = %v, %v; want nil, nil", s, err)
	}
}

func TestRepositoryIsolatesBadDescriptors(t *testing.T) {
	fsys := fstest.MapFS{
		"GOODTR.yaml": {Data: []byte("tag: GOODTR\nfields:\n  - {name: A, type: text, width: 2}\n")},
		"BADTRE.yaml": {Data: []byte("tag: BADTRE\nfields:\n  - {name: A, type: text, width: 0}\n")},
		"WRONGT.yaml": {Data: []byte("tag: OTHERS\nfields:\n  - {name: A, type: text, width: 1}\n")},
		"README.md":   {Data: []byte("not a descriptor")},
	}
	repo, err := NewRepository(WithSource(fsys), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	if got := repo.Tags(); len(got) != 3 {
		t.Errorf("Tags() = %v, want three descriptor tags", got)
	}

	good, err := repo.Lookup("GOODTR")
	if err != nil || good == nil {
		t.Fatalf("Lookup(GOODTR) = %v, %v", good, err)
	}

	var le *ErrSchemaLoad
	if _, err := repo.Lookup("BADTRE"); !errors.As(err, &le) {
		t.Errorf("Lookup(BADTRE) error = %v, want ErrSchemaLoad", err)
	}
	if _, err := repo.Lookup("WRONGT"); !errors.As(err, &le) {
		t.Errorf("Lookup(WRONGT) error = %v, want ErrSchemaLoad", err)
	}

	// The failure is remembered, and does not affect other tags.
	_, err1 := repo.Lookup("BADTRE")
	_, err2 := repo.Lookup("BADTRE")
	if err1 != err2 {
		t.Error("load error not cached")
	}
	if _, err := ParseWith(repo, "GOODTR", 2, []byte("ok")); err != nil {
		t.Errorf("parse with good schema: %v", err)
	}
	if _, err := ParseWith(repo, "BADTRE", 1, []byte("x")); !errors.As(err, &le) {
		t.Errorf("parse with bad schema error = %v, want ErrSchemaLoad", err)
	}

	if err := repo.Warm(); err == nil {
		t.Error("Warm() should report the broken descriptors")
	}
}

func TestRepositoryOverrideOrder(t *testing.T) {
	override := fstest.MapFS{
		"GRDPSB.yaml": {Data: []byte("tag: GRDPSB\ndescription: local\nfields:\n  - {name: X, type: text, width: 1}\n")},
	}
	repo, err := NewRepository(WithBuiltins(), WithSource(override), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	s, err := repo.Lookup("GRDPSB")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if s.Description != "local" {
		t.Errorf("description = %q, want the later source to win", s.Description)
	}
	if b, _ := repo.Lookup("BLOCKA"); b == nil {
		t.Error("builtin BLOCKA lost after override")
	}

	static := mustSchema(t, "GRDPSB", &FieldSpec{Name: "Y", Kind: KindText, Width: 1})
	repo, err = NewRepository(WithSource(override), WithSchema(static))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	if s, _ := repo.Lookup("GRDPSB"); s != static {
		t.Error("WithSchema did not replace the descriptor")
	}
}

func TestRepositoryConcurrentLookup(t *testing.T) {
	repo, err := NewRepository(WithBuiltins(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	const workers = 32
	results := make([]*Schema, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := repo.Lookup("ACCHZB")
			if err != nil {
				t.Errorf("Lookup: %v", err)
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent lookups returned different schema instances")
		}
	}
}
