package tre

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed schemas/*.yaml
var builtinSchemas embed.FS

// Repository maps TRE tags to schemas.
//
// The set of tags is fixed when the repository is built. Each tag's
// descriptor is loaded on first lookup, exactly once, and the result (schema
// or load error) is kept for the life of the repository. Lookups are safe
// for concurrent use; after warm-up they only read.
type Repository struct {
	entries map[string]*repoEntry
	logger  *slog.Logger
}

type repoEntry struct {
	once   sync.Once
	source string
	load   func() (*Schema, error)
	schema *Schema
	err    error
}

type repoConfig struct {
	logger *slog.Logger
	steps  []func(map[string]*repoEntry) error
}

// RepositoryOption configures NewRepository. Options that add schemas are
// applied in order; a later option replaces an earlier one for the same tag.
type RepositoryOption func(*repoConfig)

// WithLogger sets the logger used to report schema loads.
func WithLogger(l *slog.Logger) RepositoryOption {
	return func(c *repoConfig) { c.logger = l }
}

// WithBuiltins adds the schemas shipped with the package.
func WithBuiltins() RepositoryOption {
	return func(c *repoConfig) {
		c.steps = append(c.steps, func(m map[string]*repoEntry) error {
			sub, err := fs.Sub(builtinSchemas, "schemas")
			if err != nil {
				return err
			}
			return indexSource(m, sub, "builtin")
		})
	}
}

// WithSource adds the descriptors in the top directory of fsys. Each file is
// named after the tag it describes, e.g. "GRDPSB.yaml"; its contents are not
// read until the tag is looked up.
func WithSource(fsys fs.FS) RepositoryOption {
	return func(c *repoConfig) {
		c.steps = append(c.steps, func(m map[string]*repoEntry) error {
			return indexSource(m, fsys, "descriptor source")
		})
	}
}

// WithSchema adds an already built schema.
func WithSchema(s *Schema) RepositoryOption {
	return func(c *repoConfig) {
		c.steps = append(c.steps, func(m map[string]*repoEntry) error {
			if s == nil {
				return errors.New("nil schema")
			}
			m[s.Tag] = &repoEntry{source: "static", load: func() (*Schema, error) { return s, nil }}
			return nil
		})
	}
}

// NewRepository builds a repository. Only directory listings happen here;
// descriptors are parsed lazily by Lookup.
func NewRepository(opts ...RepositoryOption) (*Repository, error) {
	cfg := &repoConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	r := &Repository{entries: make(map[string]*repoEntry), logger: cfg.logger}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	for _, step := range cfg.steps {
		if err := step(r.entries); err != nil {
			return nil, fmt.Errorf("schema repository: %w", err)
		}
	}
	return r, nil
}

var defaultRepository = sync.OnceValue(func() *Repository {
	r, err := NewRepository(WithBuiltins())
	if err != nil {
		// The builtin directory is embedded at compile time.
		panic(err)
	}
	return r
})

// Default returns the process-wide repository of builtin schemas.
func Default() *Repository {
	return defaultRepository()
}

func indexSource(m map[string]*repoEntry, fsys fs.FS, name string) error {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("list %s: %w", name, err)
	}
	for _, f := range files {
		ext := path.Ext(f.Name())
		if f.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		file := f.Name()
		tag := strings.TrimSuffix(file, ext)
		m[tag] = &repoEntry{
			source: file,
			load:   func() (*Schema, error) { return loadFile(fsys, file, tag) },
		}
	}
	return nil
}

func loadFile(fsys fs.FS, file, tag string) (*Schema, error) {
	f, err := fsys.Open(file)
	if err != nil {
		return nil, &ErrSchemaLoad{Tag: tag, Source: file, Reason: "open", Err: err}
	}
	defer f.Close()

	schemas, err := loadSchemas(f, file)
	if err != nil {
		return nil, err
	}
	for _, s := range schemas {
		if s.Tag == tag {
			return s, nil
		}
	}
	return nil, &ErrSchemaLoad{Tag: tag, Source: file, Reason: "file does not describe its tag"}
}

// Lookup returns the schema for tag. A tag with no descriptor yields
// (nil, nil); a malformed descriptor yields *ErrSchemaLoad for that tag only.
func (r *Repository) Lookup(tag string) (*Schema, error) {
	e, ok := r.entries[tag]
	if !ok {
		return nil, nil
	}
	e.once.Do(func() {
		e.schema, e.err = e.load()
		if e.err != nil {
			r.logger.Warn("schema load failed", "tag", tag, "source", e.source, "error", e.err)
			return
		}
		r.logger.Debug("schema loaded", "tag", tag, "source", e.source)
	})
	return e.schema, e.err
}

// Tags returns the known tags in sorted order.
func (r *Repository) Tags() []string {
	tags := make([]string, 0, len(r.entries))
	for tag := range r.entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Warm loads every schema and returns the load failures joined together.
func (r *Repository) Warm() error {
	var errs []error
	for _, tag := range r.Tags() {
		if _, err := r.Lookup(tag); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
