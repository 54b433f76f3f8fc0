// Package nitf reads and writes NITF Tagged Record Extensions (TREs).
//
// TRE layouts are described by schemas rather than code. The package ships
// schemas for a handful of common extensions and loads more from YAML
// descriptor directories. A TRE whose tag has no schema is kept verbatim, so
// any extension area can be read and written back unchanged.
//
// # Basic Usage
//
//	parser := nitf.NewParser()
//	ext, err := parser.ParseTRE("GRDPSB", 68, payload)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tree := ext.(*nitf.Tree)
//	n, _ := tree.Int("NUM_GRDS")
//	grds, _ := tree.Group("GRDS")
//	for _, rep := range grds.Repetitions() {
//	    zvl, _ := rep.Float("ZVL")
//	    fmt.Println(zvl)
//	}
//
// # Extension Areas
//
// NITF headers carry TREs back to back, each framed by a six character tag
// and a five digit length. ParseExtensions splits such an area and parses
// every TRE in it; SerializeExtensions writes the area back:
//
//	exts, err := parser.ParseExtensions(udhd)
//	out, err := parser.SerializeExtensions(exts)
//
// # Field Values
//
// Field text is kept exactly as read, including padding. Numeric access is
// coerced on demand, so a blank or malformed number does not stop the parse:
//
//	s, _ := tree.Text("LOD")  // always succeeds for a present field
//	n, err := tree.Int("LOD") // *ErrMalformedNumeric if the text is not a number
//
// # Custom Schemas
//
// Descriptors are YAML files named after the tag they describe:
//
//	repo, err := nitf.NewRepository(
//	    nitf.WithBuiltins(),
//	    nitf.WithSource(os.DirFS("/etc/nitf/schemas")),
//	)
//	parser := nitf.NewParserWithOptions(nitf.ParseOptions{Repository: repo})
//
// # Error Handling
//
// Failures are typed. Use errors.As to inspect them:
//
//	var trunc *nitf.ErrTruncatedRecord
//	if errors.As(err, &trunc) {
//	    fmt.Printf("%s ran out of data at byte %d\n", trunc.Tag, trunc.Offset)
//	}
//
// # Many Files
//
// ParseBlocks reads extension areas concurrently, and BlockCache keeps
// recently used ones in memory:
//
//	blocks, errs := nitf.ParseBlocks(paths, parser, nitf.DefaultLoadOptions())
//
//	cache := nitf.NewBlockCache(64 * 1024 * 1024)
//	block, err := cache.Get(path, func() (*nitf.Block, error) {
//	    return nitf.LoadBlock(path, parser)
//	})
package nitf
