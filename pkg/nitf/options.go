package nitf

// ParseOptions configures parsing behavior.
type ParseOptions struct {
	// SkipFailedExtensions keeps going when a TRE in an extension area fails
	// structured parsing. The failed TRE is kept as an *Unknown holding its
	// raw payload, and its error is reported alongside the result.
	//
	// Framing errors (a malformed tag or length header) always stop parsing.
	SkipFailedExtensions bool

	// Repository supplies schemas. If nil, DefaultRepository is used.
	Repository *Repository
}

// DefaultParseOptions returns default options.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		SkipFailedExtensions: false,
		Repository:           nil,
	}
}
