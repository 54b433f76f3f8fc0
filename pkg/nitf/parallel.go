package nitf

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
)

// Block is one extension area read from a file.
type Block struct {
	Path       string      // File the block was read from
	Data       []byte      // Raw extension area bytes
	Extensions []Extension // Parsed TREs, in file order

	// Skipped holds the per-TRE failures when the parser was created with
	// SkipFailedExtensions. The failed TREs are in Extensions as *Unknown.
	Skipped error
}

// LoadOptions controls parallel loading behavior and error handling.
type LoadOptions struct {
	// Parallel enables concurrent block parsing.
	// When true, blocks are parsed using multiple worker goroutines.
	Parallel bool

	// Workers specifies the number of parallel parser goroutines.
	// If 0, defaults to runtime.NumCPU().
	// Only used when Parallel is true.
	Workers int

	// SkipErrors causes loading to continue even when individual blocks fail.
	// Failed blocks are skipped and errors are collected.
	// When false, the first error stops loading and is returned immediately.
	SkipErrors bool

	// Progress is an optional callback for tracking loading progress.
	// Called after each block is processed (successfully or with error).
	Progress func(loaded, total int)

	// ErrorLog is an optional writer for detailed error reporting.
	// Each loading error is written here with the block path and error details.
	ErrorLog io.Writer
}

// DefaultLoadOptions returns load options with sensible defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Parallel:   true,
		Workers:    runtime.NumCPU(),
		SkipErrors: true,
		Progress:   nil,
		ErrorLog:   nil,
	}
}

// LoadBlock reads the extension area stored in path and parses it.
func LoadBlock(path string, parser Parser) (*Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read block: %w", err)
	}
	exts, err := parser.ParseExtensions(data)
	if exts == nil && err != nil {
		return nil, err
	}
	return &Block{Path: path, Data: data, Extensions: exts, Skipped: err}, nil
}

// ParseBlocks loads and parses many extension area files with a worker pool.
//
// Successfully parsed blocks are returned in the order of paths. With
// SkipErrors, failed blocks are left out and their errors are collected;
// otherwise the first failure stops loading and is the only error returned.
//
// Example:
//
//	blocks, errs := nitf.ParseBlocks(paths, nitf.NewParser(), nitf.LoadOptions{
//	    Parallel:   true,
//	    SkipErrors: true,
//	    ErrorLog:   os.Stderr,
//	})
func ParseBlocks(paths []string, parser Parser, opts LoadOptions) ([]*Block, []error) {
	if len(paths) == 0 {
		return []*Block{}, nil
	}

	if !opts.Parallel {
		return parseBlocksSerial(paths, parser, opts)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	type loadResult struct {
		index int
		block *Block
		err   error
	}

	jobs := make(chan int, len(paths))
	results := make(chan loadResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				block, err := LoadBlock(paths[index], parser)
				results <- loadResult{index: index, block: block, err: err}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	blockMap := make(map[int]*Block)
	var errs []error
	loaded := 0

	for result := range results {
		loaded++
		if opts.Progress != nil {
			opts.Progress(loaded, len(paths))
		}

		if result.err != nil {
			err := fmt.Errorf("%s: %w", paths[result.index], result.err)
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error parsing block: %v\n", err)
			}
			if !opts.SkipErrors {
				// Workers drain the buffered job queue on their own.
				return nil, []error{err}
			}
			errs = append(errs, err)
			continue
		}

		blockMap[result.index] = result.block
	}

	blocks := make([]*Block, 0, len(blockMap))
	for i := range paths {
		if b, ok := blockMap[i]; ok {
			blocks = append(blocks, b)
		}
	}

	return blocks, errs
}

// parseBlocksSerial loads blocks one at a time (fallback when Parallel=false).
func parseBlocksSerial(paths []string, parser Parser, opts LoadOptions) ([]*Block, []error) {
	blocks := make([]*Block, 0, len(paths))
	var errs []error

	for i, path := range paths {
		block, err := LoadBlock(path, parser)
		if opts.Progress != nil {
			opts.Progress(i+1, len(paths))
		}
		if err != nil {
			err := fmt.Errorf("%s: %w", path, err)
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error parsing block: %v\n", err)
			}
			if !opts.SkipErrors {
				return nil, []error{err}
			}
			errs = append(errs, err)
			continue
		}
		blocks = append(blocks, block)
	}

	return blocks, errs
}
