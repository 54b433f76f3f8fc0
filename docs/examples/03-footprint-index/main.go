package main

import (
	"fmt"
	"log"
	"os"

	"github.com/beetlebugorg/nitf/pkg/nitf"
)

// Find image blocks covering a location
func blocksForLocation(idx *nitf.FootprintIndex, lon, lat float64) []nitf.Footprint {
	return idx.Query(nitf.Bounds{MinLon: lon, MaxLon: lon, MinLat: lat, MaxLat: lat})
}

func main() {
	// Each file holds an extension area copied out of an image subheader
	paths := os.Args[1:]
	if len(paths) == 0 {
		log.Fatal("usage: footprint-index FILE...")
	}

	blocks, errs := nitf.ParseBlocks(paths, nitf.NewParser(), nitf.LoadOptions{
		Parallel:   true,
		SkipErrors: true,
		ErrorLog:   os.Stderr,
		Progress: func(loaded, total int) {
			fmt.Printf("\rParsing: %d/%d", loaded, total)
		},
	})
	fmt.Println()
	if len(errs) > 0 {
		fmt.Printf("Skipped %d files due to errors\n", len(errs))
	}

	var footprints []nitf.Footprint
	for _, b := range blocks {
		for _, ext := range b.Extensions {
			tree, ok := ext.(*nitf.Tree)
			if !ok || tree.Tag() != "BLOCKA" {
				continue
			}
			fp, err := nitf.FootprintFromBLOCKA(b.Path, tree)
			if err != nil {
				log.Printf("%s: %v", b.Path, err)
				continue
			}
			footprints = append(footprints, fp)
		}
	}

	idx := nitf.BuildIndex(footprints)
	bounds := idx.Bounds()
	fmt.Printf("Index contains %d footprints\n", idx.Count())
	fmt.Printf("Coverage: [%.4f,%.4f] to [%.4f,%.4f]\n\n",
		bounds.MinLon, bounds.MinLat,
		bounds.MaxLon, bounds.MaxLat)

	// Boston harbor
	for _, fp := range blocksForLocation(idx, -71.05, 42.35) {
		fmt.Printf("%s block %d\n", fp.Name, fp.Instance)
	}
}
