package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/nitf/pkg/nitf"
)

func main() {
	// Create parser
	parser := nitf.NewParser()

	// Parse a GRDPSB payload
	payload := []byte("01+000027.81PIX_LATLON0000000000010000000000010000000000000000000000")
	ext, err := parser.ParseTRE("GRDPSB", len(payload), payload)
	if err != nil {
		log.Fatal(err)
	}

	tree, ok := ext.(*nitf.Tree)
	if !ok {
		log.Fatalf("no schema for %s", ext.Tag())
	}

	// Print grid info
	n, err := tree.Int("NUM_GRDS")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Grids: %d\n", n)

	grds, err := tree.Group("GRDS")
	if err != nil {
		log.Fatal(err)
	}
	for i, grid := range grds.Repetitions() {
		zvl, _ := grid.Float("ZVL")
		bad, _ := grid.Text("BAD")
		fmt.Printf("Grid %d: ZVL=%.2f BAD=%s\n", i, zvl, bad)
	}

	// Write it back out
	out, err := parser.Serialize(tree)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Round trip: %v\n", string(out) == string(payload))
}
