package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/beetlebugorg/nitf/pkg/nitf"
)

func describe(err error) string {
	var (
		trunc     *nitf.ErrTruncatedRecord
		count     *nitf.ErrUnresolvedRepeatCount
		length    *nitf.ErrLengthMismatch
		malformed *nitf.ErrMalformedNumeric
		header    *nitf.ErrExtensionHeader
	)
	switch {
	case errors.As(err, &header):
		return fmt.Sprintf("bad framing at byte %d", header.Offset)
	case errors.As(err, &trunc):
		return fmt.Sprintf("%s ran out of data in %s at byte %d", trunc.Tag, trunc.Field, trunc.Offset)
	case errors.As(err, &count):
		return fmt.Sprintf("%s: cannot tell how often %s repeats", count.Tag, count.Group)
	case errors.As(err, &length):
		return fmt.Sprintf("%s: declared %d bytes, read %d", length.Tag, length.Declared, length.Consumed)
	case errors.As(err, &malformed):
		return fmt.Sprintf("field %s holds %q, not a number", malformed.Field, malformed.Raw)
	}
	return err.Error()
}

func main() {
	parser := nitf.NewParser()

	// A repeat count of blanks cannot be resolved
	bad := []byte("  +000027.81PIX_LATLON0000000000010000000000010000000000000000000000")
	if _, err := parser.ParseTRE("GRDPSB", len(bad), bad); err != nil {
		log.Printf("Expected error: %s", describe(err))
	}

	// Blank numbers parse; only numeric access fails
	blank := []byte("01+000027.81PIX_LATLON            0000000000010000000000000000000000")
	ext, err := parser.ParseTRE("GRDPSB", len(blank), blank)
	if err != nil {
		log.Fatal(describe(err))
	}
	grds, _ := ext.(*nitf.Tree).Group("GRDS")
	if _, err := grds.Repetition(0).Int("LOD"); err != nil {
		log.Printf("Expected error: %s", describe(err))
	}

	// Keep going past a broken TRE in an extension area
	area := []byte("GRDPSB00068" + string(bad) + "XYZZY 00003abc")
	lenient := nitf.NewParserWithOptions(nitf.ParseOptions{SkipFailedExtensions: true})
	exts, err := lenient.ParseExtensions(area)
	if err != nil {
		log.Printf("Skipped: %s", describe(err))
	}
	for _, ext := range exts {
		fmt.Printf("%s: %T\n", ext.Tag(), ext)
	}
}
